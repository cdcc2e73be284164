package features

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/model"
)

func testPair() cohort.Pair {
	return cohort.Pair{
		Mentor: &cohort.MentorProfile{
			Profile: cohort.Profile{
				ID: "mentor-a", Seniority: "D1", Department: "platform", Industry: "fintech",
				Timezone: "UTC+2", Languages: []string{"en", "de"}, Topics: []string{"go", "leadership"},
			},
			Bio:               "Engineering director building payment platforms in Go",
			CapacityRemaining: 3,
		},
		Mentee: &cohort.MenteeProfile{
			Profile: cohort.Profile{
				ID: "mentee-a", Seniority: "S2", Department: "mobile", Industry: "fintech",
				Timezone: "UTC+0", Languages: []string{"en"}, Topics: []string{"go", "leadership", "public speaking", "hiring"},
			},
			Goals: "Grow into engineering leadership on payment platforms",
		},
	}
}

func testModel() *model.MatchingModel {
	m := model.New()
	m.Filters.MaxTimezoneDifference = 4
	m.Filters.MinLanguageOverlap = 0
	return m
}

func assertFeature(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s: expected %v, got %v", name, want, got)
	}
}

func TestExtract(t *testing.T) {
	res := Extract(testPair(), testModel(), nil)
	f := res.Features

	assertFeature(t, "topics", f.TopicsOverlap, 0.5)
	assertFeature(t, "industry", f.IndustryOverlap, 1)
	assertFeature(t, "seniority", f.RoleSeniorityFit, 1)
	assertFeature(t, "timezone", f.TZOverlapBonus, 0.5)
	assertFeature(t, "language", f.LanguageBonus, 1)
	assertFeature(t, "capacity", f.CapacityPenalty, 0)

	if res.EmbeddingBased {
		t.Fatalf("expected lexical similarity without vectors")
	}
	if f.SemanticSimilarity <= 0 || f.SemanticSimilarity > 1 {
		t.Fatalf("expected lexical similarity in (0,1], got %v", f.SemanticSimilarity)
	}
}

func TestExtractUsesEmbeddings(t *testing.T) {
	res := Extract(testPair(), testModel(), &Vectors{Mentee: []float32{1, 0}, Mentor: []float32{1, 1}})
	if !res.EmbeddingBased {
		t.Fatalf("expected embedding based similarity")
	}
	assertFeature(t, "semantic", res.Features.SemanticSimilarity, 1/math.Sqrt2)

	res = Extract(testPair(), testModel(), &Vectors{Mentee: []float32{1, 0}, Mentor: []float32{-1, 0}})
	assertFeature(t, "negative cosine", res.Features.SemanticSimilarity, 0)

	res = Extract(testPair(), testModel(), &Vectors{Mentee: []float32{1, 0}})
	if res.EmbeddingBased {
		t.Fatalf("expected fallback when mentor vector is missing")
	}
}

func TestSeniorityFit(t *testing.T) {
	cases := []struct {
		mentor, mentee string
		want           float64
	}{
		{"D1", "S1", 1},
		{"M2", "M1", 1},
		{"M1", "M1", 0.5},
		{"M1", "M2", 0},
		{"S1", "LT", 0},
	}
	for _, tc := range cases {
		p := testPair()
		p.Mentor.Seniority, p.Mentee.Seniority = tc.mentor, tc.mentee
		res := Extract(p, testModel(), nil)
		assertFeature(t, tc.mentor+"/"+tc.mentee, res.Features.RoleSeniorityFit, tc.want)
	}
}

func TestCapacityPenalty(t *testing.T) {
	for capacity, want := range map[int]float64{0: 1, 1: 2.0 / 3, 2: 1.0 / 3, 3: 0, 10: 0} {
		assertFeature(t, "capacity", capacityPenalty(capacity), want)
	}
}

func TestTimezoneBonusWithZeroCeiling(t *testing.T) {
	m := testModel()
	m.Filters.MaxTimezoneDifference = 0

	p := testPair()
	assertFeature(t, "offset", Extract(p, m, nil).Features.TZOverlapBonus, 0)

	p.Mentee.Timezone = "UTC+2"
	assertFeature(t, "same zone", Extract(p, m, nil).Features.TZOverlapBonus, 1)
}

func TestLanguageBonusRequiresMoreThanMinimum(t *testing.T) {
	m := testModel()
	m.Filters.MinLanguageOverlap = 1

	assertFeature(t, "one shared", Extract(testPair(), m, nil).Features.LanguageBonus, 0)

	p := testPair()
	p.Mentee.Languages = []string{"en", "de"}
	assertFeature(t, "two shared", Extract(p, m, nil).Features.LanguageBonus, 1)
}

func TestMissingAttributesDegradeToZero(t *testing.T) {
	p := testPair()
	p.Mentee.Topics = nil
	p.Mentee.Timezone = ""
	p.Mentee.Seniority = ""
	p.Mentee.Languages = nil
	p.Mentee.Goals = ""
	p.Mentee.Industry, p.Mentee.Department = "", ""

	res := Extract(p, testModel(), nil)
	f := res.Features
	for name, v := range map[string]float64{
		"topics": f.TopicsOverlap, "semantic": f.SemanticSimilarity, "industry": f.IndustryOverlap,
		"seniority": f.RoleSeniorityFit, "timezone": f.TZOverlapBonus, "language": f.LanguageBonus,
	} {
		assertFeature(t, name, v, 0)
	}

	want := []string{"topics", "semantic", "industry", "seniority", "timezone", "languages"}
	for _, w := range want {
		if !slices.ContainsFunc(res.Notes, func(n string) bool { return strings.Contains(n, w) }) {
			t.Fatalf("expected a note about %s, got %v", w, res.Notes)
		}
	}
}

func TestLexicalSimilarity(t *testing.T) {
	if got := LexicalSimilarity("Ｋｕｂｅｒｎｅｔｅｓ operators", "kubernetes OPERATORS"); got != 1 {
		t.Fatalf("expected normalized tokens to match, got %v", got)
	}
	if got := LexicalSimilarity("the and for", "distributed systems"); got != 0 {
		t.Fatalf("expected stop words to be ignored, got %v", got)
	}
	if got := LexicalSimilarity("go leadership hiring", "leadership coaching"); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("expected 0.25, got %v", got)
	}
	if got := LexicalSimilarity("Go and AI", "ai, go"); got != 1 {
		t.Fatalf("expected two-letter topics to count, got %v", got)
	}
	if got := LexicalSimilarity("up to me", "a b c"); got != 0 {
		t.Fatalf("expected short stop words and single letters to be ignored, got %v", got)
	}
	if got := LexicalSimilarity("", "anything"); got != 0 {
		t.Fatalf("expected 0 for empty text, got %v", got)
	}
}
