package features

import (
	"math"
	"strings"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/embedding"
	"github.com/spigell/mentor-match/internal/model"
)

// ampleCapacity is the remaining capacity at which the capacity penalty reaches 0.
const ampleCapacity = 3

// MatchingFeatures are the raw per-pair feature values, each in [0,1].
type MatchingFeatures struct {
	TopicsOverlap      float64 `json:"topics_overlap"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
	IndustryOverlap    float64 `json:"industry_overlap"`
	RoleSeniorityFit   float64 `json:"role_seniority_fit"`
	TZOverlapBonus     float64 `json:"tz_overlap_bonus"`
	LanguageBonus      float64 `json:"language_bonus"`
	CapacityPenalty    float64 `json:"capacity_penalty"`
}

// Vectors are the precomputed embeddings of the mentee goals and the mentor offer text.
type Vectors struct {
	Mentee []float32
	Mentor []float32
}

// Result is the output of Extract. Notes describe features that degraded to 0.
type Result struct {
	Features       MatchingFeatures
	EmbeddingBased bool
	Notes          []string
}

// Extract computes the features of one pair. It never fails: missing attributes
// degrade the affected feature to 0 and add a note.
func Extract(p cohort.Pair, m *model.MatchingModel, v *Vectors) Result {
	var res Result
	f := &res.Features

	f.TopicsOverlap = topicsOverlap(p, &res)
	f.SemanticSimilarity = semanticSimilarity(p, v, &res)
	f.IndustryOverlap = industryOverlap(p, &res)
	f.RoleSeniorityFit = seniorityFit(p, &res)
	f.TZOverlapBonus = timezoneBonus(p, m.Filters.MaxTimezoneDifference, &res)
	f.LanguageBonus = languageBonus(p, m.Filters.MinLanguageOverlap, &res)
	f.CapacityPenalty = capacityPenalty(p.Mentor.CapacityRemaining)

	return res
}

func (r *Result) note(msg string) {
	r.Notes = append(r.Notes, msg)
}

func topicsOverlap(p cohort.Pair, res *Result) float64 {
	if len(p.Mentee.Topics) == 0 {
		res.note("mentee has no stated topics")
		return 0
	}
	if len(p.Mentor.Topics) == 0 {
		res.note("mentor offers no topics")
		return 0
	}
	return clamp01(float64(len(p.SharedTopics())) / float64(len(p.Mentee.Topics)))
}

func semanticSimilarity(p cohort.Pair, v *Vectors, res *Result) float64 {
	if v != nil {
		if sim, ok := embedding.Cosine(v.Mentee, v.Mentor); ok {
			res.EmbeddingBased = true
			return clamp01(sim)
		}
	}

	goals, offer := p.Mentee.Goals, p.Mentor.OfferText()
	if strings.TrimSpace(goals) == "" || strings.TrimSpace(offer) == "" {
		res.note("semantic similarity unavailable: goals or bio text missing")
		return 0
	}

	res.note("semantic similarity estimated lexically, embeddings unavailable")
	return clamp01(LexicalSimilarity(goals, offer))
}

func industryOverlap(p cohort.Pair, res *Result) float64 {
	mentor, mentee := p.Mentor.Profile, p.Mentee.Profile

	industryKnown := mentor.Industry != "" && mentee.Industry != ""
	departmentKnown := mentor.Department != "" && mentee.Department != ""
	if !industryKnown && !departmentKnown {
		res.note("industry and department not declared")
		return 0
	}

	if industryKnown && strings.EqualFold(mentor.Industry, mentee.Industry) {
		return 1
	}
	if departmentKnown && strings.EqualFold(mentor.Department, mentee.Department) {
		return 1
	}
	return 0
}

// seniorityFit is 1 at a gap of one tier or more, 0.5 for peers and 0 when the mentor is junior.
func seniorityFit(p cohort.Pair, res *Result) float64 {
	gap, ok := p.SeniorityGap()
	if !ok {
		res.note("seniority band unknown")
		return 0
	}
	return clamp01((float64(gap) + 1) / 2)
}

func timezoneBonus(p cohort.Pair, maxDiff float64, res *Result) float64 {
	diff, err := p.TimezoneDifference()
	if err != nil {
		res.note("timezone unknown")
		return 0
	}
	if maxDiff <= 0 {
		if diff == 0 {
			return 1
		}
		return 0
	}
	return clamp01(1 - diff/maxDiff)
}

func languageBonus(p cohort.Pair, minOverlap int, res *Result) float64 {
	if len(p.Mentor.Languages) == 0 || len(p.Mentee.Languages) == 0 {
		res.note("languages not declared")
		return 0
	}
	if len(p.SharedLanguages()) > minOverlap {
		return 1
	}
	return 0
}

func capacityPenalty(capacity int) float64 {
	return clamp01(float64(ampleCapacity-capacity) / ampleCapacity)
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
