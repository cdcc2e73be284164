package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/features"
	"github.com/spigell/mentor-match/internal/model"
	"github.com/spigell/mentor-match/internal/rules"
)

const (
	CriterionTopics          = "topics"
	CriterionIndustry        = "industry"
	CriterionSeniority       = "seniority"
	CriterionSemantic        = "semantic"
	CriterionTimezone        = "timezone"
	CriterionLanguage        = "language"
	CriterionCapacityPenalty = "capacity_penalty"
)

// ScoreBreakdown is one criterion's share of the total.
// WeightedScore is raw_score*weight before normalization, Points is what it adds to total_score.
type ScoreBreakdown struct {
	Criterion     string  `json:"criterion"`
	RawScore      float64 `json:"raw_score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
	Points        float64 `json:"points"`
}

// Logistics are the practical facts of a pair shown next to the score.
type Logistics struct {
	TimezoneDifferenceHours *float64 `json:"timezone_difference_hours"`
	SharedLanguages         []string `json:"shared_languages,omitempty"`
	SharedTopics            []string `json:"shared_topics,omitempty"`
	MentorCapacityRemaining int      `json:"mentor_capacity_remaining"`
}

// MatchScore is the explainable result of scoring one pair.
type MatchScore struct {
	TotalScore       float64                   `json:"total_score"`
	Features         features.MatchingFeatures `json:"features"`
	Breakdown        []ScoreBreakdown          `json:"breakdown"`
	RuleDelta        float64                   `json:"rule_delta"`
	Violations       []rules.Violation         `json:"violations,omitempty"`
	Reasons          []string                  `json:"reasons"`
	Risks            []string                  `json:"risks"`
	Logistics        Logistics                 `json:"logistics"`
	IsEmbeddingBased bool                      `json:"is_embedding_based"`
	Eligible         bool                      `json:"eligible"`
	NeedsApproval    bool                      `json:"needs_approval"`
}

// Input bundles everything the scorer reads for one pair.
type Input struct {
	Pair     cohort.Pair
	Features features.Result
	Rules    rules.Outcome
	Model    *model.MatchingModel
}

// Score combines features and rule adjustments into a total in [0,100].
// Excluded pairs are still scored but marked ineligible.
func Score(in Input) MatchScore {
	f := in.Features.Features
	w := in.Model.Weights

	terms := []struct {
		name   string
		raw    float64
		weight float64
	}{
		{CriterionTopics, f.TopicsOverlap, w.Topics},
		{CriterionIndustry, f.IndustryOverlap, w.Industry},
		{CriterionSeniority, f.RoleSeniorityFit, w.Seniority},
		{CriterionSemantic, f.SemanticSimilarity, w.Semantic},
		{CriterionTimezone, f.TZOverlapBonus, w.Timezone},
		{CriterionLanguage, f.LanguageBonus, w.Language},
	}

	sumWeights := w.Sum()
	breakdown := make([]ScoreBreakdown, 0, len(terms)+1)

	var weighted float64
	for _, t := range terms {
		ws := t.raw * t.weight
		weighted += ws

		points := 0.0
		if sumWeights > 0 {
			points = ws / sumWeights * 100
		}
		breakdown = append(breakdown, ScoreBreakdown{
			Criterion:     t.name,
			RawScore:      round(t.raw),
			Weight:        t.weight,
			WeightedScore: round(ws),
			Points:        round(points),
		})
	}

	base := 0.0
	if sumWeights > 0 {
		base = weighted / sumWeights * 100
	}

	penalty := w.CapacityPenalty * f.CapacityPenalty
	breakdown = append(breakdown, ScoreBreakdown{
		Criterion:     CriterionCapacityPenalty,
		RawScore:      round(f.CapacityPenalty),
		Weight:        w.CapacityPenalty,
		WeightedScore: round(-penalty),
		Points:        round(-penalty),
	})

	total := clamp(base-penalty+in.Rules.ScoreDelta, 0, 100)

	score := MatchScore{
		TotalScore:       round(total),
		Features:         roundFeatures(f),
		Breakdown:        breakdown,
		RuleDelta:        round(in.Rules.ScoreDelta),
		Violations:       in.Rules.Violations,
		Logistics:        logistics(in.Pair),
		IsEmbeddingBased: in.Features.EmbeddingBased,
		Eligible:         !in.Rules.ForcedExclude,
	}
	score.NeedsApproval = in.Rules.ForcedApproval || score.TotalScore < in.Model.ApprovalThreshold

	score.Reasons = reasons(score, in.Rules)
	score.Risks = risks(score, in, sumWeights)

	return score
}

func logistics(p cohort.Pair) Logistics {
	l := Logistics{
		SharedLanguages:         p.SharedLanguages(),
		SharedTopics:            p.SharedTopics(),
		MentorCapacityRemaining: p.Mentor.CapacityRemaining,
	}
	if diff, err := p.TimezoneDifference(); err == nil {
		l.TimezoneDifferenceHours = &diff
	}
	return l
}

func reasons(s MatchScore, outcome rules.Outcome) []string {
	var out []string
	f := s.Features

	if f.TopicsOverlap >= 0.8 {
		out = append(out, "strong topic overlap: "+strings.Join(s.Logistics.SharedTopics, ", "))
	}
	if f.SemanticSimilarity >= 0.7 {
		out = append(out, "goals align closely with the mentor's experience")
	}
	if f.IndustryOverlap >= 1 {
		out = append(out, "shared industry or department")
	}
	if f.RoleSeniorityFit >= 1 {
		out = append(out, "mentor is at least one seniority tier above")
	}
	if f.TZOverlapBonus >= 0.8 {
		out = append(out, "close working hours")
	}
	if f.LanguageBonus >= 1 {
		out = append(out, "shared languages: "+strings.Join(s.Logistics.SharedLanguages, ", "))
	}
	for _, adj := range outcome.Adjustments {
		if adj.Delta > 0 {
			out = append(out, adj.Message)
		}
	}

	return out
}

func risks(s MatchScore, in Input, sumWeights float64) []string {
	var out []string
	f := s.Features

	if f.TopicsOverlap > 0 && f.TopicsOverlap <= 0.2 {
		out = append(out, "little topic overlap")
	}
	if _, ok := in.Pair.SeniorityGap(); ok && f.RoleSeniorityFit <= 0.5 {
		out = append(out, "mentor is not senior to the mentee")
	}
	if s.Logistics.TimezoneDifferenceHours != nil && f.TZOverlapBonus <= 0.2 {
		out = append(out, fmt.Sprintf("large timezone difference (%gh)", *s.Logistics.TimezoneDifferenceHours))
	}
	if f.CapacityPenalty >= 2.0/3 {
		out = append(out, "mentor is close to capacity")
	}
	if sumWeights == 0 {
		out = append(out, "all criterion weights are zero")
	}

	out = append(out, in.Features.Notes...)

	for _, v := range s.Violations {
		out = append(out, v.Message)
	}

	if s.Eligible && !in.Rules.ForcedApproval && s.NeedsApproval {
		out = append(out, fmt.Sprintf("score %.2f is below the approval threshold %g", s.TotalScore, in.Model.ApprovalThreshold))
	}

	return out
}

func roundFeatures(f features.MatchingFeatures) features.MatchingFeatures {
	return features.MatchingFeatures{
		TopicsOverlap:      round(f.TopicsOverlap),
		SemanticSimilarity: round(f.SemanticSimilarity),
		IndustryOverlap:    round(f.IndustryOverlap),
		RoleSeniorityFit:   round(f.RoleSeniorityFit),
		TZOverlapBonus:     round(f.TZOverlapBonus),
		LanguageBonus:      round(f.LanguageBonus),
		CapacityPenalty:    round(f.CapacityPenalty),
	}
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

// round keeps four decimals.
func round(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return math.Round(x*1e4) / 1e4
}
