package ranking

import (
	"cmp"
	"slices"

	"github.com/spigell/mentor-match/internal/scoring"
)

// Candidate is a scored mentor for one mentee.
type Candidate struct {
	MentorID          string
	CapacityRemaining int
	Score             scoring.MatchScore
}

// Recommendation is a ranked candidate. Rank starts at 1.
type Recommendation struct {
	MentorID string             `json:"mentor_id"`
	Rank     int                `json:"rank"`
	Score    scoring.MatchScore `json:"score"`
}

// Compare orders candidates by total score desc, remaining capacity desc, mentor id asc.
func Compare(a, b Candidate) int {
	if c := cmp.Compare(b.Score.TotalScore, a.Score.TotalScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CapacityRemaining, a.CapacityRemaining); c != 0 {
		return c
	}
	return cmp.Compare(a.MentorID, b.MentorID)
}

// Top returns up to n eligible candidates in rank order. Ineligible candidates are skipped.
func Top(candidates []Candidate, n int) []Recommendation {
	if n <= 0 {
		return nil
	}

	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score.Eligible {
			eligible = append(eligible, c)
		}
	}
	slices.SortFunc(eligible, Compare)

	if len(eligible) > n {
		eligible = eligible[:n]
	}

	recs := make([]Recommendation, len(eligible))
	for i, c := range eligible {
		recs[i] = Recommendation{MentorID: c.MentorID, Rank: i + 1, Score: c.Score}
	}
	return recs
}
