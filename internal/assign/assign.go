package assign

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spigell/mentor-match/internal/ranking"
	"go.uber.org/zap"
)

// NeedsApprovalPrefix starts the comment of an assignment that must be reviewed by a human.
const NeedsApprovalPrefix = "needs approval:"

// ProposedAssignment is the engine's single suggestion for a mentee. MentorID is nil when unassigned.
type ProposedAssignment struct {
	MentorID *string `json:"mentor_id"`
	Comment  string  `json:"comment"`
}

// NeedsApproval reports whether the assignment was flagged for review.
func (p ProposedAssignment) NeedsApproval() bool {
	return p.MentorID != nil && strings.HasPrefix(p.Comment, NeedsApprovalPrefix)
}

// Entry is one mentee with its ranked recommendations.
type Entry struct {
	MenteeID        string
	Recommendations []ranking.Recommendation
}

type Summary struct {
	Assigned      int
	Unassigned    int
	NeedsApproval int
}

// Assigner commits mentees to mentors greedily while tracking remaining capacity.
// It is not safe for concurrent use.
type Assigner struct {
	capacity map[string]int
	logger   *zap.Logger
}

// New copies the starting capacities so the caller's map is never mutated.
func New(capacities map[string]int, logger *zap.Logger) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assigner{capacity: maps.Clone(capacities), logger: logger}
}

// Run processes entries by mentee id ascending and returns the assignment of every mentee.
func (a *Assigner) Run(entries []Entry) (map[string]ProposedAssignment, Summary) {
	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(x, y Entry) int { return strings.Compare(x.MenteeID, y.MenteeID) })

	result := make(map[string]ProposedAssignment, len(ordered))
	var summary Summary

	for _, e := range ordered {
		p := a.assign(e)
		result[e.MenteeID] = p

		switch {
		case p.MentorID == nil:
			summary.Unassigned++
		case p.NeedsApproval():
			summary.Assigned++
			summary.NeedsApproval++
		default:
			summary.Assigned++
		}
	}

	a.logger.Info("assignment finished",
		zap.Int("assigned", summary.Assigned),
		zap.Int("unassigned", summary.Unassigned),
		zap.Int("needs_approval", summary.NeedsApproval),
	)

	return result, summary
}

func (a *Assigner) assign(e Entry) ProposedAssignment {
	if len(e.Recommendations) == 0 {
		return ProposedAssignment{Comment: "no feasible mentor for this mentee"}
	}

	for _, rec := range e.Recommendations {
		if a.capacity[rec.MentorID] <= 0 {
			continue
		}
		a.capacity[rec.MentorID]--

		mentorID := rec.MentorID
		comment := fmt.Sprintf("assigned to %s (rank %d, score %.2f)", mentorID, rec.Rank, rec.Score.TotalScore)
		if rec.Score.NeedsApproval {
			comment = fmt.Sprintf("%s %s", NeedsApprovalPrefix, comment)
		}

		a.logger.Debug("mentee assigned",
			zap.String("mentee_id", e.MenteeID),
			zap.String("mentor_id", mentorID),
			zap.Int("rank", rec.Rank),
			zap.Bool("needs_approval", rec.Score.NeedsApproval),
		)

		return ProposedAssignment{MentorID: &mentorID, Comment: comment}
	}

	return ProposedAssignment{
		Comment: fmt.Sprintf("all %d recommended mentors are at capacity", len(e.Recommendations)),
	}
}

// Remaining returns the capacity left per mentor after Run.
func (a *Assigner) Remaining() map[string]int {
	return maps.Clone(a.capacity)
}
