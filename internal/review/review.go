package review

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spigell/mentor-match/internal/matching"
	"github.com/spigell/mentor-match/internal/ranking"
	"go.uber.org/zap"
)

// ErrSkip is returned by a Decider to leave a proposal untouched.
var ErrSkip = errors.New("skip")

// Choice is a reviewer's answer for one mentee.
type Choice struct {
	Decision matching.Decision
	// MentorID is the new mentor for DecisionReassigned.
	MentorID string
	Comment  string
}

// Decider asks a reviewer what to do with a proposed assignment.
type Decider interface {
	Decide(ctx context.Context, r matching.MatchingResult, remaining map[string]int) (Choice, error)
}

// Session walks the proposals of one batch output and records the decisions.
type Session struct {
	out       *matching.MatchingOutput
	remaining map[string]int
	logger    *zap.Logger
	decided   map[string]matching.ManualMatch

	Reviewer string
	Now      func() time.Time
}

// NewSession derives the remaining capacity of every recommended mentor from the output.
func NewSession(out *matching.MatchingOutput, logger *zap.Logger) (*Session, error) {
	if out == nil {
		return nil, errors.New("matching output is required")
	}
	if out.Mode != matching.ModeBatch {
		return nil, fmt.Errorf("only %s outputs carry proposals, got %s", matching.ModeBatch, out.Mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	remaining := make(map[string]int)
	for _, r := range out.Results {
		for _, rec := range r.Recommendations {
			remaining[rec.MentorID] = rec.Score.Logistics.MentorCapacityRemaining
		}
	}
	for mentor, n := range out.AssignmentCounts() {
		remaining[mentor] -= n
	}

	return &Session{
		out:       out,
		remaining: remaining,
		logger:    logger,
		decided:   make(map[string]matching.ManualMatch),
		Now:       time.Now,
	}, nil
}

// Pending returns the assigned results, flagged ones only unless all is set.
func (s *Session) Pending(all bool) []matching.MatchingResult {
	var pending []matching.MatchingResult
	for _, r := range s.out.Results {
		p := r.ProposedAssignment
		if p == nil || p.MentorID == nil {
			continue
		}
		if _, done := s.decided[r.MenteeID]; done {
			continue
		}
		if all || p.NeedsApproval() {
			pending = append(pending, r)
		}
	}
	return pending
}

// Remaining returns a copy of the free capacity per mentor.
func (s *Session) Remaining() map[string]int {
	return maps.Clone(s.remaining)
}

// Run asks the decider about every pending proposal.
func (s *Session) Run(ctx context.Context, d Decider, all bool) error {
	for _, r := range s.Pending(all) {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, err := d.Decide(ctx, r, s.Remaining())
		if errors.Is(err, ErrSkip) {
			s.logger.Info("proposal skipped", zap.String("mentee_id", r.MenteeID))
			continue
		}
		if err != nil {
			return err
		}

		if _, err := s.Apply(r.MenteeID, choice); err != nil {
			return err
		}
	}
	return nil
}

// Apply performs one transition: approved keeps the proposal, rejected sends the mentee
// back to unassigned and reassigned moves it to another recommended mentor with free capacity.
func (s *Session) Apply(menteeID string, c Choice) (matching.ManualMatch, error) {
	r := s.out.Result(menteeID)
	if r == nil {
		return matching.ManualMatch{}, fmt.Errorf("unknown mentee %q", menteeID)
	}
	if r.ProposedAssignment == nil || r.ProposedAssignment.MentorID == nil {
		return matching.ManualMatch{}, fmt.Errorf("mentee %q has no proposed assignment", menteeID)
	}
	if _, done := s.decided[menteeID]; done {
		return matching.ManualMatch{}, fmt.Errorf("mentee %q is already decided", menteeID)
	}

	proposed := *r.ProposedAssignment.MentorID
	match := matching.ManualMatch{
		MenteeID:         menteeID,
		ProposedMentorID: &proposed,
		Decision:         c.Decision,
		Comment:          c.Comment,
		DecidedBy:        s.Reviewer,
	}

	switch c.Decision {
	case matching.DecisionApproved:
		match.MentorID = &proposed
	case matching.DecisionRejected:
		s.remaining[proposed]++
	case matching.DecisionReassigned:
		if c.MentorID == proposed {
			return matching.ManualMatch{}, fmt.Errorf("mentee %q is already proposed to %s", menteeID, proposed)
		}
		if !slices.ContainsFunc(r.Recommendations, func(rec ranking.Recommendation) bool { return rec.MentorID == c.MentorID }) {
			return matching.ManualMatch{}, fmt.Errorf("mentor %q is not recommended for %q", c.MentorID, menteeID)
		}
		if s.remaining[c.MentorID] <= 0 {
			return matching.ManualMatch{}, fmt.Errorf("mentor %q has no remaining capacity", c.MentorID)
		}
		s.remaining[c.MentorID]--
		s.remaining[proposed]++
		mentor := c.MentorID
		match.MentorID = &mentor
	default:
		return matching.ManualMatch{}, fmt.Errorf("unknown decision %q", c.Decision)
	}

	s.decided[menteeID] = match
	s.logger.Info("proposal decided",
		zap.String("mentee_id", menteeID),
		zap.String("decision", string(c.Decision)),
		zap.String("proposed_mentor_id", proposed),
	)

	return match, nil
}

// Output returns the decisions in mentee order.
func (s *Session) Output() *matching.ManualMatchingOutput {
	manual := &matching.ManualMatchingOutput{
		CohortID:        s.out.CohortID,
		SourceTimestamp: s.out.Timestamp,
		Matches:         make([]matching.ManualMatch, 0, len(s.decided)),
		Timestamp:       s.Now().UTC(),
	}
	if s.out.Model != nil {
		manual.ModelVersion = s.out.Model.Version
	}

	for _, r := range s.out.Results {
		if m, ok := s.decided[r.MenteeID]; ok {
			manual.Matches = append(manual.Matches, m)
		}
	}
	return manual
}
