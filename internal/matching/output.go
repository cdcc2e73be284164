package matching

import (
	"fmt"
	"time"

	"github.com/spigell/mentor-match/internal/assign"
	"github.com/spigell/mentor-match/internal/model"
	"github.com/spigell/mentor-match/internal/ranking"
)

type Mode string

const (
	ModeBatch Mode = "batch"
	ModeTop3  Mode = "top3_per_mentee"
)

// ParseMode accepts the wire names of the matching modes.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBatch, ModeTop3:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown matching mode %q, expected %q or %q", s, ModeBatch, ModeTop3)
}

type Stats struct {
	MenteesTotal     int `json:"mentees_total"`
	MentorsTotal     int `json:"mentors_total"`
	PairsEvaluated   int `json:"pairs_evaluated"`
	AfterFilters     int `json:"after_filters"`
	RuleExcluded     int `json:"rule_excluded"`
	EvaluationErrors int `json:"evaluation_errors"`
	Assigned         int `json:"assigned"`
	Unassigned       int `json:"unassigned"`
	NeedsApproval    int `json:"needs_approval"`
}

// Infeasible explains why a mentor is missing from a mentee's candidates.
// Stage is the filter name, "rules" for rule exclusions or "error" for failed evaluations.
type Infeasible struct {
	MentorID string `json:"mentor_id"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
}

const (
	StageRules = "rules"
	StageError = "error"
)

type MatchingResult struct {
	MenteeID           string                     `json:"mentee_id"`
	Recommendations    []ranking.Recommendation   `json:"recommendations"`
	ProposedAssignment *assign.ProposedAssignment `json:"proposed_assignment,omitempty"`
	Infeasible         []Infeasible               `json:"infeasible,omitempty"`
}

// MatchingOutput is the immutable record of one run.
type MatchingOutput struct {
	CohortID  string               `json:"cohort_id"`
	Mode      Mode                 `json:"mode"`
	Model     *model.MatchingModel `json:"model"`
	Stats     Stats                `json:"stats"`
	Results   []MatchingResult     `json:"results"`
	Warnings  []string             `json:"warnings,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Result returns the result of a mentee, or nil.
func (o *MatchingOutput) Result(menteeID string) *MatchingResult {
	for i := range o.Results {
		if o.Results[i].MenteeID == menteeID {
			return &o.Results[i]
		}
	}
	return nil
}

// AssignmentCounts returns the number of proposed assignments per mentor.
func (o *MatchingOutput) AssignmentCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range o.Results {
		if r.ProposedAssignment != nil && r.ProposedAssignment.MentorID != nil {
			counts[*r.ProposedAssignment.MentorID]++
		}
	}
	return counts
}

type Decision string

const (
	DecisionApproved   Decision = "approved"
	DecisionRejected   Decision = "rejected"
	DecisionReassigned Decision = "reassigned"
)

// ManualMatch is a human decision about one mentee's proposed assignment.
type ManualMatch struct {
	MenteeID         string   `json:"mentee_id"`
	ProposedMentorID *string  `json:"proposed_mentor_id"`
	MentorID         *string  `json:"mentor_id"`
	Decision         Decision `json:"decision"`
	Comment          string   `json:"comment,omitempty"`
	DecidedBy        string   `json:"decided_by,omitempty"`
}

// ManualMatchingOutput collects the decisions taken on one MatchingOutput.
type ManualMatchingOutput struct {
	CohortID        string        `json:"cohort_id"`
	ModelVersion    int           `json:"model_version"`
	SourceTimestamp time.Time     `json:"source_timestamp"`
	Matches         []ManualMatch `json:"matches"`
	Timestamp       time.Time     `json:"timestamp"`
}
