package model

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidModel wraps every structural problem found in a matching model.
	ErrInvalidModel = errors.New("invalid matching model")
	// ErrModelNotActive is returned when a run is attempted with a draft or archived model.
	ErrModelNotActive = errors.New("matching model is not active")
	// ErrInvalidTransition is returned by lifecycle helpers for disallowed status changes.
	ErrInvalidTransition = errors.New("invalid matching model status transition")
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type RuleType string

const (
	RuleMustHave  RuleType = "must_have"
	RuleExclusion RuleType = "exclusion"
	RuleBonus     RuleType = "bonus"
	RulePenalty   RuleType = "penalty"
)

type ActionType string

const (
	ActionScore        ActionType = "score"
	ActionExclude      ActionType = "exclude"
	ActionFlagApproval ActionType = "flag_approval"
)

type Operator string

const (
	OpEqual       Operator = "="
	OpNotEqual    Operator = "!="
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpGreater     Operator = ">"
	OpGreaterEq   Operator = ">="
	OpLess        Operator = "<"
	OpLessEq      Operator = "<="
	OpExists      Operator = "exists"
)

var operators = []Operator{
	OpEqual, OpNotEqual, OpIn, OpNotIn, OpContains, OpNotContains,
	OpGreater, OpGreaterEq, OpLess, OpLessEq, OpExists,
}

// DefaultTopN is the number of recommendations kept per mentee.
const DefaultTopN = 3

// Weights are the per-criterion weights. They need not sum to 100.
type Weights struct {
	Topics          float64 `json:"topics"`
	Industry        float64 `json:"industry"`
	Seniority       float64 `json:"seniority"`
	Semantic        float64 `json:"semantic"`
	Timezone        float64 `json:"timezone"`
	Language        float64 `json:"language"`
	CapacityPenalty float64 `json:"capacity_penalty"`
}

// Sum returns the total of the positive criteria weights. The capacity penalty is not part of it.
func (w Weights) Sum() float64 {
	return w.Topics + w.Industry + w.Seniority + w.Semantic + w.Timezone + w.Language
}

type Filters struct {
	MinLanguageOverlap       int     `json:"min_language_overlap"`
	MaxTimezoneDifference    float64 `json:"max_timezone_difference"`
	RequireAvailableCapacity bool    `json:"require_available_capacity"`
}

// Condition is evaluated against the flat attribute map of a pair.
// Values is used by the in and not_in operators, Value by every other operator.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
	Values   []string `json:"values,omitempty"`
}

type Action struct {
	Type  ActionType `json:"type"`
	Value float64    `json:"value,omitempty"`
}

type MatchingRule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	RuleType  RuleType  `json:"rule_type"`
	Condition Condition `json:"condition"`
	Action    Action    `json:"action"`
	Priority  int       `json:"priority"`
	Message   string    `json:"message,omitempty"`
}

// MatchingModel is the versioned scoring configuration of a cohort.
type MatchingModel struct {
	ID                string         `json:"id"`
	Name              string         `json:"name,omitempty"`
	CohortID          string         `json:"cohort_id,omitempty"`
	Version           int            `json:"version"`
	Status            Status         `json:"status"`
	Weights           Weights        `json:"weights"`
	Filters           Filters        `json:"filters"`
	Rules             []MatchingRule `json:"rules,omitempty"`
	ApprovalThreshold float64        `json:"approval_threshold"`
	TopN              int            `json:"top_n"`
}

// New returns a draft model with defaults applied.
func New() *MatchingModel {
	return &MatchingModel{
		Status: StatusDraft,
		TopN:   DefaultTopN,
		Filters: Filters{
			RequireAvailableCapacity: true,
		},
	}
}

// Clone returns a deep copy, used to freeze the model for one run.
func (m *MatchingModel) Clone() *MatchingModel {
	c := *m
	c.Rules = make([]MatchingRule, len(m.Rules))
	for i, r := range m.Rules {
		r.Condition.Values = slices.Clone(r.Condition.Values)
		c.Rules[i] = r
	}
	c.compact()
	return &c
}

// compact replaces empty slices with nil so the model looks the same after a JSON round trip.
func (m *MatchingModel) compact() {
	if len(m.Rules) == 0 {
		m.Rules = nil
	}
	for i := range m.Rules {
		if len(m.Rules[i].Condition.Values) == 0 {
			m.Rules[i].Condition.Values = nil
		}
	}
}

// SortedRules returns the rules in evaluation order: higher priority first, declaration order on ties.
func (m *MatchingModel) SortedRules() []MatchingRule {
	rules := slices.Clone(m.Rules)
	slices.SortStableFunc(rules, func(a, b MatchingRule) int {
		return b.Priority - a.Priority
	})
	return rules
}

func (m *MatchingModel) RequireActive() error {
	if m.Status != StatusActive {
		return fmt.Errorf("%w: model %q version %d is %s", ErrModelNotActive, m.ID, m.Version, m.Status)
	}
	return nil
}

func (m *MatchingModel) Activate() error {
	if m.Status != StatusDraft {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, StatusActive)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	m.Status = StatusActive
	return nil
}

func (m *MatchingModel) Archive() error {
	if m.Status != StatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, StatusArchived)
	}
	m.Status = StatusArchived
	return nil
}
