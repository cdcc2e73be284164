package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Validate reports every structural problem of the model at once.
func (m *MatchingModel) Validate() error {
	var errs []error

	switch m.Status {
	case StatusDraft, StatusActive, StatusArchived:
	default:
		errs = append(errs, fmt.Errorf("unknown status %q", m.Status))
	}

	if m.Version < 0 {
		errs = append(errs, fmt.Errorf("version must not be negative"))
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"topics", m.Weights.Topics},
		{"industry", m.Weights.Industry},
		{"seniority", m.Weights.Seniority},
		{"semantic", m.Weights.Semantic},
		{"timezone", m.Weights.Timezone},
		{"language", m.Weights.Language},
		{"capacity_penalty", m.Weights.CapacityPenalty},
	}
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) {
			errs = append(errs, fmt.Errorf("weights.%s must be a finite number", w.name))
			continue
		}
		if w.value < 0 {
			errs = append(errs, fmt.Errorf("weights.%s must not be negative, got %v", w.name, w.value))
		}
	}

	if tz := m.Filters.MaxTimezoneDifference; tz < 0 || math.IsNaN(tz) || math.IsInf(tz, 0) {
		errs = append(errs, fmt.Errorf("filters.max_timezone_difference must be a finite non-negative number, got %v", tz))
	}
	if m.Filters.MinLanguageOverlap < 0 {
		errs = append(errs, fmt.Errorf("filters.min_language_overlap must not be negative, got %d", m.Filters.MinLanguageOverlap))
	}

	if m.ApprovalThreshold < 0 || m.ApprovalThreshold > 100 || math.IsNaN(m.ApprovalThreshold) {
		errs = append(errs, fmt.Errorf("approval_threshold must be within [0, 100], got %v", m.ApprovalThreshold))
	}
	if m.TopN < 1 {
		errs = append(errs, fmt.Errorf("top_n must be at least 1, got %d", m.TopN))
	}

	seen := make(map[string]struct{}, len(m.Rules))
	for i, r := range m.Rules {
		label := fmt.Sprintf("rules[%d]", i)
		if id := strings.TrimSpace(r.ID); id != "" {
			label = fmt.Sprintf("rule %q", id)
			if _, ok := seen[id]; ok {
				errs = append(errs, fmt.Errorf("%s is declared twice", label))
			}
			seen[id] = struct{}{}
		} else {
			errs = append(errs, fmt.Errorf("%s has no id", label))
		}

		if err := r.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidModel, errors.Join(errs...))
}

func (r MatchingRule) validate() error {
	var errs []error

	switch r.RuleType {
	case RuleMustHave, RuleExclusion, RuleBonus, RulePenalty:
	default:
		errs = append(errs, fmt.Errorf("unknown rule_type %q", r.RuleType))
	}

	if strings.TrimSpace(r.Condition.Field) == "" {
		errs = append(errs, fmt.Errorf("condition.field is required"))
	}
	if !slices.Contains(operators, r.Condition.Operator) {
		errs = append(errs, fmt.Errorf("unknown operator %q", r.Condition.Operator))
	}
	if (r.Condition.Operator == OpIn || r.Condition.Operator == OpNotIn) && len(r.Condition.Values) == 0 {
		errs = append(errs, fmt.Errorf("operator %q requires condition.values", r.Condition.Operator))
	}

	switch r.Action.Type {
	case ActionScore:
		if r.RuleType == RuleMustHave || r.RuleType == RuleExclusion {
			errs = append(errs, fmt.Errorf("%s rules cannot use the score action", r.RuleType))
		}
		if r.Action.Value == 0 || math.IsNaN(r.Action.Value) || math.IsInf(r.Action.Value, 0) {
			errs = append(errs, fmt.Errorf("score action requires a finite non-zero value"))
		}
	case ActionExclude:
		if r.RuleType == RuleBonus || r.RuleType == RulePenalty {
			errs = append(errs, fmt.Errorf("%s rules cannot use the exclude action", r.RuleType))
		}
	case ActionFlagApproval:
	case "":
		// must_have and exclusion default to exclude, bonus and penalty need a value.
		if (r.RuleType == RuleBonus || r.RuleType == RulePenalty) && r.Action.Value == 0 {
			errs = append(errs, fmt.Errorf("%s rule requires action.value", r.RuleType))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown action type %q", r.Action.Type))
	}

	return errors.Join(errs...)
}
