package rules

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/mentor-match/internal/model"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	valueSame      = "same"
	valueDifferent = "different"
)

// Violation is a rule that constrained a pair.
type Violation struct {
	RuleID   string         `json:"rule_id"`
	RuleType model.RuleType `json:"rule_type"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
}

// Adjustment is a score change applied by a bonus or penalty rule.
type Adjustment struct {
	RuleID  string  `json:"rule_id"`
	Delta   float64 `json:"delta"`
	Message string  `json:"message"`
}

// Outcome is the combined effect of all rules on one pair.
type Outcome struct {
	ScoreDelta     float64
	Violations     []Violation
	Adjustments    []Adjustment
	ForcedExclude  bool
	ForcedApproval bool
}

// Evaluate applies rules in order. Callers pass them already sorted by priority.
// An error means a condition could not be evaluated for this pair.
func Evaluate(attrs Attributes, rules []model.MatchingRule) (Outcome, error) {
	var out Outcome

	for _, r := range rules {
		matched, err := Match(attrs, r.Condition)
		if err != nil {
			return Outcome{}, fmt.Errorf("rule %q: %w", r.ID, err)
		}

		switch r.RuleType {
		case model.RuleMustHave:
			if !matched {
				out.constrain(r, "missing required "+r.Condition.Field)
			}
		case model.RuleExclusion:
			if matched {
				out.constrain(r, "excluded by "+r.Condition.Field)
			}
		case model.RuleBonus:
			if matched {
				out.adjust(r, math.Abs(r.Action.Value))
			}
		case model.RulePenalty:
			if matched {
				out.adjust(r, -math.Abs(r.Action.Value))
			}
		default:
			return Outcome{}, fmt.Errorf("rule %q: unknown rule type %q", r.ID, r.RuleType)
		}
	}

	return out, nil
}

// constrain records a failed must_have or a matched exclusion.
func (o *Outcome) constrain(r model.MatchingRule, fallback string) {
	severity := SeverityError
	if r.Action.Type == model.ActionFlagApproval {
		severity = SeverityWarning
		o.ForcedApproval = true
	} else {
		o.ForcedExclude = true
	}

	o.Violations = append(o.Violations, Violation{
		RuleID:   r.ID,
		RuleType: r.RuleType,
		Severity: severity,
		Message:  message(r, fallback),
	})
}

func (o *Outcome) adjust(r model.MatchingRule, delta float64) {
	if r.Action.Type == model.ActionFlagApproval {
		o.ForcedApproval = true
		o.Violations = append(o.Violations, Violation{
			RuleID:   r.ID,
			RuleType: r.RuleType,
			Severity: SeverityWarning,
			Message:  message(r, "flagged by "+r.Condition.Field),
		})
		return
	}

	o.ScoreDelta += delta
	o.Adjustments = append(o.Adjustments, Adjustment{
		RuleID:  r.ID,
		Delta:   delta,
		Message: message(r, fmt.Sprintf("%+g points from %s", delta, r.Condition.Field)),
	})
	if delta < 0 {
		o.Violations = append(o.Violations, Violation{
			RuleID:   r.ID,
			RuleType: r.RuleType,
			Severity: SeverityInfo,
			Message:  message(r, fmt.Sprintf("%+g points from %s", delta, r.Condition.Field)),
		})
	}
}

func message(r model.MatchingRule, fallback string) string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	if name := strings.TrimSpace(r.Name); name != "" {
		return name + ": " + fallback
	}
	return fallback
}

// Match evaluates one condition. A field without a mentor., mentee. or pair. prefix
// addresses both profiles: the values "same" and "different" compare the two sides,
// any other value matches when either side satisfies it.
func Match(attrs Attributes, c model.Condition) (bool, error) {
	field := strings.ToLower(strings.TrimSpace(c.Field))

	if strings.Contains(field, ".") {
		v, ok := attrs[field]
		return matchValue(v, ok, c)
	}

	mentorVal, mentorOK := attrs[MentorPrefix+field]
	menteeVal, menteeOK := attrs[MenteePrefix+field]

	if c.Operator == model.OpEqual || c.Operator == model.OpNotEqual {
		switch strings.ToLower(strings.TrimSpace(c.Value)) {
		case valueSame, valueDifferent:
			if !mentorOK || !menteeOK {
				return c.Operator == model.OpNotEqual, nil
			}
			same := sameValue(mentorVal, menteeVal)
			if strings.EqualFold(c.Value, valueDifferent) {
				same = !same
			}
			if c.Operator == model.OpNotEqual {
				return !same, nil
			}
			return same, nil
		}
	}

	matched, err := matchValue(mentorVal, mentorOK, c)
	if err != nil || matched {
		return matched, err
	}
	return matchValue(menteeVal, menteeOK, c)
}

func matchValue(v any, present bool, c model.Condition) (bool, error) {
	switch c.Operator {
	case model.OpExists:
		return present, nil
	case model.OpEqual:
		return present && equals(v, c.Value), nil
	case model.OpNotEqual:
		return !present || !equals(v, c.Value), nil
	case model.OpIn:
		return present && inValues(v, c.Values), nil
	case model.OpNotIn:
		return !present || !inValues(v, c.Values), nil
	case model.OpContains:
		return present && contains(v, c.Value), nil
	case model.OpNotContains:
		return !present || !contains(v, c.Value), nil
	case model.OpGreater, model.OpGreaterEq, model.OpLess, model.OpLessEq:
		if !present {
			return false, nil
		}
		return compare(v, c)
	default:
		return false, fmt.Errorf("unknown operator %q", c.Operator)
	}
}

func equals(v any, want string) bool {
	want = strings.TrimSpace(want)
	switch val := v.(type) {
	case string:
		return strings.EqualFold(val, want)
	case []string:
		return slices.ContainsFunc(val, func(s string) bool { return strings.EqualFold(s, want) })
	case float64:
		n, err := strconv.ParseFloat(want, 64)
		return err == nil && n == val
	}
	return false
}

func inValues(v any, values []string) bool {
	for _, want := range values {
		if equals(v, want) {
			return true
		}
	}
	return false
}

func contains(v any, want string) bool {
	switch val := v.(type) {
	case string:
		return strings.Contains(strings.ToLower(val), strings.ToLower(strings.TrimSpace(want)))
	default:
		return equals(v, want)
	}
}

func compare(v any, c model.Condition) (bool, error) {
	got, err := number(v)
	if err != nil {
		return false, fmt.Errorf("field %q: %w", c.Field, err)
	}
	want, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return false, fmt.Errorf("field %q: value %q is not a number", c.Field, c.Value)
	}

	switch c.Operator {
	case model.OpGreater:
		return got > want, nil
	case model.OpGreaterEq:
		return got >= want, nil
	case model.OpLess:
		return got < want, nil
	default:
		return got <= want, nil
	}
}

func number(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("attribute value %q is not a number", val)
		}
		return n, nil
	case []string:
		return float64(len(val)), nil
	}
	return 0, fmt.Errorf("attribute of type %T is not a number", v)
}

func sameValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		switch bv := b.(type) {
		case string:
			return strings.EqualFold(av, bv)
		case []string:
			return equals(bv, av)
		}
	case []string:
		switch bv := b.(type) {
		case string:
			return equals(av, bv)
		case []string:
			return slices.ContainsFunc(av, func(s string) bool { return equals(bv, s) })
		}
	case float64:
		bv, err := number(b)
		return err == nil && av == bv
	}
	return false
}
