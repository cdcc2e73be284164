package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/model"
	"go.uber.org/zap"
)

// Filter represents a single hard feasibility check applied to candidate pairs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *model.Filters) error
	// Check reports whether the pair passes. reason explains a failure.
	Check(p cohort.Pair) (reason string, ok bool)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Drop records a pair removed by a filter.
type Drop struct {
	MentorID string
	MenteeID string
	Filter   string
	Reason   string
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Default returns the capacity, timezone and language steps, cheapest first, configured from cfg.
func Default(cfg model.Filters) []Filter {
	steps := []Filter{
		NewCapacity(),
		NewTimezone(cfg.MaxTimezoneDifference),
		NewLanguage(cfg.MinLanguageOverlap),
	}

	if !cfg.RequireAvailableCapacity {
		DisableByName(steps, capacityName, "require_available_capacity is false")
	}
	if cfg.MinLanguageOverlap == 0 {
		DisableByName(steps, languageName, "min_language_overlap is 0")
	}

	return steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially. Each step only sees the pairs that
// survived the previous ones, so a dropped pair carries the reason of the first failing step.
func Run(ctx context.Context, cfg *model.Filters, logger *zap.Logger, steps []Filter, pairs []cohort.Pair) ([]cohort.Pair, []Drop, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	var dropped []Drop
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if !step.IsEnabled() {
			logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		left := make([]cohort.Pair, 0, len(pairs))
		for _, p := range pairs {
			reason, ok := step.Check(p)
			if ok {
				left = append(left, p)
				continue
			}
			dropped = append(dropped, Drop{
				MentorID: p.Mentor.ID,
				MenteeID: p.Mentee.ID,
				Filter:   step.Name(),
				Reason:   reason,
			})
		}

		info := Step{Initial: len(pairs), Dropped: len(pairs) - len(left), Left: len(left)}
		logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		pairs = left
	}

	return pairs, dropped, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
