package filtering

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/model"
)

const timezoneName = "timezone"

type timezoneFilter struct {
	disabled bool
	reason   string
	max      float64
}

// NewTimezone creates a filter that removes pairs living too many hours apart.
// Pairs with an unknown timezone pass; the feature extractor reports them as a risk.
func NewTimezone(maxHours float64) Filter {
	return &timezoneFilter{max: maxHours}
}

func (f *timezoneFilter) Name() string { return timezoneName }

func (f *timezoneFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *timezoneFilter) IsEnabled() bool { return !f.disabled }

func (f *timezoneFilter) Validate(cfg *model.Filters) error {
	if cfg == nil {
		return fmt.Errorf("filters configuration is required")
	}
	if tz := cfg.MaxTimezoneDifference; tz < 0 || math.IsNaN(tz) || math.IsInf(tz, 0) {
		return fmt.Errorf("max_timezone_difference must be a finite non-negative number, got %v", tz)
	}
	f.max = cfg.MaxTimezoneDifference
	return nil
}

func (f *timezoneFilter) Check(p cohort.Pair) (string, bool) {
	diff, err := p.TimezoneDifference()
	if err != nil {
		return "", true
	}
	if diff > f.max {
		return fmt.Sprintf("timezone difference %gh exceeds %gh", diff, f.max), false
	}
	return "", true
}

func (f *timezoneFilter) Status() Status {
	details := map[string]string{
		"max_timezone_difference": strconv.FormatFloat(f.max, 'f', -1, 64),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
