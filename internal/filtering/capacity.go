package filtering

import (
	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/model"
)

const capacityName = "capacity"

type capacityFilter struct {
	disabled bool
	reason   string
}

// NewCapacity creates a filter that removes mentors with no remaining capacity.
func NewCapacity() Filter {
	return &capacityFilter{}
}

func (f *capacityFilter) Name() string { return capacityName }

func (f *capacityFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *capacityFilter) IsEnabled() bool { return !f.disabled }

func (f *capacityFilter) Validate(*model.Filters) error { return nil }

func (f *capacityFilter) Check(p cohort.Pair) (string, bool) {
	if p.Mentor.CapacityRemaining > 0 {
		return "", true
	}
	return "mentor has no remaining capacity", false
}

func (f *capacityFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
