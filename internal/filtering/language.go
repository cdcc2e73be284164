package filtering

import (
	"fmt"
	"strconv"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/model"
)

const languageName = "language"

type languageFilter struct {
	disabled bool
	reason   string
	min      int
}

// NewLanguage creates a filter that removes pairs sharing fewer languages than required.
func NewLanguage(minShared int) Filter {
	return &languageFilter{min: minShared}
}

func (f *languageFilter) Name() string { return languageName }

func (f *languageFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *languageFilter) IsEnabled() bool { return !f.disabled }

func (f *languageFilter) Validate(cfg *model.Filters) error {
	if cfg == nil {
		return fmt.Errorf("filters configuration is required")
	}
	if cfg.MinLanguageOverlap < 0 {
		return fmt.Errorf("min_language_overlap must not be negative")
	}
	f.min = cfg.MinLanguageOverlap
	return nil
}

func (f *languageFilter) Check(p cohort.Pair) (string, bool) {
	shared := len(p.SharedLanguages())
	if shared < f.min {
		return fmt.Sprintf("%d shared languages, %d required", shared, f.min), false
	}
	return "", true
}

func (f *languageFilter) Status() Status {
	details := map[string]string{
		"min_language_overlap": strconv.Itoa(f.min),
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
