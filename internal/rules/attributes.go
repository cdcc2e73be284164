package rules

import (
	"strings"

	"github.com/spigell/mentor-match/internal/cohort"
)

const (
	MentorPrefix = "mentor."
	MenteePrefix = "mentee."
	PairPrefix   = "pair."
)

// Attributes is the flat attribute map a rule condition is evaluated against.
// Values are string, []string or float64.
type Attributes map[string]any

// BuildAttributes flattens both profiles and the derived pair values.
// Unknown values are left out rather than stored empty.
func BuildAttributes(p cohort.Pair) Attributes {
	attrs := make(Attributes, 32)

	attrs.addProfile(MentorPrefix, p.Mentor.Profile)
	attrs.setString(MentorPrefix+"bio", p.Mentor.Bio)
	attrs[MentorPrefix+"capacity_remaining"] = float64(p.Mentor.CapacityRemaining)

	attrs.addProfile(MenteePrefix, p.Mentee.Profile)
	attrs.setString(MenteePrefix+"goals", p.Mentee.Goals)

	if diff, err := p.TimezoneDifference(); err == nil {
		attrs[PairPrefix+"timezone_difference"] = diff
	}
	attrs[PairPrefix+"shared_languages"] = float64(len(p.SharedLanguages()))
	attrs[PairPrefix+"shared_topics"] = float64(len(p.SharedTopics()))
	if gap, ok := p.SeniorityGap(); ok {
		attrs[PairPrefix+"seniority_gap"] = float64(gap)
	}

	return attrs
}

func (a Attributes) addProfile(prefix string, p cohort.Profile) {
	// Free-form attributes go first so the typed fields win on name clashes.
	for k, v := range p.Attributes {
		a.setString(prefix+strings.ToLower(strings.TrimSpace(k)), v)
	}

	a.setString(prefix+"id", p.ID)
	a.setString(prefix+"name", p.Name)
	a.setString(prefix+"role", p.Role)
	a.setString(prefix+"seniority", p.Seniority)
	a.setString(prefix+"department", p.Department)
	a.setString(prefix+"industry", p.Industry)
	a.setString(prefix+"timezone", p.Timezone)
	if len(p.Languages) > 0 {
		a[prefix+"languages"] = p.Languages
	}
	if len(p.Topics) > 0 {
		a[prefix+"topics"] = p.Topics
	}
	if rank, ok := cohort.SeniorityRank(p.Seniority); ok {
		a[prefix+"seniority_rank"] = float64(rank)
	}
}

func (a Attributes) setString(key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		a[key] = value
	}
}
