package cohort

import "strings"

// SeniorityScale is the ordered list of seniority bands, most junior first.
var SeniorityScale = []string{"S1", "S2", "M1", "M2", "D1", "D2", "VP", "SVP", "LT"}

// SeniorityRank returns the index of band on the scale. ok is false for unknown bands.
func SeniorityRank(band string) (int, bool) {
	band = strings.ToUpper(strings.TrimSpace(band))
	if band == "" {
		return 0, false
	}
	for i, b := range SeniorityScale {
		if b == band {
			return i, true
		}
	}
	return 0, false
}

// SeniorityGap returns rank(mentor)-rank(mentee). ok is false when either band is unknown.
func SeniorityGap(mentor, mentee string) (int, bool) {
	mr, ok := SeniorityRank(mentor)
	if !ok {
		return 0, false
	}
	er, ok := SeniorityRank(mentee)
	if !ok {
		return 0, false
	}
	return mr - er, true
}
