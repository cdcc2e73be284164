package cohort

// Pair is one mentee/mentor candidate pair.
type Pair struct {
	Mentor *MentorProfile
	Mentee *MenteeProfile
}

func (p Pair) TimezoneDifference() (float64, error) {
	return TimezoneDifference(p.Mentor.Timezone, p.Mentee.Timezone)
}

func (p Pair) SharedLanguages() []string {
	return Intersect(p.Mentor.Languages, p.Mentee.Languages)
}

// SharedTopics returns the mentee's sought topics the mentor offers.
func (p Pair) SharedTopics() []string {
	return Intersect(p.Mentee.Topics, p.Mentor.Topics)
}

func (p Pair) SeniorityGap() (int, bool) {
	return SeniorityGap(p.Mentor.Seniority, p.Mentee.Seniority)
}
