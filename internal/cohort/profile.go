package cohort

import (
	"maps"
	"slices"
	"strings"
)

// Profile holds the attributes shared by mentors and mentees.
type Profile struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Role       string            `json:"role,omitempty"`
	Seniority  string            `json:"seniority,omitempty"`
	Department string            `json:"department,omitempty"`
	Industry   string            `json:"industry,omitempty"`
	Timezone   string            `json:"timezone,omitempty"`
	Languages  []string          `json:"languages,omitempty"`
	Topics     []string          `json:"topics,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// MentorProfile is a mentor snapshot. Topics are the topics offered.
type MentorProfile struct {
	Profile
	Bio               string `json:"bio,omitempty"`
	CapacityRemaining int    `json:"capacity_remaining"`
}

// MenteeProfile is a mentee snapshot. Topics are the topics sought.
type MenteeProfile struct {
	Profile
	Goals string `json:"goals,omitempty"`
}

// Cohort is the full set of profiles taking part in one matching run.
type Cohort struct {
	ID      string           `json:"cohort_id"`
	Mentors []*MentorProfile `json:"mentors"`
	Mentees []*MenteeProfile `json:"mentees"`
}

// OfferText is the text compared against mentee goals for semantic similarity.
func (m *MentorProfile) OfferText() string {
	parts := make([]string, 0, 2)
	if bio := strings.TrimSpace(m.Bio); bio != "" {
		parts = append(parts, bio)
	}
	if len(m.Topics) > 0 {
		parts = append(parts, strings.Join(m.Topics, ", "))
	}
	return strings.Join(parts, "\n")
}

func (p *Profile) normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.Seniority = strings.ToUpper(strings.TrimSpace(p.Seniority))
	p.Timezone = strings.TrimSpace(p.Timezone)
	p.Department = strings.TrimSpace(p.Department)
	p.Industry = strings.TrimSpace(p.Industry)
	p.Languages = normalizeList(p.Languages)
	p.Topics = normalizeList(p.Topics)
}

// normalizeList lowercases, trims and deduplicates values, keeping the first occurrence order.
func normalizeList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Intersect returns the values present in both normalized lists, in the order of a.
func Intersect(a, b []string) []string {
	var shared []string
	for _, v := range a {
		if slices.Contains(b, v) {
			shared = append(shared, v)
		}
	}
	return shared
}

func (p Profile) clone() Profile {
	p.Languages = slices.Clone(p.Languages)
	p.Topics = slices.Clone(p.Topics)
	p.Attributes = maps.Clone(p.Attributes)
	return p
}

// Clone returns a deep copy of the cohort. Nil profiles stay nil.
func (c *Cohort) Clone() *Cohort {
	out := &Cohort{
		ID:      c.ID,
		Mentors: make([]*MentorProfile, 0, len(c.Mentors)),
		Mentees: make([]*MenteeProfile, 0, len(c.Mentees)),
	}
	for _, m := range c.Mentors {
		if m == nil {
			out.Mentors = append(out.Mentors, nil)
			continue
		}
		cp := *m
		cp.Profile = m.Profile.clone()
		out.Mentors = append(out.Mentors, &cp)
	}
	for _, m := range c.Mentees {
		if m == nil {
			out.Mentees = append(out.Mentees, nil)
			continue
		}
		cp := *m
		cp.Profile = m.Profile.clone()
		out.Mentees = append(out.Mentees, &cp)
	}
	return out
}

// Normalize trims and lowercases list attributes and sorts profiles by id.
func (c *Cohort) Normalize() {
	for _, m := range c.Mentors {
		m.normalize()
	}
	for _, m := range c.Mentees {
		m.normalize()
	}
	slices.SortStableFunc(c.Mentors, func(a, b *MentorProfile) int { return strings.Compare(a.ID, b.ID) })
	slices.SortStableFunc(c.Mentees, func(a, b *MenteeProfile) int { return strings.Compare(a.ID, b.ID) })
}

func (c *Cohort) FindMentor(id string) *MentorProfile {
	for _, m := range c.Mentors {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (c *Cohort) FindMentee(id string) *MenteeProfile {
	for _, m := range c.Mentees {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Capacities returns the starting capacity of every mentor keyed by id.
func (c *Cohort) Capacities() map[string]int {
	caps := make(map[string]int, len(c.Mentors))
	for _, m := range c.Mentors {
		caps[m.ID] = m.CapacityRemaining
	}
	return caps
}
