package cohort

import "testing"

func TestPairDerivedValues(t *testing.T) {
	p := Pair{
		Mentor: &MentorProfile{Profile: Profile{
			ID: "m1", Seniority: "D1", Timezone: "UTC+3",
			Languages: []string{"en", "de"}, Topics: []string{"go", "leadership", "hiring"},
		}},
		Mentee: &MenteeProfile{Profile: Profile{
			ID: "e1", Seniority: "S2", Timezone: "UTC-1",
			Languages: []string{"de", "fr"}, Topics: []string{"hiring", "go", "kotlin"},
		}},
	}

	diff, err := p.TimezoneDifference()
	if err != nil || diff != 4 {
		t.Fatalf("expected 4h difference, got %v (%v)", diff, err)
	}

	if got := p.SharedLanguages(); len(got) != 1 || got[0] != "de" {
		t.Fatalf("unexpected shared languages: %v", got)
	}

	if got := p.SharedTopics(); len(got) != 2 || got[0] != "hiring" || got[1] != "go" {
		t.Fatalf("expected mentee topic order, got %v", got)
	}

	if gap, ok := p.SeniorityGap(); !ok || gap != 3 {
		t.Fatalf("expected gap 3, got %d (%v)", gap, ok)
	}

	p.Mentee.Seniority = "intern"
	if _, ok := p.SeniorityGap(); ok {
		t.Fatalf("expected unknown band to be reported")
	}
}
