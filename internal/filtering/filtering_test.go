package filtering

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/spigell/mentor-match/internal/cohort"
	"github.com/spigell/mentor-match/internal/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mentor(id, tz string, capacity int, langs ...string) *cohort.MentorProfile {
	return &cohort.MentorProfile{
		Profile:           cohort.Profile{ID: id, Timezone: tz, Languages: langs},
		CapacityRemaining: capacity,
	}
}

func mentee(id, tz string, langs ...string) *cohort.MenteeProfile {
	return &cohort.MenteeProfile{Profile: cohort.Profile{ID: id, Timezone: tz, Languages: langs}}
}

func filters() model.Filters {
	return model.Filters{MinLanguageOverlap: 1, MaxTimezoneDifference: 3, RequireAvailableCapacity: true}
}

// runPair filters a single pair and returns its drop, if any.
func runPair(t *testing.T, cfg model.Filters, steps []Filter, p cohort.Pair) (Drop, bool) {
	t.Helper()

	left, dropped, err := Run(context.Background(), &cfg, nil, steps, []cohort.Pair{p})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(left) == 1 {
		return Drop{}, true
	}
	return dropped[0], false
}

func TestRunDropsInOrder(t *testing.T) {
	e := mentee("e1", "UTC+0", "en")
	pairs := []cohort.Pair{
		{Mentor: mentor("ok", "UTC+2", 2, "en"), Mentee: e},
		{Mentor: mentor("full", "UTC+9", 0, "fr"), Mentee: e},
		{Mentor: mentor("far", "UTC+5", 1, "fr"), Mentee: e},
		{Mentor: mentor("mute", "UTC-3", 1, "fr"), Mentee: e},
		{Mentor: mentor("unknown-tz", "", 1, "en"), Mentee: e},
	}

	core, observed := observer.New(zapcore.InfoLevel)
	cfg := filters()

	left, dropped, err := Run(context.Background(), &cfg, zap.New(core), Default(cfg), pairs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(left) != 2 || left[0].Mentor.ID != "ok" || left[1].Mentor.ID != "unknown-tz" {
		t.Fatalf("unexpected survivors: %+v", left)
	}

	want := map[string]string{"full": capacityName, "far": timezoneName, "mute": languageName}
	if len(dropped) != len(want) {
		t.Fatalf("expected %d drops, got %+v", len(want), dropped)
	}
	for _, d := range dropped {
		if want[d.MentorID] != d.Filter {
			t.Fatalf("mentor %s dropped by %s, expected %s", d.MentorID, d.Filter, want[d.MentorID])
		}
		if d.Reason == "" || d.MenteeID != "e1" {
			t.Fatalf("incomplete drop: %+v", d)
		}
	}

	steps := observed.FilterMessage("filter step").All()
	if len(steps) != 3 {
		t.Fatalf("expected 3 step logs, got %d", len(steps))
	}
	fields := steps[1].ContextMap()
	if fields["initial"] != int64(4) || fields["dropped"] != int64(1) || fields["left"] != int64(3) {
		t.Fatalf("unexpected timezone step stats: %v", fields)
	}
}

func TestFiveHourOffsetNeverPassesThreeHourCeiling(t *testing.T) {
	cfg := filters()
	p := cohort.Pair{Mentor: mentor("m", "UTC+5", 5, "en"), Mentee: mentee("e", "UTC+0", "en")}

	d, ok := runPair(t, cfg, Default(cfg), p)
	if ok {
		t.Fatalf("expected pair to be infeasible")
	}
	if d.Filter != timezoneName || !strings.Contains(d.Reason, "5") {
		t.Fatalf("unexpected drop %+v", d)
	}
}

func TestDefaultDisablesSteps(t *testing.T) {
	cfg := filters()
	cfg.RequireAvailableCapacity = false
	cfg.MinLanguageOverlap = 0

	steps := Default(cfg)
	p := cohort.Pair{Mentor: mentor("m", "UTC+1", 0), Mentee: mentee("e", "UTC+0", "en")}
	if d, ok := runPair(t, cfg, steps, p); !ok {
		t.Fatalf("expected pair to pass with disabled steps, got %+v", d)
	}

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	if statuses[0].Enabled || statuses[0].Reason == "" {
		t.Fatalf("expected capacity step to be disabled with a reason: %+v", statuses[0])
	}
	if !statuses[1].Enabled || statuses[1].Details["max_timezone_difference"] != "3" {
		t.Fatalf("unexpected timezone status: %+v", statuses[1])
	}
	if statuses[2].Enabled {
		t.Fatalf("expected language step to be disabled")
	}
}

func TestZeroTimezoneCeilingRequiresSameOffset(t *testing.T) {
	cfg := filters()
	cfg.MaxTimezoneDifference = 0
	steps := Default(cfg)

	same := cohort.Pair{Mentor: mentor("m", "Europe/London", 1, "en"), Mentee: mentee("e", "UTC+0", "en")}
	if _, ok := runPair(t, cfg, steps, same); !ok {
		t.Fatalf("expected identical offsets to pass")
	}

	other := cohort.Pair{Mentor: mentor("m", "UTC+1", 1, "en"), Mentee: mentee("e", "UTC+0", "en")}
	if _, ok := runPair(t, cfg, steps, other); ok {
		t.Fatalf("expected different offsets to fail")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := filters()
	if _, _, err := Run(ctx, &cfg, nil, Default(cfg), nil); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestRunRejectsInfiniteTimezoneCeiling(t *testing.T) {
	cfg := filters()
	steps := Default(cfg)
	cfg.MaxTimezoneDifference = math.Inf(1)

	_, _, err := Run(context.Background(), &cfg, nil, steps, nil)
	if err == nil || !strings.Contains(err.Error(), "max_timezone_difference") {
		t.Fatalf("expected timezone validation error, got %v", err)
	}
}
