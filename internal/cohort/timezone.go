package cohort

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// offsetReference is the instant IANA zones are resolved at.
var offsetReference = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

var offsetPattern = regexp.MustCompile(`^(?i:utc|gmt)?\s*([+-])\s*(\d{1,2})(?::?(\d{2}))?$`)

// ParseOffset converts a timezone declaration into a UTC offset in hours.
func ParseOffset(tz string) (float64, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return 0, fmt.Errorf("timezone is empty")
	}

	switch strings.ToUpper(tz) {
	case "Z", "UTC", "GMT":
		return 0, nil
	}

	if m := offsetPattern.FindStringSubmatch(tz); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes >= 60 {
			return 0, fmt.Errorf("timezone offset %q out of range", tz)
		}
		offset := float64(hours) + float64(minutes)/60
		if m[1] == "-" {
			offset = -offset
		}
		return offset, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	_, seconds := offsetReference.In(loc).Zone()
	return float64(seconds) / 3600, nil
}

// OffsetDifference returns the distance in hours between two offsets on a 24h clock.
func OffsetDifference(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 24)
	if d > 12 {
		d = 24 - d
	}
	return d
}

// TimezoneDifference parses both declarations and returns their distance in hours.
func TimezoneDifference(a, b string) (float64, error) {
	oa, err := ParseOffset(a)
	if err != nil {
		return 0, err
	}
	ob, err := ParseOffset(b)
	if err != nil {
		return 0, err
	}
	return OffsetDifference(oa, ob), nil
}
