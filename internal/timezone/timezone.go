// Package timezone resolves the viewer's time zone and computes local day
// boundaries.
package timezone

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// ParseTimezone parses an IANA identifier (e.g. "Europe/Rome").
// An empty value or "UTC" yields UTC. Invalid values yield UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// Resolve returns the location of the first non-empty, valid candidate,
// falling back to fallback (or time.Local when fallback is nil).
func Resolve(fallback *time.Location, candidates ...string) *time.Location {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if loc, err := ParseTimezone(c); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.Local
	}
	return fallback
}

// StartOfDay returns local midnight of the day containing t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// AddDays moves a local midnight by n calendar days. The result is always a
// local midnight, so days spanning a DST change stay 23 or 25 hours long.
func AddDays(midnight time.Time, n int) time.Time {
	return time.Date(midnight.Year(), midnight.Month(), midnight.Day()+n, 0, 0, 0, 0, midnight.Location())
}
