package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidTimezone means the zone name is not a recognized IANA identifier.
	ErrInvalidTimezone = errors.New("schedule: unrecognized timezone")

	// ErrTimeInPast rejects instants at or before "now".
	ErrTimeInPast = errors.New("schedule: scheduled time must be in the future")
)

// localLayouts are the naive wall-clock formats accepted from the schedule
// form (HTML datetime-local, with and without seconds).
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ToUTC converts a naive local wall-clock string in the named IANA zone to
// the UTC instant it denotes. The offset is resolved from the zone's rules
// at that calendar moment, so DST is handled per date, not as a constant:
// a zone at UTC+5 yields local minus five hours.
//
// Tie-breaks at DST transitions follow the zone-rule resolution: a local
// time inside a spring-forward gap converts with the offset in force
// immediately after the gap (the instant lands just before the transition),
// and an ambiguous fall-back time takes its earlier occurrence.
func ToUTC(localDateTime, zoneName string) (time.Time, error) {
	name := strings.TrimSpace(zoneName)
	// LoadLocation("") silently means UTC and "Local" depends on the host;
	// neither is an explicit choice the operator made.
	if name == "" || name == "Local" {
		return time.Time{}, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, zoneName)
	}

	in := strings.TrimSpace(localDateTime)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, in, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("schedule: invalid local datetime %q", localDateTime)
}

// ValidateFuture fails unless instant is strictly after now.
func ValidateFuture(instant, now time.Time) error {
	if !instant.After(now) {
		return ErrTimeInPast
	}
	return nil
}

// InZone renders a stored UTC instant in the named zone for display.
func InZone(instant time.Time, zoneName string) (time.Time, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(zoneName))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, zoneName)
	}
	return instant.In(loc), nil
}
