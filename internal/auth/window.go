package auth

import (
	"errors"
	"fmt"
	"time"
)

// Clock is a wall-clock time of day expressed as minutes since midnight.
// Access windows compare Clocks only; no date is involved.
type Clock int

// ErrBadClock is returned for strings that are not a valid "HH:MM" time
// of day.
var ErrBadClock = errors.New("invalid time of day, want HH:MM")

// ParseClock parses an "HH:MM" string into a Clock. Parsing is lenient
// about a single-digit hour ("9:00" reads as 09:00) but rejects
// out-of-range values and anything that is not a time of day.
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrBadClock
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// ClockOf extracts the time of day from t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// String renders the clock back into "HH:MM" form.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Allowed reports whether now falls inside the [start, end] window,
// inclusive on both ends. A window whose start is later than its end
// wraps past midnight: 22:00-06:00 admits 23:00 and 05:30 but not 12:00.
// Callers with no configured window must not call this at all; absence
// of a window means unconditionally allowed.
func Allowed(now, start, end Clock) bool {
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}
