package despertador

import (
	"time"
)

// ClockLayout is the "HH:MM" form alarms are stored and matched in.
const ClockLayout = "15:04"

// Clock is the device's wall clock. Implementations return local time; the
// matcher derives both the "HH:MM" string and the weekday from a single
// reading.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local clock of the host.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

var _ Clock = SystemClock{}

// ClockTime formats t as "HH:MM" in its own location.
func ClockTime(t time.Time) string {
	return t.Format(ClockLayout)
}

// ParseClockTime validates s as a 24-hour "HH:MM" time and returns it in
// canonical zero-padded form, so "7:05" becomes "07:05".
func ParseClockTime(s string) (string, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", Errorf(ErrInvalid, "time %q is not HH:MM", s)
	}
	return ClockTime(t), nil
}
