package despertador

import (
	"time"
	"unicode/utf8"

	"github.com/teambition/rrule-go"
)

const (
	// MaxAlarms is the hard upper bound on store capacity.
	MaxAlarms = 10

	// MaxTimeLen and MaxMessageLen bound the text fields, in characters.
	MaxTimeLen    = 5
	MaxMessageLen = 49
)

// Alarm is one scheduled time-of-day trigger. The JSON field names are the
// persisted wire format shared with companion tooling.
type Alarm struct {
	ID         int      `json:"id" yaml:"id"`
	Time       string   `json:"time" yaml:"time"`
	Message    string   `json:"message" yaml:"message"`
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Repeat     bool     `json:"repeat" yaml:"repeat"`
	DaysOfWeek Weekdays `json:"days_of_week" yaml:"days_of_week"`
}

// RingsAt reports whether the alarm fires at the given "HH:MM" on day.
func (a Alarm) RingsAt(clock string, day time.Weekday) bool {
	if !a.Enabled || a.Time != clock {
		return false
	}
	return a.Repeat || a.DaysOfWeek.Has(day)
}

var ruleDays = [...]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// Rule returns the alarm's schedule as a recurrence rule starting on the day
// of dtstart, in its location. It returns nil if the alarm never rings.
func (a Alarm) Rule(dtstart time.Time) *rrule.RRule {
	if !a.Enabled {
		return nil
	}
	t, err := time.Parse(ClockLayout, a.Time)
	if err != nil || ClockTime(t) != a.Time {
		// The matcher compares strings, so a non-canonical time never fires.
		return nil
	}

	y, m, d := dtstart.Date()
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Dtstart:  time.Date(y, m, d, 0, 0, 0, 0, dtstart.Location()),
		Byhour:   []int{t.Hour()},
		Byminute: []int{t.Minute()},
		Bysecond: []int{0},
	}
	if days := a.DaysOfWeek & EveryDay; !a.Repeat && days != EveryDay {
		if days == NoDays {
			return nil
		}
		opt.Freq = rrule.WEEKLY
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if days.Has(wd) {
				opt.Byweekday = append(opt.Byweekday, ruleDays[wd])
			}
		}
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}
	return r
}

// Next returns the first instant strictly after from at which the alarm
// rings, or the zero time if it never will.
func (a Alarm) Next(from time.Time) time.Time {
	r := a.Rule(from)
	if r == nil {
		return time.Time{}
	}
	return r.After(from, false)
}

// Truncate cuts s to at most n characters without splitting a multi-byte
// character. It reports whether anything was dropped.
func Truncate(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

func truncTime(s string) string {
	s, _ = Truncate(s, MaxTimeLen)
	return s
}

func truncMessage(s string) string {
	s, _ = Truncate(s, MaxMessageLen)
	return s
}
