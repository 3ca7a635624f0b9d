package despertador

import (
	"strconv"
	"strings"
	"time"
)

// Weekdays is a 7-bit mask; bit i set means the alarm rings on weekday i,
// with 0 being Sunday (the numbering of time.Weekday).
type Weekdays uint8

const (
	Sunday Weekdays = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday

	NoDays   Weekdays = 0
	WorkDays          = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekend           = Saturday | Sunday
	EveryDay          = WorkDays | Weekend
)

// DayOf returns the mask bit for d.
func DayOf(d time.Weekday) Weekdays {
	return 1 << uint(d)
}

// Has reports whether d is set in the mask.
func (w Weekdays) Has(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && w&DayOf(d) != 0
}

// String renders the mask the way the device's list screen does.
func (w Weekdays) String() string {
	switch w & EveryDay {
	case EveryDay:
		return "Every day"
	case NoDays:
		return "Once"
	}
	const letters = "SMTWTFS"
	var b strings.Builder
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !w.Has(d) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(letters[d])
	}
	return b.String()
}

var dayNames = map[string]Weekdays{
	"sun": Sunday, "sunday": Sunday,
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
	"sat": Saturday, "saturday": Saturday,

	"daily":    EveryDay,
	"everyday": EveryDay,
	"weekdays": WorkDays,
	"workdays": WorkDays,
	"weekend":  Weekend,
	"once":     NoDays,
	"none":     NoDays,
}

// ParseWeekdays accepts a number (decimal, 0b or 0x prefixed) or a comma
// separated list of day names and aliases such as "mon,wed" or "weekdays".
func ParseWeekdays(s string) (Weekdays, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoDays, nil
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil {
		if Weekdays(n)&^EveryDay != 0 {
			return 0, Errorf(ErrInvalid, "days mask %s uses more than 7 bits", s)
		}
		return Weekdays(n), nil
	}
	var w Weekdays
	for _, name := range strings.Split(s, ",") {
		d, ok := dayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, Errorf(ErrInvalid, "unknown day %q", name)
		}
		w |= d
	}
	return w, nil
}
