package despertador

import "time"

// Match returns the alarms that ring at now, in store order. The "HH:MM"
// string and the weekday both come from the single reading now, so one pass
// never straddles two minutes.
func (s *Store) Match(now time.Time) []Alarm {
	clock, day := ClockTime(now), now.Weekday()
	var fired []Alarm
	for _, a := range s.alarms[:s.count] {
		if a.RingsAt(clock, day) {
			fired = append(fired, a)
		}
	}
	return fired
}
