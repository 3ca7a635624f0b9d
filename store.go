package despertador

// Store is a fixed-capacity, ordered collection of alarms. It owns its alarm
// buffer and is never resized. Store is not safe for concurrent use; Manager
// serializes access to it.
//
// Ids are positional: deleting an alarm renumbers every alarm after it to its
// new 1-based index, so live ids always form the range 1..Count().
type Store struct {
	alarms   []Alarm // len(alarms) == capacity
	count    int
	nextID   int
	enabled  bool
	capacity int
}

// NewStore allocates a store holding at most capacity alarms.
func NewStore(capacity int) (*Store, error) {
	if capacity < 0 || capacity > MaxAlarms {
		return nil, Errorf(ErrAllocation, "capacity %d outside 0..%d", capacity, MaxAlarms)
	}
	return &Store{
		alarms:   make([]Alarm, capacity),
		nextID:   1,
		capacity: capacity,
	}, nil
}

// Clone returns a deep copy of s.
func (s *Store) Clone() *Store {
	c := *s
	c.alarms = make([]Alarm, len(s.alarms))
	copy(c.alarms, s.alarms)
	return &c
}

func (s *Store) Count() int    { return s.count }
func (s *Store) Capacity() int { return s.capacity }
func (s *Store) NextID() int   { return s.nextID }

// Persisted reports whether the store was loaded from, or saved to, a
// persisted configuration.
func (s *Store) Persisted() bool { return s.enabled }

// List returns a copy of the live alarms in store order.
func (s *Store) List() []Alarm {
	out := make([]Alarm, s.count)
	copy(out, s.alarms[:s.count])
	return out
}

// Find returns the alarm with the given id.
func (s *Store) Find(id int) (Alarm, bool) {
	if i := s.index(id); i >= 0 {
		return s.alarms[i], true
	}
	return Alarm{}, false
}

// Create appends a new enabled alarm and returns its id. Text longer than
// MaxTimeLen or MaxMessageLen is truncated and days keeps only the seven
// weekday bits.
func (s *Store) Create(time, message string, repeat bool, days Weekdays) (int, error) {
	if s.count >= s.capacity {
		return 0, Errorf(ErrCapacity, "store is full (%d alarms)", s.capacity)
	}
	a := Alarm{
		ID:         s.nextID,
		Time:       truncTime(time),
		Message:    truncMessage(message),
		Enabled:    true,
		Repeat:     repeat,
		DaysOfWeek: days & EveryDay,
	}
	s.alarms[s.count] = a
	s.nextID++
	s.count++
	return a.ID, nil
}

// Delete removes the alarm with the given id, shifting later alarms down and
// renumbering them. It reports whether the id was found.
func (s *Store) Delete(id int) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	for ; i < s.count-1; i++ {
		s.alarms[i] = s.alarms[i+1]
		s.alarms[i].ID = i + 1
	}
	s.alarms[s.count-1] = Alarm{}
	s.count--
	s.nextID--
	return true
}

// Update describes a full modification. Nil Time or Message keep the current
// value; the remaining fields are always written.
type Update struct {
	Time    *string
	Message *string
	Enabled bool
	Repeat  bool
	Days    Weekdays
}

// Modify applies u to the alarm with the given id.
func (s *Store) Modify(id int, u Update) bool {
	return s.apply(id, func(a *Alarm) {
		if u.Time != nil {
			a.Time = truncTime(*u.Time)
		}
		if u.Message != nil {
			a.Message = truncMessage(*u.Message)
		}
		a.Enabled = u.Enabled
		a.Repeat = u.Repeat
		a.DaysOfWeek = u.Days & EveryDay
	})
}

func (s *Store) ModifyTime(id int, time string) bool {
	return s.apply(id, func(a *Alarm) { a.Time = truncTime(time) })
}

func (s *Store) ModifyMessage(id int, message string) bool {
	return s.apply(id, func(a *Alarm) { a.Message = truncMessage(message) })
}

func (s *Store) SetEnabled(id int, enabled bool) bool {
	return s.apply(id, func(a *Alarm) { a.Enabled = enabled })
}

func (s *Store) ModifyRepeat(id int, repeat bool, days Weekdays) bool {
	return s.apply(id, func(a *Alarm) {
		a.Repeat = repeat
		a.DaysOfWeek = days & EveryDay
	})
}

func (s *Store) apply(id int, f func(*Alarm)) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	f(&s.alarms[i])
	return true
}

func (s *Store) index(id int) int {
	for i := 0; i < s.count; i++ {
		if s.alarms[i].ID == id {
			return i
		}
	}
	return -1
}
