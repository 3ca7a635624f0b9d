package despertador

import (
	"context"
	"log/slog"
	"sync"
	"unicode/utf8"
)

// RingFunc is called once for every alarm that matches in a check pass.
type RingFunc func(ctx context.Context, alarm Alarm)

// Manager is the process-wide owner of the alarm store. Every mutation is
// persisted before it returns; a mutation whose save fails is not applied.
// A Manager is safe for concurrent use.
type Manager struct {
	Clock  Clock
	Logger *slog.Logger

	settings Settings

	mu    sync.Mutex
	store *Store
	ring  RingFunc
}

// NewManager returns an uninitialized manager backed by settings. Call Init
// before anything else.
func NewManager(settings Settings) *Manager {
	return &Manager{
		Clock:    SystemClock{},
		Logger:   slog.Default(),
		settings: settings,
	}
}

// RegisterFunc sets the ring callback. A nil f disables ringing; matching
// still happens and is logged.
func (m *Manager) RegisterFunc(f RingFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ring = f
}

// Init loads persisted alarms, or starts empty. It fails only if the store
// can't be allocated, or if the manager is already initialized.
func (m *Manager) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store != nil {
		return Errorf(ErrInvalid, "alarm store already initialized")
	}
	s, err := Load(m.settings, m.Logger)
	if err != nil {
		m.Logger.Error("create alarm store", "error", err)
		return err
	}
	m.store = s
	m.Logger.Info("alarm store ready", "count", s.Count(), "capacity", s.Capacity())
	m.dump()
	return nil
}

// Close releases the store. Later calls fail with ErrNotInitialized until
// Init is called again.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = nil
	return nil
}

// PeriodicCheck runs one matcher pass against the current time and rings
// every matching alarm. Calling it twice in the same minute rings twice.
func (m *Manager) PeriodicCheck(ctx context.Context) error {
	m.mu.Lock()
	if m.store == nil {
		m.mu.Unlock()
		return errNotInitialized()
	}
	now := m.Clock.Now()
	fired := m.store.Match(now)
	ring := m.ring
	m.mu.Unlock()

	for _, a := range fired {
		m.Logger.Info("alarm ringing", "id", a.ID, "time", a.Time, "message", a.Message)
		if ring != nil {
			ring(ctx, a)
		}
	}
	return nil
}

// CreateAlarm adds an enabled alarm and returns its id.
func (m *Manager) CreateAlarm(time, message string, repeat bool, days Weekdays) (int, error) {
	m.warnTruncated(time, message)
	var id int
	err := m.mutate("create", func(s *Store) (err error) {
		id, err = s.Create(time, message, repeat, days)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DeleteAlarm removes an alarm. Alarms after it are renumbered.
func (m *Manager) DeleteAlarm(id int) error {
	return m.mutate("delete", found(id, func(s *Store) bool { return s.Delete(id) }))
}

// ModifyAlarm applies a full update to an alarm.
func (m *Manager) ModifyAlarm(id int, u Update) error {
	var t, msg string
	if u.Time != nil {
		t = *u.Time
	}
	if u.Message != nil {
		msg = *u.Message
	}
	m.warnTruncated(t, msg)
	return m.mutate("modify", found(id, func(s *Store) bool { return s.Modify(id, u) }))
}

func (m *Manager) ModifyTime(id int, time string) error {
	m.warnTruncated(time, "")
	return m.mutate("modify time", found(id, func(s *Store) bool { return s.ModifyTime(id, time) }))
}

func (m *Manager) ModifyMessage(id int, message string) error {
	m.warnTruncated("", message)
	return m.mutate("modify message", found(id, func(s *Store) bool { return s.ModifyMessage(id, message) }))
}

func (m *Manager) ModifyRepeat(id int, repeat bool, days Weekdays) error {
	return m.mutate("modify repeat", found(id, func(s *Store) bool { return s.ModifyRepeat(id, repeat, days) }))
}

// SetEnabled arms or disarms an alarm.
func (m *Manager) SetEnabled(id int, enabled bool) error {
	return m.mutate("set enabled", found(id, func(s *Store) bool { return s.SetEnabled(id, enabled) }))
}

// Alarm returns a snapshot of one alarm.
func (m *Manager) Alarm(id int) (Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return Alarm{}, errNotInitialized()
	}
	a, ok := m.store.Find(id)
	if !ok {
		return Alarm{}, errNotFound(id)
	}
	return a, nil
}

// Count returns the number of live alarms.
func (m *Manager) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return 0, errNotInitialized()
	}
	return m.store.Count(), nil
}

// List returns a snapshot of all alarms in store order.
func (m *Manager) List() ([]Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		return nil, errNotInitialized()
	}
	return m.store.List(), nil
}

// mutate applies f to a copy of the store, persists the copy and only then
// makes it current.
func (m *Manager) mutate(op string, f func(*Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.Logger.Warn("alarm store used before init", "op", op)
		return errNotInitialized()
	}
	next := m.store.Clone()
	if err := f(next); err != nil {
		m.Logger.Info("alarm "+op+" rejected", "error", err)
		return err
	}
	if err := Save(m.settings, next); err != nil {
		m.Logger.Error("alarm "+op+" not saved", "error", err)
		return err
	}
	m.store = next
	m.dump()
	return nil
}

func found(id int, f func(*Store) bool) func(*Store) error {
	return func(s *Store) error {
		if !f(s) {
			return errNotFound(id)
		}
		return nil
	}
}

func (m *Manager) warnTruncated(time, message string) {
	if n := utf8.RuneCountInString(time); n > MaxTimeLen {
		m.Logger.Warn("alarm time truncated", "time", time, "max", MaxTimeLen)
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLen {
		m.Logger.Warn("alarm message truncated", "length", n, "max", MaxMessageLen)
	}
}

// dump logs the whole store at debug level. Callers hold m.mu.
func (m *Manager) dump() {
	if !m.Logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, a := range m.store.List() {
		m.Logger.Debug("alarm",
			"id", a.ID,
			"time", a.Time,
			"enabled", a.Enabled,
			"repeat", a.Repeat,
			"days", a.DaysOfWeek.String(),
			"message", a.Message,
		)
	}
	m.Logger.Debug("alarm store", "count", m.store.Count(), "next_id", m.store.NextID())
}
