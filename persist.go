package despertador

import (
	"encoding/json"
	"log/slog"
	"strconv"
)

// Settings is a namespaced key-value store, the shape of the device's
// non-volatile storage. Values are strings; integers are stored in decimal
// and booleans as "true" or "false".
type Settings interface {
	// Get returns the value stored under key, and whether it exists.
	Get(namespace, key string) (string, bool, error)

	// Set writes all values atomically: either every key is stored or none.
	Set(namespace string, values map[string]string) error
}

// Persisted layout.
const (
	Namespace = "AlarmManager"

	KeyEnable    = "enable"
	KeyCapacity  = "capacity"
	KeyCount     = "count"
	KeyNextID    = "next_id"
	KeyAlarmInfo = "AlarmInfo"
)

// alarmInfo is the document stored under KeyAlarmInfo.
type alarmInfo struct {
	Alarm []Alarm `json:"Alarm"`
}

// Load builds a store from settings. Missing configuration yields an empty
// store with capacity MaxAlarms. Corrupt data is logged and replaced with
// defaults; the only error returned is ErrAllocation. Loaded alarms are
// numbered 1..n by position and the persisted count is only checked against
// the alarm list.
func Load(settings Settings, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := reader{settings: settings, logger: logger}

	if !r.getBool(KeyEnable, false) {
		logger.Info("no persisted alarms, using defaults", "capacity", MaxAlarms)
		return NewStore(MaxAlarms)
	}

	capacity := r.getInt(KeyCapacity, MaxAlarms)
	if capacity < 0 || capacity > MaxAlarms {
		logger.Warn("persisted capacity out of range, resetting",
			"capacity", capacity, "reset_to", MaxAlarms)
		capacity = MaxAlarms
		if err := settings.Set(Namespace, map[string]string{
			KeyCapacity: strconv.Itoa(capacity),
		}); err != nil {
			logger.Error("persist corrected capacity", "error", err)
		}
	}

	s, err := NewStore(capacity)
	if err != nil {
		return nil, err
	}
	s.enabled = true

	data := r.getString(KeyAlarmInfo, "")
	if data == "" {
		return s, nil
	}
	alarms, err := decodeAlarms([]byte(data))
	if err != nil {
		logger.Warn("discarding persisted alarms", "error", err, "data", data)
		return s, nil
	}
	if len(alarms) > capacity {
		err := Errorf(ErrCorrupt, "alarm count exceeds capacity: %d > %d", len(alarms), capacity)
		logger.Warn("discarding persisted alarms", "error", err)
		return s, nil
	}

	if n := r.getInt(KeyCount, len(alarms)); n != len(alarms) {
		logger.Warn("persisted count disagrees with alarm list",
			"count", n, "alarms", len(alarms))
	}

	// Live ids are always 1..count.
	renumbered := false
	for i, a := range alarms {
		if a.ID != i+1 {
			renumbered = true
			a.ID = i + 1
		}
		s.alarms[i] = a
	}
	if renumbered {
		logger.Warn("persisted alarm ids renumbered", "count", len(alarms))
	}
	s.count = len(alarms)
	s.nextID = s.count + 1
	logger.Debug("loaded alarms", "count", s.count, "capacity", s.capacity)
	return s, nil
}

// Save writes every live alarm and the store bookkeeping in one atomic Set.
// Nothing is written if encoding fails.
func Save(settings Settings, s *Store) error {
	data, err := json.Marshal(alarmInfo{Alarm: s.List()})
	if err != nil {
		return Errorf(ErrInternal, "encode alarms: %v", err)
	}
	if err := settings.Set(Namespace, map[string]string{
		KeyAlarmInfo: string(data),
		KeyCount:     strconv.Itoa(s.count),
		KeyNextID:    strconv.Itoa(s.nextID),
		KeyEnable:    "true",
	}); err != nil {
		return Errorf(ErrInternal, "save alarms: %v", err)
	}
	s.enabled = true
	return nil
}

// decodeAlarms parses an AlarmInfo document field by field: a missing or
// mistyped field takes its default instead of failing the whole document.
func decodeAlarms(data []byte) ([]Alarm, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Errorf(ErrCorrupt, "parse alarm info: %v", err)
	}
	raw, ok := doc["Alarm"]
	if !ok {
		return nil, Errorf(ErrCorrupt, "alarm info has no Alarm array")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, Errorf(ErrCorrupt, "parse alarm array: %v", err)
	}

	alarms := make([]Alarm, len(items))
	for i, item := range items {
		var fields map[string]json.RawMessage
		_ = json.Unmarshal(item, &fields)

		a := Alarm{ID: i + 1, Enabled: true}
		var id, days float64
		if field(fields, "id", &id) {
			a.ID = int(id)
		}
		field(fields, "time", &a.Time)
		field(fields, "message", &a.Message)
		field(fields, "enabled", &a.Enabled)
		field(fields, "repeat", &a.Repeat)
		if field(fields, "days_of_week", &days) {
			a.DaysOfWeek = Weekdays(int(days)) & EveryDay
		}
		a.Time = truncTime(a.Time)
		a.Message = truncMessage(a.Message)
		alarms[i] = a
	}
	return alarms, nil
}

// field decodes fields[key] into dst, leaving dst untouched when the key is
// absent, null, or holds a value of another type.
func field[T any](fields map[string]json.RawMessage, key string, dst *T) bool {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}

type reader struct {
	settings Settings
	logger   *slog.Logger
}

func (r reader) getString(key, def string) string {
	v, ok, err := r.settings.Get(Namespace, key)
	if err != nil {
		r.logger.Warn("read setting", "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}
	return v
}

func (r reader) getInt(key string, def int) int {
	v := r.getString(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Reported as out of range by the caller's bounds check.
		r.logger.Warn("setting is not an integer", "key", key, "value", v)
		return -1
	}
	return n
}

func (r reader) getBool(key string, def bool) bool {
	v := r.getString(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.logger.Warn("setting is not a boolean", "key", key, "value", v)
		return def
	}
	return b
}
