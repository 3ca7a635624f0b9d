package mem

import (
	"context"
	"log/slog"
	"sync"

	"bsid.es/despertador"
)

// ringHistory bounds the number of rings a RingLogger remembers.
const ringHistory = 64

// RingLogger is a ring handler that records and logs every alarm it is
// handed. It stands in for the audio and display side of the device.
type RingLogger struct {
	Logger *slog.Logger

	mu    sync.Mutex
	rings []despertador.Alarm
}

func NewRingLogger(logger *slog.Logger) *RingLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &RingLogger{Logger: logger}
}

func (l *RingLogger) Ring(ctx context.Context, alarm despertador.Alarm) {
	l.mu.Lock()
	if len(l.rings) == ringHistory {
		l.rings = append(l.rings[:0], l.rings[1:]...)
	}
	l.rings = append(l.rings, alarm)
	l.mu.Unlock()
	l.Logger.InfoContext(ctx, "ring", "id", alarm.ID, "time", alarm.Time, "message", alarm.Message)
}

// Rings returns the most recent alarms rung, oldest first.
func (l *RingLogger) Rings() []despertador.Alarm {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]despertador.Alarm, len(l.rings))
	copy(out, l.rings)
	return out
}
