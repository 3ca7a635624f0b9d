package mem

import (
	"context"
	"log/slog"
	"time"
)

// CheckFunc is run by a Ticker on every interval boundary.
type CheckFunc func(ctx context.Context) error

// Ticker calls a CheckFunc at each wall-clock multiple of Interval, so with
// the default of one minute every check lands in a distinct "HH:MM".
type Ticker struct {
	Now      func() time.Time
	Interval time.Duration
	Logger   *slog.Logger

	check  CheckFunc
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTicker(check CheckFunc) *Ticker {
	return &Ticker{
		Now:      time.Now,
		Interval: time.Minute,
		Logger:   slog.Default(),
		check:    check,
		cancel:   func() {},
		done:     make(chan struct{}),
	}
}

func (t *Ticker) Run(ctx context.Context) error {
	ctx, t.cancel = context.WithCancel(ctx)
	go t.run(ctx)
	return nil
}

func (t *Ticker) Interrupt() error {
	t.cancel()
	return nil
}

// Done is closed once the loop started by Run has exited.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

// next returns the first interval boundary strictly after now.
func (t *Ticker) next(now time.Time) time.Time {
	return now.Truncate(t.Interval).Add(t.Interval)
}

func (t *Ticker) run(ctx context.Context) {
	defer close(t.done)

	at := t.next(t.Now())
	timer := time.NewTimer(at.Sub(t.Now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done(): // Operation was canceled.
			return

		case <-timer.C:
			now := t.Now()
			if now.Before(at) {
				// Time drift. Sleep again.
				timer.Reset(at.Sub(now))
				continue
			}

			if err := t.check(ctx); err != nil {
				t.Logger.Error("periodic check", "error", err)
			}

			// Skip boundaries missed while the check ran or the host slept.
			at = t.next(t.Now())
			timer.Reset(at.Sub(t.Now()))
		}
	}
}
