package mem_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"bsid.es/despertador/mem"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func waitDone(tb testing.TB, ticker *mem.Ticker) {
	tb.Helper()
	select {
	case <-ticker.Done():
	case <-time.After(time.Second):
		tb.Fatal("ticker did not stop")
	}
}

func TestTickerRunsChecks(t *testing.T) {
	var n atomic.Int32
	reached := make(chan struct{})
	ticker := mem.NewTicker(func(ctx context.Context) error {
		if n.Add(1) == 3 {
			close(reached)
		}
		return nil
	})
	ticker.Interval = 5 * time.Millisecond
	ticker.Logger = discard

	if err := ticker.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-reached:
	case <-time.After(time.Second):
		t.Fatalf("wrong number of checks\ngot:  %d\nwant: >= 3", n.Load())
	}
	if err := ticker.Interrupt(); err != nil {
		t.Fatal(err)
	}
	waitDone(t, ticker)
}

func TestTickerContinuesAfterError(t *testing.T) {
	var n atomic.Int32
	reached := make(chan struct{})
	ticker := mem.NewTicker(func(ctx context.Context) error {
		if n.Add(1) == 2 {
			close(reached)
		}
		return errors.New("not initialized")
	})
	ticker.Interval = 5 * time.Millisecond
	ticker.Logger = discard

	ticker.Run(context.Background())
	defer waitDone(t, ticker)
	defer ticker.Interrupt()

	select {
	case <-reached:
	case <-time.After(time.Second):
		t.Fatal("ticker stopped after a failed check")
	}
}

func TestTickerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := mem.NewTicker(func(ctx context.Context) error { return nil })
	ticker.Interval = time.Hour
	ticker.Logger = discard

	ticker.Run(ctx)
	cancel()
	waitDone(t, ticker)
}

func TestTickerWaitsForBoundary(t *testing.T) {
	var n atomic.Int32
	ticker := mem.NewTicker(func(ctx context.Context) error {
		n.Add(1)
		return nil
	})
	ticker.Interval = time.Minute
	ticker.Logger = discard
	// One second after a minute boundary: the first check is 59s away.
	ticker.Now = func() time.Time {
		return time.Date(2024, time.January, 1, 7, 30, 1, 0, time.UTC)
	}

	ticker.Run(context.Background())
	time.Sleep(20 * time.Millisecond)
	ticker.Interrupt()
	waitDone(t, ticker)

	if got := n.Load(); got != 0 {
		t.Errorf("wrong number of checks\ngot:  %d\nwant: 0", got)
	}
}
