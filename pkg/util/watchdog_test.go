package util

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchdog(t *testing.T) {
	t.Run("fires after period", func(t *testing.T) {
		fired := make(chan struct{}, 1)
		w := NewWatchdog(50*time.Millisecond, func() {
			select {
			case fired <- struct{}{}:
			default:
			}
		})
		defer w.Stop()

		select {
		case <-fired:
			// Expected
		case <-time.After(500 * time.Millisecond):
			t.Fatal("watchdog did not fire within expected time")
		}
	})

	t.Run("reset prevents firing", func(t *testing.T) {
		var count atomic.Int32
		w := NewWatchdog(80*time.Millisecond, func() { count.Add(1) })
		defer w.Stop()

		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for range 8 {
			<-ticker.C
			w.Reset()
		}

		if got := count.Load(); got != 0 {
			t.Fatalf("watchdog fired %d times while being reset", got)
		}
	})

	t.Run("re-arms after firing", func(t *testing.T) {
		var count atomic.Int32
		w := NewWatchdog(20*time.Millisecond, func() { count.Add(1) })
		defer w.Stop()

		deadline := time.Now().Add(time.Second)
		for count.Load() < 3 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		if got := count.Load(); got < 3 {
			t.Fatalf("expected repeated firing during a stall, got %d", got)
		}
	})

	t.Run("stop prevents firing", func(t *testing.T) {
		var count atomic.Int32
		w := NewWatchdog(30*time.Millisecond, func() { count.Add(1) })
		w.Stop()

		time.Sleep(100 * time.Millisecond)
		if got := count.Load(); got != 0 {
			t.Fatalf("watchdog fired %d times after stop", got)
		}
	})

	t.Run("reset after stop is no-op", func(t *testing.T) {
		var count atomic.Int32
		w := NewWatchdog(30*time.Millisecond, func() { count.Add(1) })
		w.Stop()

		// Should not panic
		w.Reset()

		time.Sleep(100 * time.Millisecond)
		if got := count.Load(); got != 0 {
			t.Fatalf("watchdog fired %d times after stop and reset", got)
		}
	})

	t.Run("tiny period fires without racing construction", func(t *testing.T) {
		for range 200 {
			fired := make(chan struct{}, 1)
			w := NewWatchdog(time.Nanosecond, func() {
				select {
				case fired <- struct{}{}:
				default:
				}
			})
			select {
			case <-fired:
			case <-time.After(time.Second):
				w.Stop()
				t.Fatal("watchdog with a tiny period did not fire")
			}
			w.Stop()
		}
	})

	t.Run("non-positive period disables", func(t *testing.T) {
		w := NewWatchdog(0, func() { t.Error("disabled watchdog fired") })
		w.Reset()
		w.Stop()
		w.Stop()
	})
}
