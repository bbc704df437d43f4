package util

import (
	"sync"
	"time"
)

// Watchdog calls a function whenever Reset has not been called for a full
// period. After firing it re-arms itself, so a persistent stall is reported
// once per period rather than once in total.
//
// Example usage:
//
//	wd := NewWatchdog(5*time.Second, func() {
//	    logger.Warn("no progress")
//	})
//	defer wd.Stop()
//
//	for item := range work {
//	    process(item)
//	    wd.Reset()
//	}
type Watchdog struct {
	period  time.Duration
	onStall func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewWatchdog creates a running watchdog. A non-positive period yields a
// watchdog that never fires.
func NewWatchdog(period time.Duration, onStall func()) *Watchdog {
	w := &Watchdog{period: period, onStall: onStall}
	if period <= 0 {
		w.stopped = true
		return w
	}
	// Held across AfterFunc so fire cannot observe a nil timer.
	w.mu.Lock()
	w.timer = time.AfterFunc(period, w.fire)
	w.mu.Unlock()
	return w
}

// Reset postpones the next firing by a full period.
// If the watchdog has been stopped, this is a no-op.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.timer.Reset(w.period)
}

// Stop prevents any further firing. It's safe to call Stop multiple times.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.stopped {
		w.timer.Stop()
		w.stopped = true
	}
}

func (w *Watchdog) fire() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.timer.Reset(w.period)
	w.mu.Unlock()

	w.onStall()
}
