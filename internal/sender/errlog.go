package sender

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

const errorLogCacheSize = 64

// errorLog rate limits repeated identical error messages. The first
// occurrence inside a window is logged; later ones are counted and reported
// once when the window expires.
type errorLog struct {
	logger *zap.Logger
	seen   *expirable.LRU[string, *atomic.Int64]
}

// newErrorLog creates an errorLog. A non-positive window logs every error.
func newErrorLog(logger *zap.Logger, window time.Duration) *errorLog {
	l := &errorLog{logger: logger}
	if window > 0 {
		l.seen = expirable.NewLRU[string, *atomic.Int64](errorLogCacheSize, l.evicted, window)
	}
	return l
}

func (l *errorLog) evicted(msg string, suppressed *atomic.Int64) {
	if n := suppressed.Load(); n > 0 {
		l.logger.Warn("Suppressed repeated send errors",
			zap.String("error", msg),
			zap.Int64("count", n),
		)
	}
}

// Log records err and reports whether it was written to the log.
func (l *errorLog) Log(err error, fields ...zap.Field) bool {
	if l.seen != nil {
		msg := err.Error()
		if suppressed, ok := l.seen.Peek(msg); ok {
			suppressed.Add(1)
			return false
		}
		// An expired entry may linger until the cleanup pass; removing it
		// reports its count before the key is reused.
		l.seen.Remove(msg)
		l.seen.Add(msg, new(atomic.Int64))
	}
	l.logger.Warn("Send failed, continuing", append(fields, zap.Error(err))...)
	return true
}

// Flush reports every pending suppressed count.
func (l *errorLog) Flush() {
	if l.seen != nil {
		l.seen.Purge()
	}
}
