// Package utils holds small helpers shared by services.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultSlowThreshold is when a timed operation is logged as slow
const DefaultSlowThreshold = 10 * time.Second

// Timer measures how long an operation takes and logs it
type Timer struct {
	start time.Time
	name  string
	slow  time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

// NewTimer starts a timer for the named operation
func NewTimer(name string, log zerolog.Logger) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
		slow:  DefaultSlowThreshold,
		log:   log,
		now:   time.Now,
	}
}

// WithSlowThreshold changes the duration above which Stop warns
func (t *Timer) WithSlowThreshold(d time.Duration) *Timer {
	t.slow = d
	return t
}

// Stop logs the elapsed time at debug, or at warn when it exceeded the slow threshold
func (t *Timer) Stop() time.Duration {
	duration := t.now().Sub(t.start)

	if t.slow > 0 && duration > t.slow {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Dur("threshold", t.slow).
			Msg("Slow operation detected")
		return duration
	}

	t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Msg("Operation completed")

	return duration
}

// OperationTimer provides a defer-friendly way to measure operation duration
//
// Usage:
//
//	func MyFunction() {
//	    defer utils.OperationTimer("my_function", log)()
//	}
func OperationTimer(operation string, log zerolog.Logger) func() {
	t := NewTimer(operation, log)
	return func() { t.Stop() }
}
