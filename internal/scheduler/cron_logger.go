package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// cronLogger routes cron's internal logging through zerolog.
// cron's Info messages are per-tick chatter, so they go to debug.
type cronLogger struct {
	log zerolog.Logger
}

var _ cron.Logger = cronLogger{}

func newCronLogger(log zerolog.Logger) cronLogger {
	return cronLogger{log: log.With().Str("source", "cron").Logger()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
