// Package scheduler runs the position monitor on a fixed interval.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned by StartMonitoring when monitoring is active
var ErrAlreadyRunning = errors.New("monitoring already running")

// DefaultStopTimeout bounds how long StopMonitoring waits for an in-flight cycle
const DefaultStopTimeout = time.Second

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs one job periodically in the background.
// At most one cron instance exists at a time and a cycle never overlaps the previous one.
type Scheduler struct {
	mu          sync.Mutex
	job         Job
	cron        *cron.Cron
	entry       cron.EntryID
	interval    time.Duration
	stopTimeout time.Duration
	log         zerolog.Logger
}

// New creates a stopped scheduler for job
func New(job Job, stopTimeout time.Duration, log zerolog.Logger) *Scheduler {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Scheduler{
		job:         job,
		stopTimeout: stopTimeout,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

// StartMonitoring runs the job every interval, first after one full interval.
// Returns ErrAlreadyRunning without starting a second worker when already active.
func (s *Scheduler) StartMonitoring(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid monitoring interval %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		s.log.Warn().Dur("interval", s.interval).Msg("Monitoring is already running")
		return ErrAlreadyRunning
	}

	logger := newCronLogger(s.log)
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s.entry = c.Schedule(fixedInterval(interval), cron.FuncJob(s.runJob))
	c.Start()

	s.cron = c
	s.interval = interval

	s.log.Info().
		Str("job", s.job.Name()).
		Dur("interval", interval).
		Msg("Monitoring started")

	return nil
}

// StopMonitoring stops scheduling and waits up to the stop timeout for a running
// cycle to finish. Returns false when the wait timed out. Stopping an idle
// scheduler is a no-op that returns true.
func (s *Scheduler) StopMonitoring() bool {
	s.mu.Lock()
	c := s.cron
	entry := s.entry
	s.cron = nil
	s.interval = 0
	s.mu.Unlock()

	if c == nil {
		return true
	}

	c.Remove(entry)
	ctx := c.Stop()

	select {
	case <-ctx.Done():
		s.log.Info().Str("job", s.job.Name()).Msg("Monitoring stopped")
		return true
	case <-time.After(s.stopTimeout):
		s.log.Warn().
			Str("job", s.job.Name()).
			Dur("timeout", s.stopTimeout).
			Msg("Monitoring stopped, in-flight cycle still running")
		return false
	}
}

// IsRunning reports whether monitoring is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Interval returns the active interval, zero when stopped
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// NextRun returns when the job runs next, zero when stopped
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow executes the job immediately (outside schedule)
func (s *Scheduler) RunNow() error {
	s.log.Info().Str("job", s.job.Name()).Msg("Running job immediately")
	return s.job.Run()
}

func (s *Scheduler) runJob() {
	s.log.Debug().Str("job", s.job.Name()).Msg("Running job")

	if err := s.job.Run(); err != nil {
		s.log.Error().
			Err(err).
			Str("job", s.job.Name()).
			Msg("Job failed")
		return
	}
	s.log.Debug().Str("job", s.job.Name()).Msg("Job completed")
}

// fixedInterval fires every d after the previous activation.
// cron.Every truncates to whole seconds.
type fixedInterval time.Duration

func (f fixedInterval) Next(t time.Time) time.Time {
	return t.Add(time.Duration(f))
}
