package scheduler

import (
	"fmt"

	"github.com/aristath/tracker/internal/modules/monitor"
)

// PositionChecker runs one monitoring pass
type PositionChecker interface {
	CheckAllPositions() monitor.CycleReport
}

// MonitorJob checks every watched position and executes triggered exits
type MonitorJob struct {
	checker PositionChecker
}

// NewMonitorJob creates the monitoring job
func NewMonitorJob(checker PositionChecker) *MonitorJob {
	return &MonitorJob{checker: checker}
}

// Name returns the job name
func (j *MonitorJob) Name() string {
	return "position_monitor"
}

// Run executes one monitoring cycle.
// Per-symbol failures are already in the report; Run fails when nothing
// could be checked at all or when the registry could not be saved.
func (j *MonitorJob) Run() error {
	report := j.checker.CheckAllPositions()
	if report.PersistError != "" {
		return fmt.Errorf("monitoring cycle could not save the watch registry: %s", report.PersistError)
	}
	if report.Checked == 0 && len(report.Failures) > 0 {
		return fmt.Errorf("all %d position checks failed", len(report.Failures))
	}
	return nil
}
