// Package di provides dependency injection wiring and initialization.
//
// The Container holds every long-lived instance of the application and is the
// single source of truth handed to the HTTP server and cmd/server.
package di

import (
	"github.com/aristath/tracker/internal/database"
	"github.com/aristath/tracker/internal/modules/ledger"
	"github.com/aristath/tracker/internal/modules/monitor"
	"github.com/aristath/tracker/internal/modules/portfolio"
	"github.com/aristath/tracker/internal/modules/rebalancing"
	"github.com/aristath/tracker/internal/modules/trading"
	"github.com/aristath/tracker/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Storage. DB is nil for the file backend.
	DB            *database.DB
	LedgerStore   ledger.Store
	RegistryStore monitor.Store
	TradeRepo     trading.TradeRepositoryInterface

	// Brokerage
	PaperBroker *ledger.PaperBroker

	// Services
	TradingService  *trading.TradingService
	SnapshotService *portfolio.SnapshotService
	Planner         *rebalancing.Planner
	Executor        *rebalancing.Executor
	MonitorService  *monitor.Service

	// Background
	Scheduler *scheduler.Scheduler
}

// Close stops monitoring and releases the database.
// Returns false for drained when an in-flight cycle outlived the stop timeout.
func (c *Container) Close() (drained bool, err error) {
	drained = true
	if c.Scheduler != nil {
		drained = c.Scheduler.StopMonitoring()
	}
	if c.DB != nil {
		err = c.DB.Close()
	}
	return drained, err
}
