package di

import (
	"github.com/aristath/tracker/internal/config"
	"github.com/aristath/tracker/internal/modules/ledger"
	"github.com/aristath/tracker/internal/modules/monitor"
	"github.com/aristath/tracker/internal/modules/portfolio"
	"github.com/aristath/tracker/internal/modules/rebalancing"
	"github.com/aristath/tracker/internal/modules/trading"
	"github.com/aristath/tracker/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices builds the broker and every service on top of the stores
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	broker := ledger.NewPaperBroker(container.LedgerStore, cfg.StartingCash, log)
	container.PaperBroker = broker

	// Every order goes through the trading service so it is validated and recorded
	container.TradingService = trading.NewTradingService(broker, container.TradeRepo, "paper", log)

	container.SnapshotService = portfolio.NewSnapshotService(broker, broker, log)

	container.Planner = rebalancing.NewPlanner(cfg.DustThreshold, log)
	container.Executor = rebalancing.NewExecutor(
		container.TradingService.TraderFor(trading.SourceRebalance), log)

	container.MonitorService = monitor.NewService(
		broker,
		container.TradingService.TraderFor(trading.SourceMonitor),
		container.RegistryStore,
		log,
	)

	container.Scheduler = scheduler.New(
		scheduler.NewMonitorJob(container.MonitorService), cfg.StopTimeout, log)
	container.MonitorService.SetRunState(container.Scheduler)
}
