package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/tracker/internal/modules/monitor"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// RunState reports whether periodic monitoring is active
type RunState interface {
	IsRunning() bool
}

// PositionLister lists monitored positions
type PositionLister interface {
	ListPositions() []monitor.WatchConfig
}

// CashReader reads the available cash balance
type CashReader interface {
	GetCash() float64
}

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	runState    RunState
	positions   PositionLister
	cash        CashReader
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	runState RunState,
	positions PositionLister,
	cash CashReader,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		runState:    runState,
		positions:   positions,
		cash:        cash,
	}
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	MonitorRunning   bool    `json:"monitor_running"`
	MonitoredSymbols int     `json:"monitored_symbols"`
	Cash             float64 `json:"cash"`
	CPUPercent       float64 `json:"cpu_percent"`
	MemoryPercent    float64 `json:"memory_percent"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	DataDir          string  `json:"data_dir"`
}

// HandleSystemStatus returns process and monitor status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPct, memPct := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		DataDir:       h.dataDir,
	}
	if h.runState != nil {
		response.MonitorRunning = h.runState.IsRunning()
	}
	if h.positions != nil {
		response.MonitoredSymbols = len(h.positions.ListPositions())
	}
	if h.cash != nil {
		response.Cash = h.cash.GetCash()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
