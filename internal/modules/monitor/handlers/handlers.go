// Package handlers provides HTTP handlers for the position monitor.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/aristath/tracker/internal/modules/monitor"
	"github.com/aristath/tracker/internal/scheduler"
	"github.com/rs/zerolog"
)

// Controller starts and stops periodic monitoring
type Controller interface {
	StartMonitoring(interval time.Duration) error
	StopMonitoring() bool
	IsRunning() bool
	Interval() time.Duration
	NextRun() time.Time
}

// MaxIntervalMinutes is the longest accepted monitoring interval (one week)
const MaxIntervalMinutes = 7 * 24 * 60

// Handler handles monitor HTTP requests
type Handler struct {
	monitor         *monitor.Service
	controller      Controller
	defaultInterval time.Duration
	log             zerolog.Logger
}

// NewHandler creates a new monitor handler.
// defaultInterval is used when a start request omits one.
func NewHandler(service *monitor.Service, controller Controller, defaultInterval time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		monitor:         service,
		controller:      controller,
		defaultInterval: defaultInterval,
		log:             log.With().Str("handler", "monitor").Logger(),
	}
}

// AddRequest is the body of POST /api/bot/add
type AddRequest struct {
	Symbol     string   `json:"symbol"`
	Quantity   *float64 `json:"quantity"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
}

// SymbolRequest is the body of POST /api/bot/remove
type SymbolRequest struct {
	Symbol string `json:"symbol"`
}

// StartRequest is the body of POST /api/bot/start. Interval is in minutes.
type StartRequest struct {
	Interval *float64 `json:"interval,omitempty"`
}

// HandleGetStatus handles GET /api/bot/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.monitor.GetStatus()

	data := map[string]interface{}{
		"running":          status.Running,
		"total_positions":  status.TotalPositions,
		"active_positions": status.ActivePositions,
		"positions":        status.Positions,
	}
	if status.Running {
		data["interval_minutes"] = h.controller.Interval().Minutes()
		if next := h.controller.NextRun(); !next.IsZero() {
			data["next_run"] = next.Format(time.RFC3339)
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetPositions handles GET /api/bot/positions
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.monitor.ListPositions()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"positions": positions,
			"count":     len(positions),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleAdd handles POST /api/bot/add
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol == "" || req.Quantity == nil || req.StopLoss == nil || req.TakeProfit == nil {
		h.writeError(w, http.StatusBadRequest, "symbol, quantity, stop_loss and take_profit are required")
		return
	}

	cfg, err := h.monitor.AddPosition(req.Symbol, *req.Quantity, *req.StopLoss, *req.TakeProfit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to add position to monitoring")
		h.writeError(w, domain.HTTPStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":    cfg,
		"message": fmt.Sprintf("Added %s to monitoring", cfg.Symbol),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleRemove handles POST /api/bot/remove
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	var req SymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Symbol == "" {
		h.writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	removed, err := h.monitor.RemovePosition(req.Symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Failed to remove position from monitoring")
		h.writeError(w, domain.HTTPStatus(err), err.Error())
		return
	}
	if !removed {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("Position %s not found", req.Symbol))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Removed %s from monitoring", req.Symbol),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleStart handles POST /api/bot/start. An empty body uses the default interval.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	interval := h.defaultInterval
	if req.Interval != nil {
		if *req.Interval <= 0 || *req.Interval > MaxIntervalMinutes {
			h.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("interval must be between 0 and %d minutes", MaxIntervalMinutes))
			return
		}
		interval = time.Duration(*req.Interval * float64(time.Minute))
	}

	if err := h.controller.StartMonitoring(interval); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			h.writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to start monitoring")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Monitoring started with %g minute intervals", interval.Minutes()),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleStop handles POST /api/bot/stop
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	drained := h.controller.StopMonitoring()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Monitoring stopped",
		"data": map[string]interface{}{
			"drained": drained,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleCheck handles POST /api/bot/check
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.CheckAllPositions()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Manual check completed",
		"data":    report,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
