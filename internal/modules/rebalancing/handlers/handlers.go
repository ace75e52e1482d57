// Package handlers provides HTTP handlers for rebalancing operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/tracker/internal/modules/portfolio"
	"github.com/aristath/tracker/internal/modules/rebalancing"
	"github.com/rs/zerolog"
)

// SnapshotProvider builds portfolio snapshots
type SnapshotProvider interface {
	GetPortfolioSnapshot() (*portfolio.Snapshot, error)
}

// Handler handles rebalancing HTTP requests
type Handler struct {
	snapshots     SnapshotProvider
	planner       *rebalancing.Planner
	executor      *rebalancing.Executor
	defaultBuffer float64
	log           zerolog.Logger
}

// NewHandler creates a new rebalancing handler.
// defaultBuffer is the cash buffer percentage used when a request omits one.
func NewHandler(
	snapshots SnapshotProvider,
	planner *rebalancing.Planner,
	executor *rebalancing.Executor,
	defaultBuffer float64,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		snapshots:     snapshots,
		planner:       planner,
		executor:      executor,
		defaultBuffer: defaultBuffer,
		log:           log.With().Str("handler", "rebalancing").Logger(),
	}
}

// RebalanceRequest is the body of the plan and execute endpoints.
// Allocations are percentages parallel to Symbols.
type RebalanceRequest struct {
	Symbols     []string  `json:"symbols"`
	Allocations []float64 `json:"allocations"`
	CashBuffer  *float64  `json:"cash_buffer,omitempty"`
}

// HandlePlan handles POST /api/rebalance/plan
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	plan, snapshot, ok := h.buildPlan(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"legs":   plan,
			"count":  len(plan),
			"equity": snapshot.Equity,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleExecute handles POST /api/rebalance/execute
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	plan, _, ok := h.buildPlan(w, r)
	if !ok {
		return
	}

	message := "No trades required"
	results := make([]rebalancing.LegResult, 0)
	failed := 0
	if len(plan) > 0 {
		results = h.executor.Execute(plan)
		for _, res := range results {
			if !res.Succeeded() {
				failed++
			}
		}
		message = "Rebalance orders submitted"
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"message": message,
			"trades":  results,
			"failed":  failed,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) buildPlan(w http.ResponseWriter, r *http.Request) (rebalancing.Plan, *portfolio.Snapshot, bool) {
	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return nil, nil, false
	}

	buffer := h.defaultBuffer
	if req.CashBuffer != nil {
		buffer = *req.CashBuffer
	}

	weights := make([]float64, len(req.Allocations))
	for i, pct := range req.Allocations {
		weights[i] = pct / 100
	}

	snapshot, err := h.snapshots.GetPortfolioSnapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio snapshot")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, nil, false
	}

	plan, err := h.planner.GeneratePlan(snapshot, req.Symbols, weights, buffer)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rebalancing.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		h.writeError(w, status, err.Error())
		return nil, nil, false
	}

	return plan, snapshot, true
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
