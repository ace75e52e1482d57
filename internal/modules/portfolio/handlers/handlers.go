// Package handlers provides HTTP handlers for portfolio valuation.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/tracker/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// SnapshotProvider builds portfolio snapshots
type SnapshotProvider interface {
	GetPortfolioSnapshot() (*portfolio.Snapshot, error)
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service SnapshotProvider
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service SnapshotProvider, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the current snapshot
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.GetPortfolioSnapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio snapshot")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": snapshot,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetSummary returns the snapshot totals without the per-position rows
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.GetPortfolioSnapshot()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio snapshot")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"cash":             snapshot.Cash,
			"positions_value":  snapshot.PositionsValue,
			"equity":           snapshot.Equity,
			"percent_invested": snapshot.PercentInvested,
			"position_count":   len(snapshot.Positions),
			"skipped_count":    len(snapshot.Skipped),
		},
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
