// Package handlers provides HTTP handlers for the paper ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/aristath/tracker/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// LedgerReader exposes the paper account for read-only endpoints
type LedgerReader interface {
	State() ledger.State
	GetQuote(symbol string) (float64, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	ledger LedgerReader
	log    zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(
	ledger LedgerReader,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ledger: ledger,
		log:    log.With().Str("handler", "ledger").Logger(),
	}
}

type holdingResponse struct {
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	AverageCost float64 `json:"average_cost"`
	CostBasis   float64 `json:"cost_basis"`
}

// HandleGetLedger handles GET /api/ledger
func (h *Handler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	state := h.ledger.State()

	holdings := make([]holdingResponse, 0, len(state.Holdings))
	for _, symbol := range state.Symbols() {
		held := state.Holdings[symbol]
		holdings = append(holdings, holdingResponse{
			Symbol:      symbol,
			Quantity:    held.Quantity,
			AverageCost: held.AverageCost,
			CostBasis:   held.Quantity * held.AverageCost,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"cash":     state.Cash,
			"holdings": holdings,
			"count":    len(holdings),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetQuote handles GET /api/ledger/quote/{symbol}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request, symbol string) {
	price, err := h.ledger.GetQuote(symbol)
	if err != nil {
		h.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote lookup failed")
		h.writeError(w, domain.HTTPStatus(err), err.Error())
		return
	}

	normalized, _ := domain.NormalizeSymbol(symbol)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol": normalized,
			"price":  price,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
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
