// Package handlers provides HTTP handlers for manual trading.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/tracker/internal/domain"
	"github.com/aristath/tracker/internal/modules/trading"
	"github.com/rs/zerolog"
)

// TradingHandlers handles trading HTTP requests
type TradingHandlers struct {
	service *trading.TradingService
	log     zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(service *trading.TradingService, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

type orderRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Quantity float64 `json:"quantity"`
}

// HandleBuy places a manual market buy
// POST /api/trading/buy
func (h *TradingHandlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, domain.SideBuy)
}

// HandleSell places a manual market sell
// POST /api/trading/sell
func (h *TradingHandlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, domain.SideSell)
}

// HandleExecuteTrade places a manual market order with the side taken from the body
// POST /api/trading/execute
func (h *TradingHandlers) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	h.handleOrder(w, r, "")
}

func (h *TradingHandlers) handleOrder(w http.ResponseWriter, r *http.Request, side domain.Side) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if side == "" {
		side = domain.Side(req.Side)
	}

	receipt, err := h.service.Execute(trading.TradeRequest{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Source:   trading.SourceManual,
	})
	if err != nil {
		h.writeError(w, domain.HTTPStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": receipt,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleGetTrades returns recent trade history
// GET /api/trading/history?symbol=AAPL&limit=50
func (h *TradingHandlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	trades, err := h.service.GetHistory(r.URL.Query().Get("symbol"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get trade history")
		h.writeError(w, http.StatusInternalServerError, "Failed to get trade history")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"trades": trades,
			"count":  len(trades),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *TradingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *TradingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
