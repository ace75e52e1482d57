package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/trading", func(r chi.Router) {
		r.Post("/buy", h.HandleBuy)
		r.Post("/sell", h.HandleSell)
		r.Post("/execute", h.HandleExecuteTrade)
		r.Get("/history", h.HandleGetTrades)
	})
}
