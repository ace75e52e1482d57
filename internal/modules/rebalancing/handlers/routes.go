package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all rebalancing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rebalance", func(r chi.Router) {
		r.Post("/", h.HandleExecute) // Plan and execute in one call
		r.Post("/plan", h.HandlePlan)
		r.Post("/execute", h.HandleExecute)
	})
}
