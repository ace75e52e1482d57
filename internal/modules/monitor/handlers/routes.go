package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all monitor routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/bot", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Get("/positions", h.HandleGetPositions)
		r.Post("/add", h.HandleAdd)
		r.Post("/remove", h.HandleRemove)
		r.Post("/start", h.HandleStart)
		r.Post("/stop", h.HandleStop)
		r.Post("/check", h.HandleCheck)
	})
}
