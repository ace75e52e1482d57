package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/", h.HandleGetLedger)
		r.Get("/quote/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetQuote(w, r, chi.URLParam(r, "symbol"))
		})
	})
}
