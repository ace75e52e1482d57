package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// handleHealth handles health check requests.
// With the sqlite backend the database is pinged and a failure reports 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "tracker",
		"storage": s.cfg.StorageBackend,
	}

	if s.container.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := s.container.DB.QuickCheck(ctx); err != nil {
			s.log.Error().Err(err).Msg("Database health check failed")
			response["status"] = "unhealthy"
			response["database"] = err.Error()
			s.writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response["database"] = "ok"
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
