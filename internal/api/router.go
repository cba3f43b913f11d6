package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/connection", s.handleConnection)

		r.Route("/topology", func(r chi.Router) {
			r.Get("/", s.handleTopologySummary)
			r.Post("/reload", s.handleReload)

			r.Route("/{type}", func(r chi.Router) {
				r.Get("/", s.handleListDevices)
				r.Get("/lookup", s.handleLookupSerial)
				r.Get("/{key}", s.handleGetDevice)
				r.Get("/{key}/parents", s.handleGetParents)
				r.Get("/{key}/position", s.handleGetPosition)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"load_id": s.topology.LoadID(),
	})
}
