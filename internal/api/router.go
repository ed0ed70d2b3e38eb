package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/alertd/internal/api/alerts"
	"github.com/good-yellow-bee/alertd/internal/api/channels"
	"github.com/good-yellow-bee/alertd/internal/api/ingest"
	"github.com/good-yellow-bee/alertd/internal/api/middleware"
	"github.com/good-yellow-bee/alertd/internal/api/response"
	"github.com/good-yellow-bee/alertd/internal/api/rules"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP, s.config.RateLimitBurst)

	// Global middleware
	r.Use(middleware.RequestLogger(s.logger.Named("http"), s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer(s.logger))
	r.Use(middleware.Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.JSONError(w, response.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.JSONError(w, response.ErrMethodNotAllowed)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))

		r.Route("/metrics", func(r chi.Router) {
			h := ingest.NewHandler(s.service)
			r.Post("/", h.Submit)
			r.Post("/batch", h.SubmitBatch)
			r.Get("/{metric}/history", h.History)
		})

		r.Route("/rules", func(r chi.Router) {
			h := rules.NewHandler(s.service)
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Replace)
			r.Delete("/{id}", h.Delete)
		})

		r.Route("/channels", func(r chi.Router) {
			h := channels.NewHandler(s.service)
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Replace)
			r.Delete("/{id}", h.Delete)
		})

		r.Route("/alerts", func(r chi.Router) {
			h := alerts.NewHandler(s.service, s.logger.Named("alerts"))
			r.Get("/", h.Active)
			r.Get("/history", h.History)
			r.Get("/events", h.Events)
			r.Get("/{id}", h.Get)
			r.Post("/{id}/resolve", h.Resolve)
		})

		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, s.service.Stats())
		})
	})

	// Health checks (no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/live", s.healthHandler.Live)
	r.Get("/ready", s.healthHandler.Ready)

	return r
}
