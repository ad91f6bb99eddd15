// Package handlers exposes the viewer state to the browser page over HTTP.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bussinfr/viewer/internal/telemetry"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	AllowedOrigins []string
	// Registry, when set, is served on /metrics
	Registry *prometheus.Registry
	// StaticDir, when set, is served for every other path
	StaticDir string
}

// NewRouter mounts the viewer API
func NewRouter(h *ViewerHandler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", h.GetConfig)
		r.Get("/vehicles", h.GetVehicles)
		r.Get("/stops", h.GetStops)
		r.Get("/status", h.GetStatus)
		r.Post("/viewport", h.PostViewport)

		r.Get("/monitor", h.GetMonitor)
		r.Delete("/monitor", h.StopMonitor)
		r.Post("/monitor/{stopID}", h.StartMonitor)
	})

	if opts.Registry != nil {
		r.Handle("/metrics", telemetry.Handler(opts.Registry))
	}

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return r
}
