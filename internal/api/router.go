package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/api/middleware"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/handlers"
	"github.com/Jtonna/AGORA--Agent-Group-Orchestration-and-Runtime-Architecture/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, emailStore *store.EmailStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - allow all origins (agents call from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(emailStore, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	r.Get("/mail", h.Inbox)
	r.Post("/mail", h.Send)
	r.Get("/mail/{id}", h.Detail)
	r.Delete("/mail/{id}", h.SoftDelete)

	r.Get("/investigation/{name}", h.Investigation)

	r.Get("/directory/agents", h.ListAgents)
	r.Post("/directory/agents", h.RegisterAgent)
	r.Get("/directory/agents/check", h.CheckAgentName)

	return r
}
