package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opensource-finance/propvest/internal/advisor"
	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/observability"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server. A nil registry disables GET /metrics.
func NewServer(cfg domain.ServerConfig, svc *advisor.Service, reg *prometheus.Registry, version string) *Server {
	handler := NewHandler(svc, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(MetricsMiddleware)
	router.Use(RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	if reg != nil {
		router.Method(http.MethodGet, "/metrics", observability.MetricsHandler(reg))
	}

	router.Route("/properties", func(r chi.Router) {
		r.Get("/", handler.ListProperties)
		r.Post("/", handler.CreateProperty)
		r.Get("/{id}", handler.GetProperty)
	})

	router.Route("/profiles", func(r chi.Router) {
		r.Get("/", handler.ListProfiles)
		r.Post("/", handler.CreateProfile)
		r.Get("/{id}", handler.GetProfile)
	})

	router.Post("/recommendations", handler.Recommend)
	router.Get("/recommendations/history", handler.History)
	router.Post("/compare", handler.Compare)
	router.Get("/analytics", handler.Analytics)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       time.Duration(s.config.ReadTimeout) * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
