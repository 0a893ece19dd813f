package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/municipia/municipia/internal/alert"
	v1 "github.com/municipia/municipia/internal/api/v1"
	"github.com/municipia/municipia/internal/audit"
	"github.com/municipia/municipia/internal/auth"
	"github.com/municipia/municipia/internal/config"
	"github.com/municipia/municipia/internal/obs"
	"github.com/municipia/municipia/internal/server/middleware"
	"github.com/municipia/municipia/internal/tenancy"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// goroutines of the rate limiters.
//
// Every request passes the same gate: resolve tenant, then (where routes
// demand it) require an active tenant, authenticate, rate limit, authorize.
func New(ctx context.Context, cfg *config.Config, store v1.DataStore, resolver *tenancy.Resolver, authSvc *auth.Service, recorder *audit.Recorder, notifier *alert.Notifier) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(obs.Instrument)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Health check and metrics stay outside tenant resolution; their path
	// segments are reserved so a portal hostname cannot shadow them.
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", obs.Handler())

	// Everything else runs behind the resolver.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Resolve(resolver, cfg.Tenancy.LookupTimeout))
		registerAPIRoutes(ctx, r, cfg, store, authSvc, recorder, notifier)
	})

	return s
}

func apiConfig(title, baseURL string) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{{URL: baseURL}}
	return c
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
