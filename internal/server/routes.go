package server

import (
	"context"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/municipia/municipia/internal/alert"
	v1 "github.com/municipia/municipia/internal/api/v1"
	"github.com/municipia/municipia/internal/audit"
	"github.com/municipia/municipia/internal/auth"
	"github.com/municipia/municipia/internal/config"
	"github.com/municipia/municipia/internal/server/middleware"
	"github.com/municipia/municipia/internal/tenancy"
)

func registerAPIRoutes(ctx context.Context, r chi.Router, cfg *config.Config, store v1.DataStore, authSvc *auth.Service, recorder *audit.Recorder, notifier *alert.Notifier) {
	reserved := tenancy.NewReservedSet(cfg.Tenancy.ReservedSlugs...)

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated auth routes, per-IP limited. Tenant resolution
		// has already run, so an unknown portal 404s before any
		// credential is examined.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, 5, 10))
			authAPI := humachi.New(r, apiConfig("Municipia Auth API", "/api/v1"))
			v1.RegisterAuthRoutes(authAPI, authSvc, recorder)
		})

		// Platform console. The coarse super-admin gate sits in front;
		// handlers re-check the platform-only tokens.
		r.Route("/superadmin", func(r chi.Router) {
			r.Use(middleware.Auth(authSvc))
			r.Use(middleware.RequireSuperAdmin(recorder))
			consoleAPI := humachi.New(r, apiConfig("Municipia Console API", "/api/v1/superadmin"))
			v1.RegisterTenantRoutes(consoleAPI, store, reserved, recorder, notifier)
		})

		// Tenant portal management routes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTenant())
			r.Use(middleware.Auth(authSvc))
			r.Use(middleware.RateLimit(ctx, 100, 200))
			api := humachi.New(r, apiConfig("Municipia API", "/api/v1"))
			v1.RegisterMeRoutes(api)
			v1.RegisterUserRoutes(api, store, authSvc, recorder)
			v1.RegisterSettingsRoutes(api, store, recorder)
			v1.RegisterAPIKeyRoutes(api, store, authSvc, recorder)
			v1.RegisterAuditRoutes(api, store, recorder)
		})
	})
}
