package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/municipia/municipia/internal/alert"
	"github.com/municipia/municipia/internal/audit"
	"github.com/municipia/municipia/internal/auth"
	"github.com/municipia/municipia/internal/config"
	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/obs"
	"github.com/municipia/municipia/internal/server"
	"github.com/municipia/municipia/internal/store/postgres"
	redisstore "github.com/municipia/municipia/internal/store/redis"
	"github.com/municipia/municipia/internal/tenancy"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	// Initialize structured logging from environment.
	logLevel := os.Getenv("MUNICIPIA_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("MUNICIPIA_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	obs.Init()

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Tenant repository, optionally fronted by a Redis look-aside cache.
	// The same instance serves resolver reads and API writes so status
	// changes invalidate cached slugs.
	tenants := store.Tenants()
	if cfg.Redis.Addr != "" {
		cache, cacheErr := redisstore.NewTenantCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, tenants, cfg.Redis.CacheTTL)
		if cacheErr != nil {
			return cacheErr
		}
		defer cache.Close()
		tenants = cache
	}
	dataStore := &appStore{Store: store, tenants: tenants}

	resolver := tenancy.NewResolver(tenants, tenancy.Config{
		BaseDomain:      cfg.Tenancy.BaseDomain,
		SuperadminAlias: cfg.Tenancy.SuperadminAlias,
		Reserved:        tenancy.NewReservedSet(cfg.Tenancy.ReservedSlugs...),
	})

	// Create auth service.
	authSvc := auth.NewService(store.Users(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Async audit recorder writing into Postgres.
	recorder := audit.NewRecorder(store.Audit(), cfg.Audit.Buffer)

	// Ops Slack notifier; nil when not configured.
	var notifier *alert.Notifier
	if cfg.Alert.SlackBotToken != "" && cfg.Alert.SlackChannel != "" {
		notifier = alert.NewNotifier(slacklib.New(cfg.Alert.SlackBotToken), cfg.Alert.SlackChannel)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, dataStore, resolver, authSvc, recorder, notifier)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	// Drain buffered audit events before exit.
	if drainErr := recorder.Close(shutdownCtx); drainErr != nil {
		log.Warn().Err(drainErr).Msg("audit drain interrupted")
	}

	log.Info().Msg("stopped")
	return nil
}

// appStore overlays the cached tenant repository on the Postgres store.
type appStore struct {
	*postgres.Store
	tenants domain.TenantRepository
}

func (s *appStore) Tenants() domain.TenantRepository { return s.tenants }
