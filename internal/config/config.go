// Package config loads application configuration from MUNICIPIA_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Tenancy  TenancyConfig
	Audit    AuditConfig
	Alert    AlertConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds the tenant-directory cache settings. Enabled is false
// when no address is set; the resolver then reads straight from Postgres.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
	CacheTTL time.Duration
}

// JWTConfig holds JWT authentication settings.
type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// TenancyConfig controls hostname and path resolution.
type TenancyConfig struct {
	BaseDomain      string
	SuperadminAlias string
	ReservedSlugs   []string
	LookupTimeout   time.Duration
}

// AuditConfig sizes the async audit recorder.
type AuditConfig struct {
	Buffer int
}

// AlertConfig holds the ops Slack notifier settings. Both empty disables
// alerting.
type AlertConfig struct {
	SlackBotToken string
	SlackChannel  string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("MUNICIPIA_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("MUNICIPIA_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("MUNICIPIA_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cacheTTL, err := getEnvDuration("MUNICIPIA_TENANT_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	accessTTL, err := getEnvDuration("MUNICIPIA_JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	refreshTTL, err := getEnvDuration("MUNICIPIA_JWT_REFRESH_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("MUNICIPIA_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("MUNICIPIA_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	lookupTimeout, err := getEnvDuration("MUNICIPIA_TENANT_LOOKUP_TIMEOUT", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	auditBuffer, err := getEnvInt("MUNICIPIA_AUDIT_BUFFER", 1024)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("MUNICIPIA_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("MUNICIPIA_DB_USER", "municipia"),
			Password: getEnv("MUNICIPIA_DB_PASSWORD", ""),
			DBName:   getEnv("MUNICIPIA_DB_NAME", "municipia_dev"),
			SSLMode:  getEnv("MUNICIPIA_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("MUNICIPIA_REDIS_ADDR", ""),
			Password: getEnv("MUNICIPIA_REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheTTL: cacheTTL,
		},
		JWT: JWTConfig{
			Secret:     getEnv("MUNICIPIA_JWT_SECRET", ""),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		Server: ServerConfig{
			Addr:         getEnv("MUNICIPIA_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("MUNICIPIA_CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Tenancy: TenancyConfig{
			BaseDomain:      getEnv("MUNICIPIA_BASE_DOMAIN", "municipia.cl"),
			SuperadminAlias: getEnv("MUNICIPIA_SUPERADMIN_ALIAS", "superadmin"),
			ReservedSlugs:   getEnvList("MUNICIPIA_RESERVED_SLUGS", nil),
			LookupTimeout:   lookupTimeout,
		},
		Audit: AuditConfig{
			Buffer: auditBuffer,
		},
		Alert: AlertConfig{
			SlackBotToken: getEnv("MUNICIPIA_SLACK_BOT_TOKEN", ""),
			SlackChannel:  getEnv("MUNICIPIA_SLACK_CHANNEL", ""),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("MUNICIPIA_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("MUNICIPIA_JWT_SECRET must be at least 32 characters")
	}

	if c.Tenancy.BaseDomain == "" {
		return errors.New("MUNICIPIA_BASE_DOMAIN must not be empty")
	}

	if c.Database.SSLMode == "disable" {
		log.Warn().Msg("MUNICIPIA_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("MUNICIPIA_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("MUNICIPIA_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("MUNICIPIA_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("MUNICIPIA_JWT_REFRESH_TTL must be positive, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("MUNICIPIA_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("MUNICIPIA_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Tenancy.LookupTimeout <= 0 {
		return fmt.Errorf("MUNICIPIA_TENANT_LOOKUP_TIMEOUT must be positive, got %s", c.Tenancy.LookupTimeout)
	}
	if c.Audit.Buffer < 1 {
		return fmt.Errorf("MUNICIPIA_AUDIT_BUFFER must be >= 1, got %d", c.Audit.Buffer)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
