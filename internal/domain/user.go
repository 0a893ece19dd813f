package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an authenticated identity. TenantID is uuid.Nil only for
// platform-level (super-admin) accounts; every other user belongs to exactly
// one tenant and every decision about them is scoped to it.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID // uuid.Nil for platform accounts
	Email        string
	PasswordHash string // argon2id, never compared in plaintext
	Name         string
	Role         string // canonical rbac role value
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// APIKey is a machine credential for external integrations (the data
// connector). The raw key is shown once; only the SHA-256 hash is stored.
type APIKey struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     uuid.UUID
	Name       string
	KeyHash    string // SHA-256
	Prefix     string // first 8 chars for lookup
	LastUsedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// GetByID is not tenant-scoped: authentication starts from a token
	// subject, before any tenant check. Callers enforce scoping afterwards.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	UpdateRole(ctx context.Context, tenantID, id uuid.UUID, role string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	List(ctx context.Context, tenantID uuid.UUID) ([]*User, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	CountByRole(ctx context.Context, tenantID uuid.UUID, role string) (int, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKeyByPrefix(ctx context.Context, prefix string) (*APIKey, error)
	ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*APIKey, error)
	DeleteAPIKey(ctx context.Context, tenantID, id uuid.UUID) error
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
}
