package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Tenants() domain.TenantRepository
	Users() domain.UserRepository
	Audit() domain.AuditRepository
}

// AuthService abstracts credential and user management operations for
// handler testing. *auth.Service satisfies this interface.
type AuthService interface {
	Login(ctx context.Context, tenantID uuid.UUID, email, password string) (accessToken, refreshToken string, err error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	CreateUser(ctx context.Context, tenant *domain.Tenant, email, password, name string, role rbac.Role) (*domain.User, error)
	ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, newRole rbac.Role) error
	DeleteUser(ctx context.Context, tenantID, userID uuid.UUID) error
	GenerateAPIKey(ctx context.Context, tenantID, createdBy uuid.UUID, name string, expiresAt *time.Time) (string, *domain.APIKey, error)
}

// Auditor receives audit events fire-and-forget. *audit.Recorder satisfies
// it.
type Auditor interface {
	Record(e *domain.AuditEvent)
}

// Alerter posts tenant lifecycle notifications. *alert.Notifier satisfies
// it; the nil notifier is a no-op.
type Alerter interface {
	TenantCreated(t *domain.Tenant)
	TenantStatusChanged(t *domain.Tenant, from domain.TenantStatus)
}
