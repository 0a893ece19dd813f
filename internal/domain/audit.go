package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Audit action vocabulary. Closed set; new actions are added here, never
// inlined at call sites.
const (
	ActionAccessGranted   = "access_granted"
	ActionAccessDenied    = "access_denied"
	ActionLogin           = "login"
	ActionLoginFailed     = "login_failed"
	ActionTenantCreated   = "tenant_created"
	ActionTenantActivated = "tenant_activated"
	ActionTenantSuspended = "tenant_suspended"
	ActionSettingsUpdated = "settings_updated"
	ActionUserCreated     = "user_created"
	ActionUserRoleChanged = "user_role_changed"
	ActionUserDeleted     = "user_deleted"
	ActionAPIKeyCreated   = "api_key_created"
	ActionAPIKeyDeleted   = "api_key_deleted"
)

// AuditEvent is an append-only record of a security-relevant action.
// TenantID is uuid.Nil for platform-level events.
type AuditEvent struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Actor      string // identity string, e.g. user email or "system"
	ActorRole  string
	Action     string
	Resource   string
	ResourceID string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

// AuditRepository persists audit events. Writes are issued by the async
// recorder; failures there are swallowed, never surfaced to the request.
type AuditRepository interface {
	Record(ctx context.Context, e *AuditEvent) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*AuditEvent, error)
}
