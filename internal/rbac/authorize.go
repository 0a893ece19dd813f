package rbac

import (
	"github.com/google/uuid"
)

// Identity is an authenticated principal. TenantID is uuid.Nil only for
// super-admin (platform) accounts.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	Role     Role
	TenantID uuid.UUID
}

// DenyReason distinguishes deny outcomes for logs, metrics and audit. The
// caller-visible response collapses these to a generic body.
type DenyReason string

const (
	ReasonUnauthenticated         DenyReason = "unauthenticated"
	ReasonTenantMismatch          DenyReason = "tenant_mismatch"
	ReasonInsufficientPermissions DenyReason = "insufficient_permissions"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty when Allowed
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Authorize decides whether identity may perform every permission in
// required against targetTenant. Pure function of its inputs.
//
// The tenant-scope check is independent of the permission table: a tenant
// admin holds the edit token yet is never authorized against another
// tenant's data. super_admin bypasses tenant scoping entirely.
// targetTenant uuid.Nil means platform scope.
func Authorize(identity *Identity, required []Permission, targetTenant uuid.UUID) Decision {
	if identity == nil || !identity.Role.Valid() {
		return deny(ReasonUnauthenticated)
	}

	if identity.Role != RoleSuperAdmin && identity.TenantID != targetTenant {
		return deny(ReasonTenantMismatch)
	}

	for _, p := range required {
		if !roleHas(identity.Role, p) {
			return deny(ReasonInsufficientPermissions)
		}
	}

	return allow()
}
