package v1

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/obs"
	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/server/middleware"
	"github.com/municipia/municipia/internal/tenancy"
)

// authorize runs the permission check every handler goes through: identity
// from context, resolved tenant as target, rbac.Authorize for the verdict.
// Every decision increments the gate counters; a deny is recorded against
// the target tenant with its precise reason, which stays out of the
// response body.
func authorize(ctx context.Context, auditor Auditor, resource string, perms ...rbac.Permission) (*rbac.Identity, error) {
	identity, _ := middleware.IdentityFromContext(ctx)
	target := targetTenantID(ctx)

	decision := rbac.Authorize(identity, perms, target)
	if decision.Allowed {
		obs.GateAllowed()
		return identity, nil
	}

	obs.GateDenied(string(decision.Reason))

	e := &domain.AuditEvent{
		TenantID: target,
		Actor:    "anonymous",
		Action:   domain.ActionAccessDenied,
		Resource: resource,
		Metadata: map[string]any{"reason": string(decision.Reason)},
	}
	if identity != nil {
		e.Actor = identity.Email
		e.ActorRole = string(identity.Role)
	}
	auditor.Record(e)

	if decision.Reason == rbac.ReasonUnauthenticated {
		return nil, huma.Error401Unauthorized("authentication required")
	}
	return nil, huma.Error403Forbidden("insufficient permissions")
}

// targetTenantID is the tenant scope of the current request, uuid.Nil for
// platform scope.
func targetTenantID(ctx context.Context) uuid.UUID {
	res, ok := middleware.ResolutionFromContext(ctx)
	if !ok || res.Kind != tenancy.KindTenant {
		return uuid.Nil
	}
	return res.Tenant.ID
}

// resolvedTenant returns the active tenant of the current request, or nil
// on platform and console routes.
func resolvedTenant(ctx context.Context) *domain.Tenant {
	res, ok := middleware.ResolutionFromContext(ctx)
	if !ok || res.Kind != tenancy.KindTenant {
		return nil
	}
	return res.Tenant
}
