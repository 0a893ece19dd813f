package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/obs"
	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/tenancy"
)

// Auditor receives gate decisions. *audit.Recorder satisfies it; a nil
// recorder silently drops.
type Auditor interface {
	Record(e *domain.AuditEvent)
}

// Require authorizes the request's identity for every listed permission
// against the resolved tenant. Must be chained after Resolve and Auth.
//
// Deny reasons are collapsed in the response body; the precise reason goes
// to the audit log and metrics only.
func Require(auditor Auditor, perms ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())
			target := targetTenant(r)

			decision := rbac.Authorize(identity, perms, target)
			recordDecision(auditor, r, identity, target, decision)

			if !decision.Allowed {
				if decision.Reason == rbac.ReasonUnauthenticated {
					http.Error(w, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, http.StatusUnauthorized)
					return
				}
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"insufficient permissions"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin gates the platform console. Platform scope plus any
// platform-only token restricts it to super_admin.
func RequireSuperAdmin(auditor Auditor) func(http.Handler) http.Handler {
	return Require(auditor, rbac.PermViewAllTenants)
}

func targetTenant(r *http.Request) uuid.UUID {
	res, ok := ResolutionFromContext(r.Context())
	if !ok || res.Kind != tenancy.KindTenant {
		return uuid.Nil
	}
	return res.Tenant.ID
}

func recordDecision(auditor Auditor, r *http.Request, identity *rbac.Identity, target uuid.UUID, decision rbac.Decision) {
	action := domain.ActionAccessGranted
	if decision.Allowed {
		obs.GateAllowed()
	} else {
		obs.GateDenied(string(decision.Reason))
		action = domain.ActionAccessDenied
	}

	// Path-routed requests had their tenant segment stripped before
	// routing; restore it so the audit trail shows the path the client
	// actually sent.
	path := r.URL.Path
	if res, ok := ResolutionFromContext(r.Context()); ok && res.FromPath && res.Tenant != nil {
		path = "/" + res.Tenant.Slug + path
	}

	e := &domain.AuditEvent{
		TenantID:  target,
		Actor:     "anonymous",
		Action:    action,
		Resource:  r.Method + " " + path,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if identity != nil {
		e.Actor = identity.Email
		e.ActorRole = string(identity.Role)
	}
	if !decision.Allowed {
		e.Metadata = map[string]any{"reason": string(decision.Reason)}
	}

	if auditor != nil {
		auditor.Record(e)
	}
}
