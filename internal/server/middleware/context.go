package middleware

import (
	"context"

	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/tenancy"
)

type contextKey string

const (
	ContextKeyResolution contextKey = "resolution"
	ContextKeyIdentity   contextKey = "identity"
)

// ResolutionFromContext returns the tenant resolution stored by Resolve.
func ResolutionFromContext(ctx context.Context) (*tenancy.Resolution, bool) {
	v, ok := ctx.Value(ContextKeyResolution).(*tenancy.Resolution)
	return v, ok
}

// IdentityFromContext returns the authenticated identity stored by Auth.
func IdentityFromContext(ctx context.Context) (*rbac.Identity, bool) {
	v, ok := ctx.Value(ContextKeyIdentity).(*rbac.Identity)
	return v, ok
}
