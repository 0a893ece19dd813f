package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/tenancy"
)

// Resolve maps every request to a tenant context before anything else runs.
// An unknown slug is a hard 404; a directory outage is 503 so clients can
// retry. When the slug came from the path the segment is stripped, so routes
// below see identical paths for host-based and path-based tenants.
func Resolve(resolver *tenancy.Resolver, lookupTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
			res, err := resolver.Resolve(ctx, r.Host, r.URL.Path)
			cancel()

			if errors.Is(err, tenancy.ErrTenantNotFound) {
				http.Error(w, `{"title":"Not Found","status":404,"detail":"tenant not found"}`, http.StatusNotFound)
				return
			}
			if err != nil {
				log.Error().Err(err).Str("host", r.Host).Msg("tenant resolution failed")
				http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"tenant directory unavailable"}`, http.StatusServiceUnavailable)
				return
			}

			if res.FromPath {
				r = stripFirstSegment(r)
			}

			r = r.WithContext(context.WithValue(r.Context(), ContextKeyResolution, res))
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant admits only requests resolved to an active tenant. A
// suspended or still-provisioning tenant answers exactly like an unknown
// one, so existence is not probeable.
func RequireTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := ResolutionFromContext(r.Context())
			if !ok || res.Kind != tenancy.KindTenant {
				http.Error(w, `{"title":"Not Found","status":404,"detail":"tenant not found"}`, http.StatusNotFound)
				return
			}

			if res.Tenant.Status != domain.TenantActive {
				http.Error(w, `{"title":"Not Found","status":404,"detail":"tenant not found"}`, http.StatusNotFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// stripFirstSegment removes the tenant slug segment from the URL path.
// "/renca/api/v1/users" becomes "/api/v1/users".
func stripFirstSegment(r *http.Request) *http.Request {
	path := strings.TrimPrefix(r.URL.Path, "/")
	rest := ""
	if i := strings.IndexByte(path, '/'); i >= 0 {
		rest = path[i:]
	}
	if rest == "" {
		rest = "/"
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = rest
	if r.URL.RawPath != "" {
		raw := strings.TrimPrefix(r.URL.RawPath, "/")
		if i := strings.IndexByte(raw, '/'); i >= 0 {
			r2.URL.RawPath = raw[i:]
		} else {
			r2.URL.RawPath = "/"
		}
	}
	return r2
}
