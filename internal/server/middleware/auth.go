package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/municipia/municipia/internal/auth"
	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
)

// Authenticator is the subset of *auth.Service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*rbac.Identity, error)
	ValidateAPIKey(ctx context.Context, rawKey string) (*domain.User, *domain.APIKey, error)
}

// Auth authenticates a Bearer token or an X-API-Key header and stores the
// resulting identity in the request context. Credential failures are 401; a
// store outage during validation is 503, not a deny, so a flaky database
// never reads as revoked credentials.
func Auth(svc Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				identity, err := svc.Authenticate(r.Context(), tok)
				if err == nil {
					next.ServeHTTP(w, withIdentity(r, identity))
					return
				}
				if !credentialFailure(err) {
					log.Error().Err(err).Msg("auth: identity lookup failed")
					http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"authentication temporarily unavailable"}`, http.StatusServiceUnavailable)
					return
				}
			}

			if key := r.Header.Get("X-API-Key"); key != "" {
				user, _, err := svc.ValidateAPIKey(r.Context(), key)
				if err == nil {
					identity, idErr := identityFromUser(user)
					if idErr == nil {
						next.ServeHTTP(w, withIdentity(r, identity))
						return
					}
				} else if !credentialFailure(err) {
					log.Error().Err(err).Msg("auth: api key lookup failed")
					http.Error(w, `{"title":"Service Unavailable","status":503,"detail":"authentication temporarily unavailable"}`, http.StatusServiceUnavailable)
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

// credentialFailure reports whether err means the presented credential is
// bad, as opposed to the backing store being unreachable.
func credentialFailure(err error) bool {
	return errors.Is(err, auth.ErrTokenInvalid) ||
		errors.Is(err, auth.ErrTokenExpired) ||
		errors.Is(err, auth.ErrUnknownSubject) ||
		errors.Is(err, auth.ErrInvalidAPIKey)
}

func identityFromUser(u *domain.User) (*rbac.Identity, error) {
	role, err := rbac.ParseRole(u.Role)
	if err != nil {
		return nil, err
	}
	return &rbac.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Role:     role,
		TenantID: u.TenantID,
	}, nil
}

func withIdentity(r *http.Request, identity *rbac.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ContextKeyIdentity, identity))
}

func extractBearer(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return authz[7:]
	}
	return ""
}
