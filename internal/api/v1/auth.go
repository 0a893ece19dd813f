package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/municipia/municipia/internal/auth"
	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/server/middleware"
	"github.com/municipia/municipia/internal/tenancy"
)

type LoginInput struct {
	Body struct {
		Email    string `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type LoginOutput struct {
	Body struct {
		AccessToken  string `json:"access_token"`  //nolint:gosec // G117: auth response DTO
		RefreshToken string `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

type MeOutput struct {
	Body struct {
		UserID      uuid.UUID         `json:"user_id"`
		TenantID    uuid.UUID         `json:"tenant_id"`
		Email       string            `json:"email"`
		Role        rbac.Role         `json:"role"`
		Permissions []rbac.Permission `json:"permissions"`
	}
}

// RegisterAuthRoutes wires login, refresh and me. Login is scoped by the
// resolved tenant: the same credentials on another municipality's portal are
// a different (nonexistent) account.
func RegisterAuthRoutes(api huma.API, authSvc AuthService, auditor Auditor) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with email and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
		tenantID, err := loginScope(ctx)
		if err != nil {
			return nil, err
		}

		accessToken, refreshToken, err := authSvc.Login(ctx, tenantID, input.Body.Email, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				auditor.Record(&domain.AuditEvent{
					TenantID: tenantID,
					Actor:    input.Body.Email,
					Action:   domain.ActionLoginFailed,
					Resource: "auth",
				})
				return nil, huma.Error401Unauthorized("invalid email or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		auditor.Record(&domain.AuditEvent{
			TenantID: tenantID,
			Actor:    input.Body.Email,
			Action:   domain.ActionLogin,
			Resource: "auth",
		})

		out := &LoginOutput{}
		out.Body.AccessToken = accessToken
		out.Body.RefreshToken = refreshToken
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		accessToken, err := authSvc.Refresh(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = accessToken
		return out, nil
	})
}

// RegisterMeRoutes is mounted behind Auth so the identity is always present.
func RegisterMeRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Describe the authenticated identity",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}

		out := &MeOutput{}
		out.Body.UserID = identity.UserID
		out.Body.TenantID = identity.TenantID
		out.Body.Email = identity.Email
		out.Body.Role = identity.Role
		out.Body.Permissions = rbac.PermissionsFor(identity.Role)
		return out, nil
	})
}

// loginScope maps the request's resolution to the tenant partition the
// credentials live in. Console and platform hosts log in against the
// platform partition (uuid.Nil); a tenant portal must be active.
func loginScope(ctx context.Context) (uuid.UUID, error) {
	res, ok := middleware.ResolutionFromContext(ctx)
	if !ok {
		return uuid.Nil, huma.Error404NotFound("tenant not found")
	}

	if res.Kind != tenancy.KindTenant {
		return uuid.Nil, nil
	}

	if res.Tenant.Status != domain.TenantActive {
		return uuid.Nil, huma.Error404NotFound("tenant not found")
	}

	return res.Tenant.ID, nil
}
