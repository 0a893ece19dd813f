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
)

type CreateUserInput struct {
	Body struct {
		Email    string `json:"email" minLength:"3" maxLength:"255" doc:"User email"`
		Password string `json:"password" minLength:"8" maxLength:"128" doc:"Password"` //nolint:gosec // G117: credential DTO
		Name     string `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Role     string `json:"role" minLength:"1" doc:"Role (admin, editor, viewer)"`
	}
}

type UserOutput struct {
	Body *domain.User
}

type ListUsersOutput struct {
	Body []*domain.User
}

type UserIDInput struct {
	UserID uuid.UUID `path:"userID" doc:"User ID"`
}

type ChangeRoleInput struct {
	UserID uuid.UUID `path:"userID" doc:"User ID"`
	Body   struct {
		Role string `json:"role" minLength:"1" doc:"New role (admin, editor, viewer)"`
	}
}

// RegisterUserRoutes wires tenant-scoped user management. The membership
// invariants (quota, last admin) live in the auth service; here they map to
// status codes.
func RegisterUserRoutes(api huma.API, store DataStore, authSvc AuthService, auditor Auditor) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List the tenant's users",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, _ *struct{}) (*ListUsersOutput, error) {
		if _, err := authorize(ctx, auditor, "users", rbac.PermManageUsers); err != nil {
			return nil, err
		}

		users, err := store.Users().List(ctx, targetTenantID(ctx))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list users", err)
		}

		for _, u := range users {
			u.PasswordHash = ""
		}

		return &ListUsersOutput{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-user",
		Method:      http.MethodPost,
		Path:        "/users",
		Summary:     "Create a user in the tenant",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
		identity, err := authorize(ctx, auditor, "users", rbac.PermManageUsers)
		if err != nil {
			return nil, err
		}

		tenant := resolvedTenant(ctx)
		if tenant == nil {
			return nil, huma.Error404NotFound("tenant not found")
		}

		role, err := rbac.ParseRole(input.Body.Role)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("unknown role")
		}

		user, err := authSvc.CreateUser(ctx, tenant, input.Body.Email, input.Body.Password, input.Body.Name, role)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserAlreadyExists):
				return nil, huma.Error409Conflict("user already exists")
			case errors.Is(err, auth.ErrUserQuotaExceeded):
				return nil, huma.Error409Conflict("tenant user quota exceeded")
			case errors.Is(err, rbac.ErrUnknownRole):
				return nil, huma.Error422UnprocessableEntity("role not assignable from this surface")
			default:
				return nil, huma.Error500InternalServerError("failed to create user", err)
			}
		}

		auditor.Record(&domain.AuditEvent{
			TenantID:   tenant.ID,
			Actor:      identity.Email,
			ActorRole:  string(identity.Role),
			Action:     domain.ActionUserCreated,
			Resource:   "users",
			ResourceID: user.ID.String(),
			Metadata:   map[string]any{"role": user.Role},
		})

		user.PasswordHash = ""

		return &UserOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-user-role",
		Method:      http.MethodPut,
		Path:        "/users/{userID}/role",
		Summary:     "Change a user's role",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *ChangeRoleInput) (*struct{}, error) {
		identity, err := authorize(ctx, auditor, "users", rbac.PermManageUsers)
		if err != nil {
			return nil, err
		}

		role, err := rbac.ParseRole(input.Body.Role)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("unknown role")
		}

		scope := targetTenantID(ctx)
		if err := authSvc.ChangeRole(ctx, scope, input.UserID, role); err != nil {
			switch {
			case errors.Is(err, auth.ErrLastAdmin):
				return nil, huma.Error409Conflict("cannot demote the last administrator")
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
				return nil, huma.Error404NotFound("user not found")
			default:
				return nil, huma.Error500InternalServerError("failed to change role", err)
			}
		}

		auditor.Record(&domain.AuditEvent{
			TenantID:   scope,
			Actor:      identity.Email,
			ActorRole:  string(identity.Role),
			Action:     domain.ActionUserRoleChanged,
			Resource:   "users",
			ResourceID: input.UserID.String(),
			Metadata:   map[string]any{"role": string(role)},
		})

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-user",
		Method:      http.MethodDelete,
		Path:        "/users/{userID}",
		Summary:     "Delete a user",
		Tags:        []string{"Users"},
	}, func(ctx context.Context, input *UserIDInput) (*struct{}, error) {
		identity, err := authorize(ctx, auditor, "users", rbac.PermManageUsers)
		if err != nil {
			return nil, err
		}

		scope := targetTenantID(ctx)
		if err := authSvc.DeleteUser(ctx, scope, input.UserID); err != nil {
			switch {
			case errors.Is(err, auth.ErrLastAdmin):
				return nil, huma.Error409Conflict("cannot delete the last administrator")
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
				return nil, huma.Error404NotFound("user not found")
			default:
				return nil, huma.Error500InternalServerError("failed to delete user", err)
			}
		}

		auditor.Record(&domain.AuditEvent{
			TenantID:   scope,
			Actor:      identity.Email,
			ActorRole:  string(identity.Role),
			Action:     domain.ActionUserDeleted,
			Resource:   "users",
			ResourceID: input.UserID.String(),
		})

		return nil, nil
	})
}
