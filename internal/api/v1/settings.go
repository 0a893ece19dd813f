package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
)

type TenantProfileOutput struct {
	Body struct {
		Slug      string            `json:"slug"`
		Name      string            `json:"name"`
		Plan      domain.TenantPlan `json:"plan"`
		Display   domain.Display    `json:"display"`
		MapCenter domain.MapCenter  `json:"map_center"`
	}
}

type UpdateSettingsInput struct {
	Body struct {
		Name      *string           `json:"name,omitempty" maxLength:"255" doc:"Municipality display name"`
		Display   *domain.Display   `json:"display,omitempty" doc:"Portal branding"`
		MapCenter *domain.MapCenter `json:"map_center,omitempty" doc:"Default map viewport"`
	}
}

// RegisterSettingsRoutes wires the tenant's own settings surface. Reading
// the profile is open to every role; changing it needs the settings token.
func RegisterSettingsRoutes(api huma.API, store DataStore, auditor Auditor) {
	huma.Register(api, huma.Operation{
		OperationID: "get-tenant-profile",
		Method:      http.MethodGet,
		Path:        "/settings",
		Summary:     "Get the tenant's portal profile",
		Tags:        []string{"Settings"},
	}, func(ctx context.Context, _ *struct{}) (*TenantProfileOutput, error) {
		if _, err := authorize(ctx, auditor, "settings", rbac.PermView); err != nil {
			return nil, err
		}

		tenant := resolvedTenant(ctx)
		if tenant == nil {
			return nil, huma.Error404NotFound("tenant not found")
		}

		out := &TenantProfileOutput{}
		out.Body.Slug = tenant.Slug
		out.Body.Name = tenant.Name
		out.Body.Plan = tenant.Plan
		out.Body.Display = tenant.Display
		out.Body.MapCenter = tenant.MapCenter
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-tenant-settings",
		Method:      http.MethodPatch,
		Path:        "/settings",
		Summary:     "Update portal branding and map defaults",
		Tags:        []string{"Settings"},
	}, func(ctx context.Context, input *UpdateSettingsInput) (*TenantProfileOutput, error) {
		identity, err := authorize(ctx, auditor, "settings", rbac.PermManageTenantSettings)
		if err != nil {
			return nil, err
		}

		tenant := resolvedTenant(ctx)
		if tenant == nil {
			return nil, huma.Error404NotFound("tenant not found")
		}

		// Reload instead of mutating the cached resolution copy.
		current, err := store.Tenants().GetByID(ctx, tenant.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tenant not found")
			}
			return nil, huma.Error500InternalServerError("failed to load tenant", err)
		}

		changed := map[string]any{}
		if input.Body.Name != nil && *input.Body.Name != "" {
			current.Name = *input.Body.Name
			changed["name"] = current.Name
		}
		if input.Body.Display != nil {
			current.Display = *input.Body.Display
			changed["display"] = true
		}
		if input.Body.MapCenter != nil {
			current.MapCenter = *input.Body.MapCenter
			changed["map_center"] = true
		}

		if len(changed) > 0 {
			if err := store.Tenants().Update(ctx, current); err != nil {
				return nil, huma.Error500InternalServerError("failed to update settings", err)
			}

			auditor.Record(&domain.AuditEvent{
				TenantID:   current.ID,
				Actor:      identity.Email,
				ActorRole:  string(identity.Role),
				Action:     domain.ActionSettingsUpdated,
				Resource:   "settings",
				ResourceID: current.ID.String(),
				Metadata:   changed,
			})
		}

		out := &TenantProfileOutput{}
		out.Body.Slug = current.Slug
		out.Body.Name = current.Name
		out.Body.Plan = current.Plan
		out.Body.Display = current.Display
		out.Body.MapCenter = current.MapCenter
		return out, nil
	})
}
