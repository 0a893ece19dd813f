package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/tenancy"
)

type CreateTenantInput struct {
	Body struct {
		Name         string            `json:"name" minLength:"1" maxLength:"255" doc:"Municipality name"`
		Slug         string            `json:"slug" minLength:"3" maxLength:"63" doc:"URL-safe slug (lowercase alphanumeric with hyphens)"`
		Plan         domain.TenantPlan `json:"plan,omitempty" enum:"base,pro,enterprise" doc:"Subscription plan"`
		MaxUsers     int               `json:"max_users,omitempty" minimum:"0" doc:"User quota, 0 for the plan default"`
		MaxStorageGB int               `json:"max_storage_gb,omitempty" minimum:"0" doc:"Storage quota in GB"`
	}
}

type TenantOutput struct {
	Body *domain.Tenant
}

type ListTenantsInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Max results"`
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type ListTenantsOutput struct {
	Body []*domain.Tenant
}

type TenantIDInput struct {
	TenantID uuid.UUID `path:"tenantID" doc:"Tenant ID"`
}

type ListAuditInput struct {
	TenantID uuid.UUID `path:"tenantID" doc:"Tenant ID"`
	Limit    int       `query:"limit" minimum:"1" maximum:"500" default:"100" doc:"Max results"`
	Offset   int       `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type ListAuditOutput struct {
	Body []*domain.AuditEvent
}

// Per-plan defaults applied when the console leaves quotas at zero.
var planDefaults = map[domain.TenantPlan]struct {
	maxUsers     int
	maxStorageGB int
}{
	domain.PlanBase:       {maxUsers: 10, maxStorageGB: 5},
	domain.PlanPro:        {maxUsers: 50, maxStorageGB: 50},
	domain.PlanEnterprise: {maxUsers: 500, maxStorageGB: 500},
}

// RegisterTenantRoutes wires the platform console: tenant provisioning and
// lifecycle. Mounted behind RequireSuperAdmin; handlers still check the
// platform-only tokens so the routes fail closed if mounted elsewhere.
func RegisterTenantRoutes(api huma.API, store DataStore, reserved tenancy.ReservedSet, auditor Auditor, alerter Alerter) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants",
		Summary:     "Provision a new tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CreateTenantInput) (*TenantOutput, error) {
		identity, err := authorize(ctx, auditor, "tenants", rbac.PermCreateTenant)
		if err != nil {
			return nil, err
		}

		slug := input.Body.Slug
		if !tenancy.IsValidSlug(slug) {
			return nil, huma.Error422UnprocessableEntity("slug must be 3-63 lowercase alphanumeric characters or hyphens")
		}
		if reserved.Contains(slug) {
			return nil, huma.Error409Conflict("slug is reserved")
		}

		plan := input.Body.Plan
		if plan == "" {
			plan = domain.PlanBase
		}
		if !plan.Valid() {
			return nil, huma.Error422UnprocessableEntity("unknown plan")
		}

		defaults := planDefaults[plan]
		maxUsers := input.Body.MaxUsers
		if maxUsers == 0 {
			maxUsers = defaults.maxUsers
		}
		maxStorage := input.Body.MaxStorageGB
		if maxStorage == 0 {
			maxStorage = defaults.maxStorageGB
		}

		now := time.Now()
		t := &domain.Tenant{
			ID:           uuid.New(),
			Slug:         slug,
			Name:         input.Body.Name,
			Status:       domain.TenantProvisioning,
			Plan:         plan,
			MaxUsers:     maxUsers,
			MaxStorageGB: maxStorage,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := store.Tenants().Create(ctx, t); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("slug already in use")
			}
			return nil, huma.Error500InternalServerError("failed to create tenant", err)
		}

		auditor.Record(&domain.AuditEvent{
			TenantID:   t.ID,
			Actor:      identity.Email,
			ActorRole:  string(identity.Role),
			Action:     domain.ActionTenantCreated,
			Resource:   "tenants",
			ResourceID: t.ID.String(),
			Metadata:   map[string]any{"slug": t.Slug, "plan": string(t.Plan)},
		})
		alerter.TenantCreated(t)

		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List all tenants",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListTenantsInput) (*ListTenantsOutput, error) {
		if _, err := authorize(ctx, auditor, "tenants", rbac.PermViewAllTenants); err != nil {
			return nil, err
		}

		tenants, err := store.Tenants().ListPaginated(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list tenants", err)
		}

		return &ListTenantsOutput{Body: tenants}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantID}",
		Summary:     "Get a tenant by ID",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantIDInput) (*TenantOutput, error) {
		if _, err := authorize(ctx, auditor, "tenants", rbac.PermViewAllTenants); err != nil {
			return nil, err
		}

		t, err := store.Tenants().GetByID(ctx, input.TenantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("tenant not found")
			}
			return nil, huma.Error500InternalServerError("failed to load tenant", err)
		}

		return &TenantOutput{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/{tenantID}/activate",
		Summary:     "Activate a provisioning or suspended tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantIDInput) (*TenantOutput, error) {
		return changeStatus(ctx, store, auditor, alerter, input.TenantID, domain.TenantActive, domain.ActionTenantActivated)
	})

	huma.Register(api, huma.Operation{
		OperationID: "suspend-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants/{tenantID}/suspend",
		Summary:     "Suspend an active tenant",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *TenantIDInput) (*TenantOutput, error) {
		return changeStatus(ctx, store, auditor, alerter, input.TenantID, domain.TenantSuspended, domain.ActionTenantSuspended)
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenant-audit",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantID}/audit",
		Summary:     "List a tenant's audit log",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		if _, err := authorize(ctx, auditor, "tenants", rbac.PermViewAllTenants); err != nil {
			return nil, err
		}

		events, err := store.Audit().ListByTenant(ctx, input.TenantID, input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit log", err)
		}

		return &ListAuditOutput{Body: events}, nil
	})
}

func changeStatus(ctx context.Context, store DataStore, auditor Auditor, alerter Alerter, tenantID uuid.UUID, next domain.TenantStatus, action string) (*TenantOutput, error) {
	identity, err := authorize(ctx, auditor, "tenants", rbac.PermSuspendTenant)
	if err != nil {
		return nil, err
	}

	t, err := store.Tenants().GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		return nil, huma.Error500InternalServerError("failed to load tenant", err)
	}

	if !t.Status.CanTransitionTo(next) {
		return nil, huma.Error409Conflict("invalid status transition")
	}

	if err := store.Tenants().UpdateStatus(ctx, t.ID, next); err != nil {
		return nil, huma.Error500InternalServerError("failed to update tenant status", err)
	}

	from := t.Status
	t.Status = next

	auditor.Record(&domain.AuditEvent{
		TenantID:   t.ID,
		Actor:      identity.Email,
		ActorRole:  string(identity.Role),
		Action:     action,
		Resource:   "tenants",
		ResourceID: t.ID.String(),
		Metadata:   map[string]any{"from": string(from), "to": string(next)},
	})
	alerter.TenantStatusChanged(t, from)

	return &TenantOutput{Body: t}, nil
}
