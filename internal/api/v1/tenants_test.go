package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/municipia/municipia/internal/api/v1"
	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/tenancy"
)

func newConsoleAPI(t *testing.T, store *mockDataStore, auditor *captureAuditor, alerter *captureAlerter) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	v1.RegisterTenantRoutes(api, store, tenancy.NewReservedSet(), auditor, alerter)
	return api
}

func superAdminCtx() context.Context {
	return asRole(consoleCtx(), uuid.Nil, rbac.RoleSuperAdmin)
}

// ---------------------------------------------------------------------------
// POST /tenants
// ---------------------------------------------------------------------------

func TestCreateTenant(t *testing.T) {
	t.Parallel()

	t.Run("super admin provisions a tenant", func(t *testing.T) {
		t.Parallel()

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				createFunc: func(_ context.Context, tenant *domain.Tenant) error {
					assert.Equal(t, "Renca", tenant.Name)
					assert.Equal(t, "renca", tenant.Slug)
					assert.Equal(t, domain.TenantProvisioning, tenant.Status, "new tenants start provisioning")
					assert.Equal(t, domain.PlanBase, tenant.Plan)
					assert.Equal(t, 10, tenant.MaxUsers, "plan default applied")
					return nil
				},
			},
		}
		auditor := &captureAuditor{}
		alerter := &captureAlerter{}
		api := newConsoleAPI(t, store, auditor, alerter)

		resp := api.PostCtx(superAdminCtx(), "/tenants", map[string]any{
			"name": "Renca",
			"slug": "renca",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Tenant
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "renca", body.Slug)
		assert.Equal(t, []string{domain.ActionTenantCreated}, auditor.actions())
		assert.Len(t, alerter.created, 1)
	})

	t.Run("tenant admin is forbidden", func(t *testing.T) {
		t.Parallel()

		api := newConsoleAPI(t, &mockDataStore{tenants: &mockTenantRepo{}}, &captureAuditor{}, &captureAlerter{})

		renca := activeTenant("renca")
		ctx := asRole(consoleCtx(), renca.ID, rbac.RoleAdmin)
		resp := api.PostCtx(ctx, "/tenants", map[string]any{
			"name": "Evil",
			"slug": "evil",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("unauthenticated is 401", func(t *testing.T) {
		t.Parallel()

		api := newConsoleAPI(t, &mockDataStore{tenants: &mockTenantRepo{}}, &captureAuditor{}, &captureAlerter{})

		resp := api.PostCtx(consoleCtx(), "/tenants", map[string]any{
			"name": "Ghost",
			"slug": "ghost",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("invalid slug is rejected", func(t *testing.T) {
		t.Parallel()

		api := newConsoleAPI(t, &mockDataStore{tenants: &mockTenantRepo{}}, &captureAuditor{}, &captureAlerter{})

		for _, slug := range []string{"Renca", "re_nca", "-renca", "ab"} {
			resp := api.PostCtx(superAdminCtx(), "/tenants", map[string]any{
				"name": "Renca",
				"slug": slug,
			})
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, "slug %q", slug)
		}
	})

	t.Run("reserved slug is 409", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterTenantRoutes(api, &mockDataStore{tenants: &mockTenantRepo{}},
			tenancy.NewReservedSet("demo"), &captureAuditor{}, &captureAlerter{})

		for _, slug := range []string{"api", "www", "demo"} {
			resp := api.PostCtx(superAdminCtx(), "/tenants", map[string]any{
				"name": "X",
				"slug": slug,
			})
			assert.Equal(t, http.StatusConflict, resp.Code, "slug %q", slug)
		}
	})

	t.Run("duplicate slug is 409", func(t *testing.T) {
		t.Parallel()

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				createFunc: func(_ context.Context, _ *domain.Tenant) error {
					return domain.ErrConflict
				},
			},
		}
		api := newConsoleAPI(t, store, &captureAuditor{}, &captureAlerter{})

		resp := api.PostCtx(superAdminCtx(), "/tenants", map[string]any{
			"name": "Renca",
			"slug": "renca",
		})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestTenantLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("activate a provisioning tenant", func(t *testing.T) {
		t.Parallel()

		tenant := activeTenant("renca")
		tenant.Status = domain.TenantProvisioning

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
					require.Equal(t, tenant.ID, id)
					return tenant, nil
				},
				updateStatusFunc: func(_ context.Context, _ uuid.UUID, status domain.TenantStatus) error {
					assert.Equal(t, domain.TenantActive, status)
					return nil
				},
			},
		}
		auditor := &captureAuditor{}
		alerter := &captureAlerter{}
		api := newConsoleAPI(t, store, auditor, alerter)

		resp := api.PostCtx(superAdminCtx(), "/tenants/"+tenant.ID.String()+"/activate")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{domain.ActionTenantActivated}, auditor.actions())
		assert.Len(t, alerter.changed, 1)
	})

	t.Run("suspend an active tenant", func(t *testing.T) {
		t.Parallel()

		tenant := activeTenant("renca")

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Tenant, error) {
					return tenant, nil
				},
				updateStatusFunc: func(_ context.Context, _ uuid.UUID, status domain.TenantStatus) error {
					assert.Equal(t, domain.TenantSuspended, status)
					return nil
				},
			},
		}
		auditor := &captureAuditor{}
		api := newConsoleAPI(t, store, auditor, &captureAlerter{})

		resp := api.PostCtx(superAdminCtx(), "/tenants/"+tenant.ID.String()+"/suspend")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []string{domain.ActionTenantSuspended}, auditor.actions())
	})

	t.Run("suspending a provisioning tenant is 409", func(t *testing.T) {
		t.Parallel()

		tenant := activeTenant("renca")
		tenant.Status = domain.TenantProvisioning

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Tenant, error) {
					return tenant, nil
				},
			},
		}
		api := newConsoleAPI(t, store, &captureAuditor{}, &captureAlerter{})

		resp := api.PostCtx(superAdminCtx(), "/tenants/"+tenant.ID.String()+"/suspend")

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("unknown tenant is 404", func(t *testing.T) {
		t.Parallel()

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				getByIDFunc: func(_ context.Context, _ uuid.UUID) (*domain.Tenant, error) {
					return nil, domain.ErrNotFound
				},
			},
		}
		api := newConsoleAPI(t, store, &captureAuditor{}, &captureAlerter{})

		resp := api.PostCtx(superAdminCtx(), "/tenants/"+uuid.NewString()+"/activate")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// GET /tenants
// ---------------------------------------------------------------------------

func TestListTenants(t *testing.T) {
	t.Parallel()

	t.Run("lists with pagination", func(t *testing.T) {
		t.Parallel()

		store := &mockDataStore{
			tenants: &mockTenantRepo{
				listPaginatedFunc: func(_ context.Context, limit, offset int) ([]*domain.Tenant, error) {
					assert.Equal(t, 2, limit)
					assert.Equal(t, 4, offset)
					return []*domain.Tenant{activeTenant("renca"), activeTenant("quilpue")}, nil
				},
			},
		}
		api := newConsoleAPI(t, store, &captureAuditor{}, &captureAlerter{})

		resp := api.GetCtx(superAdminCtx(), "/tenants?limit=2&offset=4")

		require.Equal(t, http.StatusOK, resp.Code)

		var body []*domain.Tenant
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Len(t, body, 2)
	})

	t.Run("viewer is forbidden", func(t *testing.T) {
		t.Parallel()

		api := newConsoleAPI(t, &mockDataStore{tenants: &mockTenantRepo{}}, &captureAuditor{}, &captureAlerter{})

		renca := activeTenant("renca")
		resp := api.GetCtx(asRole(consoleCtx(), renca.ID, rbac.RoleViewer), "/tenants")

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}
