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
)

func TestListAudit(t *testing.T) {
	t.Parallel()

	renca := activeTenant("renca")

	t.Run("admin reads the tenant's own trail", func(t *testing.T) {
		t.Parallel()

		store := &mockDataStore{
			audit: &mockAuditRepo{
				listByTenantFunc: func(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AuditEvent, error) {
					require.Equal(t, renca.ID, tenantID)
					assert.Equal(t, 100, limit)
					assert.Equal(t, 0, offset)
					return []*domain.AuditEvent{
						{ID: uuid.New(), TenantID: tenantID, Action: domain.ActionLogin},
					}, nil
				},
			},
		}
		_, api := humatest.New(t)
		v1.RegisterAuditRoutes(api, store, &captureAuditor{})

		resp := api.GetCtx(asRole(tenantCtx(renca), renca.ID, rbac.RoleAdmin), "/audit")

		require.Equal(t, http.StatusOK, resp.Code)

		var body []*domain.AuditEvent
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body, 1)
		assert.Equal(t, domain.ActionLogin, body[0].Action)
	})

	t.Run("editor is forbidden", func(t *testing.T) {
		t.Parallel()

		auditor := &captureAuditor{}
		_, api := humatest.New(t)
		v1.RegisterAuditRoutes(api, &mockDataStore{}, auditor)

		resp := api.GetCtx(asRole(tenantCtx(renca), renca.ID, rbac.RoleEditor), "/audit")

		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Equal(t, []string{domain.ActionAccessDenied}, auditor.actions())
	})
}
