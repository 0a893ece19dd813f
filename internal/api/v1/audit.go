package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/municipia/municipia/internal/rbac"
)

type TenantAuditInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"100" doc:"Max results"`
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

// RegisterAuditRoutes exposes a tenant's own audit trail on its portal.
func RegisterAuditRoutes(api huma.API, store DataStore, auditor Auditor) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit",
		Method:      http.MethodGet,
		Path:        "/audit",
		Summary:     "List this tenant's audit log",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *TenantAuditInput) (*ListAuditOutput, error) {
		if _, err := authorize(ctx, auditor, "audit", rbac.PermViewAnalytics); err != nil {
			return nil, err
		}

		events, err := store.Audit().ListByTenant(ctx, targetTenantID(ctx), input.Limit, input.Offset)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit log", err)
		}

		return &ListAuditOutput{Body: events}, nil
	})
}
