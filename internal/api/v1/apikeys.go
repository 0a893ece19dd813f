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
)

type CreateAPIKeyInput struct {
	Body struct {
		Name      string     `json:"name" minLength:"1" maxLength:"255" doc:"Key label"`
		ExpiresAt *time.Time `json:"expires_at,omitempty" doc:"Optional expiry"`
	}
}

type CreateAPIKeyOutput struct {
	Body struct {
		// Key is the raw credential, returned exactly once.
		Key    string         `json:"key"`
		APIKey *domain.APIKey `json:"api_key"`
	}
}

type ListAPIKeysOutput struct {
	Body []*domain.APIKey
}

type APIKeyIDInput struct {
	KeyID uuid.UUID `path:"keyID" doc:"API key ID"`
}

// RegisterAPIKeyRoutes wires machine credentials for the data connector.
func RegisterAPIKeyRoutes(api huma.API, store DataStore, authSvc AuthService, auditor Auditor) {
	huma.Register(api, huma.Operation{
		OperationID: "create-api-key",
		Method:      http.MethodPost,
		Path:        "/apikeys",
		Summary:     "Create an API key",
		Tags:        []string{"API Keys"},
	}, func(ctx context.Context, input *CreateAPIKeyInput) (*CreateAPIKeyOutput, error) {
		identity, err := authorize(ctx, auditor, "apikeys", rbac.PermManageIntegrations)
		if err != nil {
			return nil, err
		}

		tenant := resolvedTenant(ctx)
		if tenant == nil {
			return nil, huma.Error404NotFound("tenant not found")
		}

		raw, key, err := authSvc.GenerateAPIKey(ctx, tenant.ID, identity.UserID, input.Body.Name, input.Body.ExpiresAt)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to create api key", err)
		}

		auditor.Record(&domain.AuditEvent{
			TenantID:   tenant.ID,
			Actor:      identity.Email,
			ActorRole:  string(identity.Role),
			Action:     domain.ActionAPIKeyCreated,
			Resource:   "apikeys",
			ResourceID: key.ID.String(),
			Metadata:   map[string]any{"name": key.Name},
		})

		key.KeyHash = ""

		out := &CreateAPIKeyOutput{}
		out.Body.Key = raw
		out.Body.APIKey = key
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List the tenant's API keys",
		Tags:        []string{"API Keys"},
	}, func(ctx context.Context, _ *struct{}) (*ListAPIKeysOutput, error) {
		if _, err := authorize(ctx, auditor, "apikeys", rbac.PermManageIntegrations); err != nil {
			return nil, err
		}

		keys, err := store.Users().ListAPIKeys(ctx, targetTenantID(ctx))
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list api keys", err)
		}

		for _, k := range keys {
			k.KeyHash = ""
		}

		return &ListAPIKeysOutput{Body: keys}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{keyID}",
		Summary:     "Revoke an API key",
		Tags:        []string{"API Keys"},
	}, func(ctx context.Context, input *APIKeyIDInput) (*struct{}, error) {
		identity, err := authorize(ctx, auditor, "apikeys", rbac.PermManageIntegrations)
		if err != nil {
			return nil, err
		}

		scope := targetTenantID(ctx)
		if err := store.Users().DeleteAPIKey(ctx, scope, input.KeyID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("api key not found")
			}
			return nil, huma.Error500InternalServerError("failed to delete api key", err)
		}

		auditor.Record(&domain.AuditEvent{
			TenantID:   scope,
			Actor:      identity.Email,
			ActorRole:  string(identity.Role),
			Action:     domain.ActionAPIKeyDeleted,
			Resource:   "apikeys",
			ResourceID: input.KeyID.String(),
		})

		return nil, nil
	})
}
