package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipia/municipia/internal/domain"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Record(ctx context.Context, e *domain.AuditEvent) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_log (id, tenant_id, actor, actor_role, action, resource, resource_id, metadata, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, nilIfZero(e.TenantID), e.Actor, e.ActorRole,
		e.Action, e.Resource, e.ResourceID,
		metadata, e.IPAddress, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AuditEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, actor, actor_role, action, resource, resource_id, metadata, ip_address, user_agent, created_at
		 FROM audit_log WHERE tenant_id IS NOT DISTINCT FROM $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		nilIfZero(tenantID), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var events []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var tenantID *uuid.UUID
		var metadata []byte

		err = rows.Scan(&e.ID, &tenantID, &e.Actor, &e.ActorRole,
			&e.Action, &e.Resource, &e.ResourceID,
			&metadata, &e.IPAddress, &e.UserAgent, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("auditRepo.ListByTenant: scan: %w", err)
		}

		e.TenantID = derefUUID(tenantID)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("auditRepo.ListByTenant: unmarshal metadata: %w", err)
			}
		}

		events = append(events, &e)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByTenant: rows: %w", err)
	}

	return events, nil
}
