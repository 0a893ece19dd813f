package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipia/municipia/internal/domain"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, tenant_id, email, password_hash, name, role, last_login_at, created_at, updated_at`

// --- Users ---

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, tenant_id, email, password_hash, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, nilIfZero(u.TenantID), u.Email, u.PasswordHash,
		u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("userRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}

	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}

	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error) {
	u, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE tenant_id IS NOT DISTINCT FROM $1 AND email = $2`,
		nilIfZero(tenantID), email))
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}

	return u, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, tenantID, id uuid.UUID, role string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $1, updated_at = now()
		 WHERE tenant_id IS NOT DISTINCT FROM $2 AND id = $3`,
		role, nilIfZero(tenantID), id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateRole: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("userRepo.UpdateRole: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateLastLogin: %w", err)
	}

	return nil
}

func (r *UserRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM users WHERE tenant_id IS NOT DISTINCT FROM $1 AND id = $2`,
		nilIfZero(tenantID), id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("userRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *UserRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE tenant_id IS NOT DISTINCT FROM $1 ORDER BY created_at, id
		 LIMIT 500`,
		nilIfZero(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("userRepo.List: scan: %w", err)
		}

		users = append(users, u)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("userRepo.List: rows: %w", err)
	}

	return users, nil
}

func (r *UserRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE tenant_id IS NOT DISTINCT FROM $1`,
		nilIfZero(tenantID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("userRepo.CountByTenant: %w", err)
	}

	return n, nil
}

func (r *UserRepo) CountByRole(ctx context.Context, tenantID uuid.UUID, role string) (int, error) {
	var n int

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users
		 WHERE tenant_id IS NOT DISTINCT FROM $1 AND role = $2`,
		nilIfZero(tenantID), role,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("userRepo.CountByRole: %w", err)
	}

	return n, nil
}

func (r *UserRepo) scanOne(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var tenantID *uuid.UUID

	err := row.Scan(&u.ID, &tenantID, &u.Email, &u.PasswordHash,
		&u.Name, &u.Role, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.TenantID = derefUUID(tenantID)

	return &u, nil
}

// --- API keys ---

const apiKeyColumns = `id, tenant_id, user_id, name, key_hash, prefix, last_used_at, expires_at, created_at`

func (r *UserRepo) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (id, tenant_id, user_id, name, key_hash, prefix, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.TenantID, key.UserID, key.Name,
		key.KeyHash, key.Prefix, key.ExpiresAt, key.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("userRepo.CreateAPIKey: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("userRepo.CreateAPIKey: %w", err)
	}

	return nil
}

func (r *UserRepo) GetAPIKeyByPrefix(ctx context.Context, prefix string) (*domain.APIKey, error) {
	var k domain.APIKey

	err := r.pool.QueryRow(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE prefix = $1`, prefix,
	).Scan(&k.ID, &k.TenantID, &k.UserID, &k.Name, &k.KeyHash, &k.Prefix,
		&k.LastUsedAt, &k.ExpiresAt, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("userRepo.GetAPIKeyByPrefix: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetAPIKeyByPrefix: %w", err)
	}

	return &k, nil
}

func (r *UserRepo) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*domain.APIKey, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE tenant_id = $1 ORDER BY created_at, id`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListAPIKeys: %w", err)
	}
	defer rows.Close()

	var keys []*domain.APIKey
	for rows.Next() {
		var k domain.APIKey

		err = rows.Scan(&k.ID, &k.TenantID, &k.UserID, &k.Name, &k.KeyHash,
			&k.Prefix, &k.LastUsedAt, &k.ExpiresAt, &k.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("userRepo.ListAPIKeys: scan: %w", err)
		}

		keys = append(keys, &k)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListAPIKeys: rows: %w", err)
	}

	return keys, nil
}

func (r *UserRepo) DeleteAPIKey(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM api_keys WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.DeleteAPIKey: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("userRepo.DeleteAPIKey: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *UserRepo) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateAPIKeyLastUsed: %w", err)
	}

	return nil
}
