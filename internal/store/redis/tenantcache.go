// Package redis provides a look-aside cache in front of the tenant
// directory. Slug lookups happen on every request, so they are the one hot
// path worth caching; everything else passes straight through.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/municipia/municipia/internal/domain"
)

type TenantCache struct {
	client *redis.Client
	next   domain.TenantRepository
	ttl    time.Duration
}

func NewTenantCache(ctx context.Context, addr, password string, db int, next domain.TenantRepository, ttl time.Duration) (*TenantCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.NewTenantCache: ping: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Minute
	}

	return &TenantCache{client: client, next: next, ttl: ttl}, nil
}

func (c *TenantCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("redis.TenantCache.Close: %w", err)
	}
	return nil
}

// SlugKey is the cache key for a tenant slug lookup.
func SlugKey(slug string) string {
	return "tenant:slug:" + slug
}

// GetBySlug serves from cache when possible. Redis failures degrade to a
// direct directory lookup; only a cached row avoids the database.
func (c *TenantCache) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	raw, err := c.client.Get(ctx, SlugKey(slug)).Bytes()
	if err == nil {
		var t domain.Tenant
		if err := json.Unmarshal(raw, &t); err == nil {
			return &t, nil
		}
		log.Warn().Str("slug", slug).Msg("tenantCache: corrupt cache entry, refetching")
	} else if err != redis.Nil {
		log.Warn().Err(err).Msg("tenantCache: redis get failed")
	}

	t, err := c.next.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	c.put(ctx, t)

	return t, nil
}

func (c *TenantCache) put(ctx context.Context, t *domain.Tenant) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, SlugKey(t.Slug), raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("tenantCache: redis set failed")
	}
}

func (c *TenantCache) invalidate(ctx context.Context, slug string) {
	if err := c.client.Del(ctx, SlugKey(slug)).Err(); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("tenantCache: redis del failed")
	}
}

// Writes pass through and invalidate so a stale status never outlives a
// suspension by more than one round trip.

func (c *TenantCache) Create(ctx context.Context, t *domain.Tenant) error {
	if err := c.next.Create(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, t.Slug)
	return nil
}

func (c *TenantCache) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return c.next.GetByID(ctx, id)
}

func (c *TenantCache) Update(ctx context.Context, t *domain.Tenant) error {
	if err := c.next.Update(ctx, t); err != nil {
		return err
	}
	c.invalidate(ctx, t.Slug)
	return nil
}

func (c *TenantCache) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TenantStatus) error {
	if err := c.next.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	// The slug is not in hand here; fetch it to drop the cached row.
	t, err := c.next.GetByID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Stringer("tenant_id", id).Msg("tenantCache: invalidate after status change failed")
		return nil
	}
	c.invalidate(ctx, t.Slug)

	return nil
}

func (c *TenantCache) ListPaginated(ctx context.Context, limit, offset int) ([]*domain.Tenant, error) {
	return c.next.ListPaginated(ctx, limit, offset)
}
