package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantStatus is the lifecycle state of a tenant. Tenants are never hard
// deleted; every transition is an explicit super-admin action.
type TenantStatus string

const (
	TenantProvisioning TenantStatus = "provisioning"
	TenantActive       TenantStatus = "active"
	TenantSuspended    TenantStatus = "suspended"
)

// CanTransitionTo reports whether the lifecycle permits moving to next.
// provisioning -> active, active <-> suspended.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	switch s {
	case TenantProvisioning:
		return next == TenantActive
	case TenantActive:
		return next == TenantSuspended
	case TenantSuspended:
		return next == TenantActive
	default:
		return false
	}
}

type TenantPlan string

const (
	PlanBase       TenantPlan = "base"
	PlanPro        TenantPlan = "pro"
	PlanEnterprise TenantPlan = "enterprise"
)

func (p TenantPlan) Valid() bool {
	return p == PlanBase || p == PlanPro || p == PlanEnterprise
}

// Display holds per-tenant portal branding.
type Display struct {
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
}

// MapCenter is the default map viewport for a municipality's portal.
type MapCenter struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// Tenant is one municipality's isolated partition. Slug is immutable after
// creation and globally unique.
type Tenant struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	Status       TenantStatus
	Plan         TenantPlan
	MaxUsers     int
	MaxStorageGB int
	Display      Display
	MapCenter    MapCenter
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TenantRepository is the tenant directory. There is deliberately no Delete:
// deletion is granted to no role.
type TenantRepository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status TenantStatus) error
	ListPaginated(ctx context.Context, limit, offset int) ([]*Tenant, error)
}
