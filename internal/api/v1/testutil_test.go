package v1_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/municipia/municipia/internal/domain"
	"github.com/municipia/municipia/internal/rbac"
	"github.com/municipia/municipia/internal/server/middleware"
	"github.com/municipia/municipia/internal/tenancy"
)

// ---------------------------------------------------------------------------
// Context helpers — inject resolution/identity into context for DoCtx
// ---------------------------------------------------------------------------

func tenantCtx(t *domain.Tenant) context.Context {
	res := &tenancy.Resolution{Kind: tenancy.KindTenant, Tenant: t}
	return context.WithValue(context.Background(), middleware.ContextKeyResolution, res)
}

func consoleCtx() context.Context {
	res := &tenancy.Resolution{Kind: tenancy.KindSuperadmin}
	return context.WithValue(context.Background(), middleware.ContextKeyResolution, res)
}

func asIdentity(ctx context.Context, identity *rbac.Identity) context.Context {
	return context.WithValue(ctx, middleware.ContextKeyIdentity, identity)
}

func asRole(ctx context.Context, tenantID uuid.UUID, role rbac.Role) context.Context {
	return asIdentity(ctx, &rbac.Identity{
		UserID:   uuid.New(),
		Email:    string(role) + "@example.cl",
		Role:     role,
		TenantID: tenantID,
	})
}

func activeTenant(slug string) *domain.Tenant {
	return &domain.Tenant{
		ID:       uuid.New(),
		Slug:     slug,
		Name:     slug,
		Status:   domain.TenantActive,
		Plan:     domain.PlanBase,
		MaxUsers: 10,
	}
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	tenants domain.TenantRepository
	users   domain.UserRepository
	audit   domain.AuditRepository
}

func (m *mockDataStore) Tenants() domain.TenantRepository { return m.tenants }
func (m *mockDataStore) Users() domain.UserRepository     { return m.users }
func (m *mockDataStore) Audit() domain.AuditRepository    { return m.audit }

// ---------------------------------------------------------------------------
// Mock TenantRepository — function fields, panic when not stubbed
// ---------------------------------------------------------------------------

type mockTenantRepo struct {
	createFunc        func(ctx context.Context, t *domain.Tenant) error
	getByIDFunc       func(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	getBySlugFunc     func(ctx context.Context, slug string) (*domain.Tenant, error)
	updateFunc        func(ctx context.Context, t *domain.Tenant) error
	updateStatusFunc  func(ctx context.Context, id uuid.UUID, status domain.TenantStatus) error
	listPaginatedFunc func(ctx context.Context, limit, offset int) ([]*domain.Tenant, error)
}

func (m *mockTenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	return m.createFunc(ctx, t)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return m.getBySlugFunc(ctx, slug)
}

func (m *mockTenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTenantRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TenantStatus) error {
	return m.updateStatusFunc(ctx, id, status)
}

func (m *mockTenantRepo) ListPaginated(ctx context.Context, limit, offset int) ([]*domain.Tenant, error) {
	return m.listPaginatedFunc(ctx, limit, offset)
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	listFunc         func(ctx context.Context, tenantID uuid.UUID) ([]*domain.User, error)
	listAPIKeysFunc  func(ctx context.Context, tenantID uuid.UUID) ([]*domain.APIKey, error)
	deleteAPIKeyFunc func(ctx context.Context, tenantID, id uuid.UUID) error
}

func (m *mockUserRepo) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.User, error) {
	return m.listFunc(ctx, tenantID)
}

func (m *mockUserRepo) ListAPIKeys(ctx context.Context, tenantID uuid.UUID) ([]*domain.APIKey, error) {
	return m.listAPIKeysFunc(ctx, tenantID)
}

func (m *mockUserRepo) DeleteAPIKey(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.deleteAPIKeyFunc(ctx, tenantID, id)
}

// Stub methods — not exercised by the handlers under test.

func (m *mockUserRepo) Create(_ context.Context, _ *domain.User) error { panic("not implemented") }
func (m *mockUserRepo) GetByID(_ context.Context, _ uuid.UUID) (*domain.User, error) {
	panic("not implemented")
}
func (m *mockUserRepo) GetByEmail(_ context.Context, _ uuid.UUID, _ string) (*domain.User, error) {
	panic("not implemented")
}
func (m *mockUserRepo) UpdateRole(_ context.Context, _, _ uuid.UUID, _ string) error {
	panic("not implemented")
}
func (m *mockUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID) error {
	panic("not implemented")
}
func (m *mockUserRepo) Delete(_ context.Context, _, _ uuid.UUID) error { panic("not implemented") }
func (m *mockUserRepo) CountByTenant(_ context.Context, _ uuid.UUID) (int, error) {
	panic("not implemented")
}
func (m *mockUserRepo) CountByRole(_ context.Context, _ uuid.UUID, _ string) (int, error) {
	panic("not implemented")
}
func (m *mockUserRepo) CreateAPIKey(_ context.Context, _ *domain.APIKey) error {
	panic("not implemented")
}
func (m *mockUserRepo) GetAPIKeyByPrefix(_ context.Context, _ string) (*domain.APIKey, error) {
	panic("not implemented")
}
func (m *mockUserRepo) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error {
	panic("not implemented")
}

// ---------------------------------------------------------------------------
// Mock AuditRepository
// ---------------------------------------------------------------------------

type mockAuditRepo struct {
	listByTenantFunc func(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AuditEvent, error)
}

func (m *mockAuditRepo) Record(_ context.Context, _ *domain.AuditEvent) error {
	panic("not implemented")
}

func (m *mockAuditRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*domain.AuditEvent, error) {
	return m.listByTenantFunc(ctx, tenantID, limit, offset)
}

// ---------------------------------------------------------------------------
// Mock AuthService
// ---------------------------------------------------------------------------

type mockAuthService struct {
	loginFunc          func(ctx context.Context, tenantID uuid.UUID, email, password string) (string, string, error)
	refreshFunc        func(ctx context.Context, refreshToken string) (string, error)
	createUserFunc     func(ctx context.Context, tenant *domain.Tenant, email, password, name string, role rbac.Role) (*domain.User, error)
	changeRoleFunc     func(ctx context.Context, tenantID, userID uuid.UUID, newRole rbac.Role) error
	deleteUserFunc     func(ctx context.Context, tenantID, userID uuid.UUID) error
	generateAPIKeyFunc func(ctx context.Context, tenantID, createdBy uuid.UUID, name string, expiresAt *time.Time) (string, *domain.APIKey, error)
}

func (m *mockAuthService) Login(ctx context.Context, tenantID uuid.UUID, email, password string) (string, string, error) {
	return m.loginFunc(ctx, tenantID, email, password)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) CreateUser(ctx context.Context, tenant *domain.Tenant, email, password, name string, role rbac.Role) (*domain.User, error) {
	return m.createUserFunc(ctx, tenant, email, password, name, role)
}

func (m *mockAuthService) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, newRole rbac.Role) error {
	return m.changeRoleFunc(ctx, tenantID, userID, newRole)
}

func (m *mockAuthService) DeleteUser(ctx context.Context, tenantID, userID uuid.UUID) error {
	return m.deleteUserFunc(ctx, tenantID, userID)
}

func (m *mockAuthService) GenerateAPIKey(ctx context.Context, tenantID, createdBy uuid.UUID, name string, expiresAt *time.Time) (string, *domain.APIKey, error) {
	return m.generateAPIKeyFunc(ctx, tenantID, createdBy, name, expiresAt)
}

// ---------------------------------------------------------------------------
// Audit / alert capture
// ---------------------------------------------------------------------------

type captureAuditor struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
}

func (c *captureAuditor) Record(e *domain.AuditEvent) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *captureAuditor) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

type captureAlerter struct {
	mu      sync.Mutex
	created []*domain.Tenant
	changed []*domain.Tenant
}

func (c *captureAlerter) TenantCreated(t *domain.Tenant) {
	c.mu.Lock()
	c.created = append(c.created, t)
	c.mu.Unlock()
}

func (c *captureAlerter) TenantStatusChanged(t *domain.Tenant, _ domain.TenantStatus) {
	c.mu.Lock()
	c.changed = append(c.changed, t)
	c.mu.Unlock()
}
