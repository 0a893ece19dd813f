package rbac_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/municipia/municipia/internal/rbac"
)

func identity(role rbac.Role, tenantID uuid.UUID) *rbac.Identity {
	return &rbac.Identity{
		UserID:   uuid.New(),
		Email:    "user@example.com",
		Role:     role,
		TenantID: tenantID,
	}
}

func TestAuthorizeTenantIsolation(t *testing.T) {
	t.Parallel()

	// A tenant-scoped user is denied against any other tenant regardless of
	// role and regardless of the permission asked for.
	t1 := uuid.New()
	t2 := uuid.New()

	for _, role := range []rbac.Role{rbac.RoleAdmin, rbac.RoleEditor, rbac.RoleViewer} {
		for _, perm := range rbac.AllPermissions {
			d := rbac.Authorize(identity(role, t1), []rbac.Permission{perm}, t2)
			assert.False(t, d.Allowed, "%s/%s", role, perm)
			assert.Equal(t, rbac.ReasonTenantMismatch, d.Reason, "%s/%s", role, perm)
		}
	}
}

func TestAuthorizeSuperAdminUniversality(t *testing.T) {
	t.Parallel()

	// super_admin is allowed every token in the vocabulary against any
	// tenant, including platform scope.
	sa := identity(rbac.RoleSuperAdmin, uuid.Nil)

	for _, target := range []uuid.UUID{uuid.Nil, uuid.New(), uuid.New()} {
		for _, perm := range rbac.AllPermissions {
			d := rbac.Authorize(sa, []rbac.Permission{perm}, target)
			assert.True(t, d.Allowed, "%s vs %s", perm, target)
		}
	}

	d := rbac.Authorize(sa, rbac.AllPermissions, uuid.New())
	assert.True(t, d.Allowed)
}

func TestAuthorizePermissionTable(t *testing.T) {
	t.Parallel()

	tid := uuid.New()

	cases := []struct {
		role    rbac.Role
		perm    rbac.Permission
		allowed bool
	}{
		{rbac.RoleAdmin, rbac.PermEdit, true},
		{rbac.RoleAdmin, rbac.PermManageUsers, true},
		{rbac.RoleAdmin, rbac.PermManageTenantSettings, true},
		{rbac.RoleAdmin, rbac.PermCreateTenant, false},
		{rbac.RoleAdmin, rbac.PermSuspendTenant, false},
		{rbac.RoleAdmin, rbac.PermViewAllTenants, false},
		{rbac.RoleEditor, rbac.PermView, true},
		{rbac.RoleEditor, rbac.PermCreate, true},
		{rbac.RoleEditor, rbac.PermDelete, true},
		{rbac.RoleEditor, rbac.PermManageUsers, false},
		{rbac.RoleEditor, rbac.PermManageTenantSettings, false},
		{rbac.RoleViewer, rbac.PermView, true},
		{rbac.RoleViewer, rbac.PermViewAnalytics, true},
		{rbac.RoleViewer, rbac.PermCreate, false},
		{rbac.RoleViewer, rbac.PermEdit, false},
		{rbac.RoleViewer, rbac.PermDelete, false},
	}

	for _, tc := range cases {
		d := rbac.Authorize(identity(tc.role, tid), []rbac.Permission{tc.perm}, tid)
		assert.Equal(t, tc.allowed, d.Allowed, "%s/%s", tc.role, tc.perm)
		if !tc.allowed {
			assert.Equal(t, rbac.ReasonInsufficientPermissions, d.Reason, "%s/%s", tc.role, tc.perm)
		}
	}
}

func TestAuthorizeRequiresEveryToken(t *testing.T) {
	t.Parallel()

	tid := uuid.New()
	ed := identity(rbac.RoleEditor, tid)

	// One missing token denies the whole set.
	d := rbac.Authorize(ed, []rbac.Permission{rbac.PermView, rbac.PermManageUsers}, tid)
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.ReasonInsufficientPermissions, d.Reason)

	d = rbac.Authorize(ed, []rbac.Permission{rbac.PermView, rbac.PermEdit}, tid)
	assert.True(t, d.Allowed)

	// Empty required set: scope check still applies.
	d = rbac.Authorize(ed, nil, tid)
	assert.True(t, d.Allowed)
	d = rbac.Authorize(ed, nil, uuid.New())
	assert.False(t, d.Allowed)
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	t.Parallel()

	d := rbac.Authorize(nil, []rbac.Permission{rbac.PermView}, uuid.New())
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.ReasonUnauthenticated, d.Reason)

	// Non-canonical role on the identity fails closed.
	bad := identity(rbac.Role("member"), uuid.New())
	d = rbac.Authorize(bad, []rbac.Permission{rbac.PermView}, bad.TenantID)
	assert.False(t, d.Allowed)
	assert.Equal(t, rbac.ReasonUnauthenticated, d.Reason)
}

func TestPermissionsFor(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, rbac.AllPermissions, rbac.PermissionsFor(rbac.RoleSuperAdmin))
	assert.ElementsMatch(t,
		[]rbac.Permission{rbac.PermView, rbac.PermViewAnalytics},
		rbac.PermissionsFor(rbac.RoleViewer))
	assert.Empty(t, rbac.PermissionsFor(rbac.Role("member")))
}
