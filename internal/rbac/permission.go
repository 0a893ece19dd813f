package rbac

// Permission is an atomic capability token checked by Authorize. Closed
// vocabulary; the platform-only tokens are never granted to tenant roles.
type Permission string

const (
	PermView                 Permission = "view"
	PermCreate               Permission = "create"
	PermEdit                 Permission = "edit"
	PermDelete               Permission = "delete"
	PermManageUsers          Permission = "manage_users"
	PermManageTenantSettings Permission = "manage_tenant_settings"
	PermManageIntegrations   Permission = "manage_integrations"
	PermUploadFiles          Permission = "upload_files"
	PermViewAnalytics        Permission = "view_analytics"

	// Platform-only tokens.
	PermCreateTenant   Permission = "create_tenant"
	PermSuspendTenant  Permission = "suspend_tenant"
	PermViewAllTenants Permission = "view_all_tenants"
)

// AllPermissions lists the full vocabulary, tenant and platform tokens both.
var AllPermissions = []Permission{
	PermView, PermCreate, PermEdit, PermDelete,
	PermManageUsers, PermManageTenantSettings, PermManageIntegrations,
	PermUploadFiles, PermViewAnalytics,
	PermCreateTenant, PermSuspendTenant, PermViewAllTenants,
}

// rolePermissions is the static role -> permission table. It is configuration
// in the sense that membership changes land here, not in Authorize.
// super_admin is granted the whole vocabulary.
var rolePermissions = map[Role]map[Permission]bool{
	RoleSuperAdmin: permSet(AllPermissions...),
	RoleAdmin: permSet(
		PermView, PermCreate, PermEdit, PermDelete,
		PermManageUsers, PermManageTenantSettings, PermManageIntegrations,
		PermUploadFiles, PermViewAnalytics,
	),
	RoleEditor: permSet(
		PermView, PermCreate, PermEdit, PermDelete, PermUploadFiles,
	),
	RoleViewer: permSet(
		PermView, PermViewAnalytics,
	),
}

func permSet(perms ...Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

// PermissionsFor returns a copy of the permission set granted to r.
func PermissionsFor(r Role) []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for _, p := range AllPermissions {
		if set[p] {
			out = append(out, p)
		}
	}
	return out
}

func roleHas(r Role, p Permission) bool {
	return rolePermissions[r][p]
}
