package rbac

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the canonical role enumeration. Two tiers: super_admin is
// platform-wide and tenant-agnostic; admin, editor and viewer are scoped to
// exactly one tenant.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

// ErrUnknownRole is returned by ParseRole for values outside the canonical
// enumeration and its alias table.
var ErrUnknownRole = errors.New("rbac: unknown role")

// roleAliases maps legacy role vocabularies, which coexisted across older
// parts of the platform, onto the canonical enumeration. Aliases are applied
// at the parse edge only; nothing past ParseRole sees them.
var roleAliases = map[string]Role{
	"superadmin":      RoleSuperAdmin,
	"municipal_admin": RoleAdmin,
	"admin_muni":      RoleAdmin,
	"funcionario":     RoleEditor,
	"editor_muni":     RoleEditor,
	"visualizador":    RoleViewer,
	"viewer_muni":     RoleViewer,
	"lector":          RoleViewer,
}

// ParseRole normalizes a stored or presented role string to a canonical Role.
func ParseRole(s string) (Role, error) {
	v := strings.ToLower(strings.TrimSpace(s))

	switch Role(v) {
	case RoleSuperAdmin, RoleAdmin, RoleEditor, RoleViewer:
		return Role(v), nil
	}

	if r, ok := roleAliases[v]; ok {
		return r, nil
	}

	return "", fmt.Errorf("rbac.ParseRole: %q: %w", s, ErrUnknownRole)
}

// Valid reports whether r is a canonical role value.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// TenantScoped reports whether r is bound to a single tenant.
func (r Role) TenantScoped() bool {
	return r.Valid() && r != RoleSuperAdmin
}
