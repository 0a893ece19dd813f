package tenancy

import "regexp"

// Slug length bounds. The regexp alone admits single-character strings, so
// the length check is applied separately.
const (
	slugMinLen = 3
	slugMaxLen = 63
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,61}[a-z0-9])?$`)

// IsValidSlug reports whether s is a well-formed tenant slug: lowercase
// alphanumeric with interior hyphens, 3-63 characters.
func IsValidSlug(s string) bool {
	if len(s) < slugMinLen || len(s) > slugMaxLen {
		return false
	}
	return slugPattern.MatchString(s)
}

// baselineReserved are slugs that must never resolve to a tenant, checked
// before any directory lookup. The configuration may extend this set but
// never shrink it.
var baselineReserved = []string{
	"admin", "api", "www", "app", "static", "assets", "cdn", "media",
	"files", "uploads", "downloads", "docs", "help", "support", "status",
	"login", "signup", "register", "auth", "oauth", "sso", "superadmin",
	"root", "system", "config", "dev", "staging", "test", "demo",
	"healthz", "metrics",
}

// ReservedSet answers "is this slug reserved". Membership includes the
// baseline plus any configured extras.
type ReservedSet map[string]struct{}

// NewReservedSet builds a ReservedSet from the baseline and extra entries.
func NewReservedSet(extra ...string) ReservedSet {
	rs := make(ReservedSet, len(baselineReserved)+len(extra))
	for _, s := range baselineReserved {
		rs[s] = struct{}{}
	}
	for _, s := range extra {
		if s != "" {
			rs[s] = struct{}{}
		}
	}
	return rs
}

// Contains reports whether slug is reserved.
func (rs ReservedSet) Contains(slug string) bool {
	_, ok := rs[slug]
	return ok
}
