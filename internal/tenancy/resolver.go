package tenancy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/municipia/municipia/internal/domain"
)

// ErrTenantNotFound is returned when a candidate slug does not map to a
// tenant. Callers must not distinguish "never existed" from "not accessible"
// in anything client-visible.
var ErrTenantNotFound = errors.New("tenancy: tenant not found")

// Kind classifies what a request host/path resolved to.
type Kind int

const (
	// KindPlatform means no tenant: the bare base domain, www, a reserved
	// slug, or an empty path.
	KindPlatform Kind = iota
	// KindSuperadmin is the platform console pseudo-tenant.
	KindSuperadmin
	// KindTenant carries a resolved tenant.
	KindTenant
)

// Resolution is the outcome of resolving a request to a tenant context.
type Resolution struct {
	Kind   Kind
	Tenant *domain.Tenant // set only for KindTenant
	// FromPath is true when the slug came from the first path segment
	// rather than the hostname; the router strips that segment.
	FromPath bool
}

// Directory is the read side of the tenant directory the resolver needs.
// *postgres.TenantRepo and the redis cache both satisfy it.
type Directory interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// Config controls resolution. BaseDomain empty disables the host strategy
// (development mode, path segments only).
type Config struct {
	BaseDomain      string // e.g. "municipia.cl"
	SuperadminAlias string // subdomain label / path segment for the console
	Reserved        ReservedSet
}

// Resolver derives a tenant from a request host or path and looks it up in
// the directory. Pure read; safe to run on every request.
type Resolver struct {
	dir Directory
	cfg Config
}

func NewResolver(dir Directory, cfg Config) *Resolver {
	if cfg.SuperadminAlias == "" {
		cfg.SuperadminAlias = "superadmin"
	}
	if cfg.Reserved == nil {
		cfg.Reserved = NewReservedSet()
	}
	return &Resolver{dir: dir, cfg: cfg}
}

// Resolve maps (host, path) to a Resolution. Subdomains of the configured
// base domain win; any other host falls back to the first path segment.
// Candidate slugs are looked up verbatim; an unknown slug is
// ErrTenantNotFound, never a default tenant.
func (r *Resolver) Resolve(ctx context.Context, host, path string) (*Resolution, error) {
	host = normalizeHost(host)

	if label, ok := r.subdomainLabel(host); ok {
		switch {
		case label == "", label == "www":
			return &Resolution{Kind: KindPlatform}, nil
		case label == r.cfg.SuperadminAlias:
			return &Resolution{Kind: KindSuperadmin}, nil
		case r.cfg.Reserved.Contains(label):
			// Reserved check precedes the lookup: a tenant row with a
			// reserved slug must still never resolve.
			return &Resolution{Kind: KindPlatform}, nil
		}
		t, err := r.lookup(ctx, label)
		if err != nil {
			return nil, err
		}
		return &Resolution{Kind: KindTenant, Tenant: t}, nil
	}

	// Unrecognized host: path strategy.
	seg := firstSegment(path)
	switch {
	case seg == "":
		return &Resolution{Kind: KindPlatform}, nil
	case seg == r.cfg.SuperadminAlias:
		return &Resolution{Kind: KindSuperadmin, FromPath: true}, nil
	case r.cfg.Reserved.Contains(seg):
		return &Resolution{Kind: KindPlatform}, nil
	}

	t, err := r.lookup(ctx, seg)
	if err != nil {
		return nil, err
	}
	return &Resolution{Kind: KindTenant, Tenant: t, FromPath: true}, nil
}

func (r *Resolver) lookup(ctx context.Context, candidate string) (*domain.Tenant, error) {
	if !IsValidSlug(candidate) {
		return nil, fmt.Errorf("tenancy.Resolver.lookup: %q: %w", candidate, ErrTenantNotFound)
	}

	t, err := r.dir.GetBySlug(ctx, candidate)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("tenancy.Resolver.lookup: %q: %w", candidate, ErrTenantNotFound)
	}
	if err != nil {
		// Directory failure is transient, not "tenant not found".
		return nil, fmt.Errorf("tenancy.Resolver.lookup: %w", err)
	}

	return t, nil
}

// subdomainLabel returns the first label under the base domain, or ok=false
// when the host is not under it. The bare base domain yields ("", true).
func (r *Resolver) subdomainLabel(host string) (string, bool) {
	base := r.cfg.BaseDomain
	if base == "" {
		return "", false
	}
	if host == base {
		return "", true
	}
	if !strings.HasSuffix(host, "."+base) {
		return "", false
	}

	sub := strings.TrimSuffix(host, "."+base)
	labels := strings.Split(sub, ".")
	// The tenant label is the one directly under the base domain, so
	// api.renca.municipia.cl still resolves renca.
	return labels[len(labels)-1], true
}

func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

func firstSegment(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			return strings.ToLower(seg)
		}
	}
	return ""
}
