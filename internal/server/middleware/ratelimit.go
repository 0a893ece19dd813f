package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/municipia/municipia/internal/tenancy"
)

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool keeps one token bucket per key. Stale entries are cleaned up
// every 10 minutes to prevent unbounded memory growth.
type limiterPool[K comparable] struct {
	mu       sync.Mutex
	limiters map[K]*limiterEntry
	rps      float64
	burst    int
}

func newLimiterPool[K comparable](ctx context.Context, rps float64, burst int) *limiterPool[K] {
	p := &limiterPool[K]{
		limiters: make(map[K]*limiterEntry),
		rps:      rps,
		burst:    burst,
	}

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.mu.Lock()
				cutoff := time.Now().Add(-30 * time.Minute)
				for k, e := range p.limiters {
					if e.lastAccess.Before(cutoff) {
						delete(p.limiters, k)
					}
				}
				p.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	return p
}

func (p *limiterPool[K]) allow(key K) bool {
	p.mu.Lock()
	e, ok := p.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.limiters[key] = e
	}
	e.lastAccess = time.Now()
	p.mu.Unlock()

	return e.limiter.Allow()
}

// RateLimitByIP applies per-IP rate limiting for unauthenticated endpoints
// (e.g. auth routes). Uses chi's RealIP middleware value via r.RemoteAddr.
func RateLimitByIP(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	pool := newLimiterPool[string](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !pool.allow(r.RemoteAddr) {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit applies per-tenant rate limiting so one municipality's traffic
// spike does not starve the rest. Requests without a resolved tenant pass
// through.
func RateLimit(ctx context.Context, requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	pool := newLimiterPool[uuid.UUID](ctx, requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := ResolutionFromContext(r.Context())
			if !ok || res.Kind != tenancy.KindTenant {
				next.ServeHTTP(w, r)
				return
			}

			if !pool.allow(res.Tenant.ID) {
				http.Error(w, `{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
