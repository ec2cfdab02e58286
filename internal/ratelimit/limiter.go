package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DistributedStore is the fleet-wide counter dependency. RedisStore is
// the production implementation; tests substitute fakes.
type DistributedStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (Record, error)
}

// Limiter is the admission engine: it resolves the policy for a
// category, obtains the window count (shared store first, local store
// on any failure) and evaluates the decision. Check never returns an
// error; availability wins over strict global accuracy.
type Limiter struct {
	catalog     *Catalog
	local       *LocalStore
	distributed DistributedStore
	observer    Observer
	logger      *zap.Logger
	now         func() time.Time
}

type LimiterOption func(*Limiter)

// WithDistributedStore attaches a shared counter store. Without one the
// limiter runs on local counters from the start; that is configuration,
// not an error.
func WithDistributedStore(store DistributedStore) LimiterOption {
	return func(l *Limiter) { l.distributed = store }
}

// WithObserver attaches a degradation hook.
func WithObserver(observer Observer) LimiterOption {
	return func(l *Limiter) { l.observer = observer }
}

// WithLimiterClock substitutes the time source, for deterministic tests.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(catalog *Catalog, local *LocalStore, logger *zap.Logger, opts ...LimiterOption) *Limiter {
	l := &Limiter{
		catalog:  catalog,
		local:    local,
		observer: NoopObserver{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check admits or denies one request for the given identifier under the
// category's policy. It is total: a failing dependency degrades to
// local counting, an unknown category admits and logs, and the caller
// always receives a usable decision.
func (l *Limiter) Check(ctx context.Context, identifier string, category Category) Decision {
	policy, ok := l.catalog.Policy(category)
	if !ok {
		l.logger.Error("admission check for unknown category",
			zap.String("category", string(category)),
			zap.String("identifier", identifier))
		return Decision{Allowed: true}
	}

	key := string(category) + ":" + identifier
	record, degradedErr := l.count(ctx, key, policy)
	if degradedErr != nil {
		l.observer.Degraded(category, identifier, degradedErr)
	}

	return Decide(record, policy, l.now())
}

// Mode reports the counting mode the limiter was configured for.
func (l *Limiter) Mode() string {
	if l.distributed != nil {
		return "distributed"
	}
	return "local-only"
}

// count obtains the window record, preferring the shared store. The
// returned error is the swallowed distributed-store failure when the
// record came from the local fallback; it is reported, not propagated.
func (l *Limiter) count(ctx context.Context, key string, policy Policy) (Record, error) {
	if l.distributed == nil {
		return l.local.Increment(key, policy.Window), nil
	}

	record, err := l.distributed.Increment(ctx, key, policy.Window)
	if err == nil {
		return record, nil
	}

	l.logger.Warn("shared counter store unavailable, using local counters",
		zap.String("key", key),
		zap.Error(err))
	return l.local.Increment(key, policy.Window), err
}
