package ratelimit

import (
	"context"
	"fmt"
	"time"

	"ratelimit-service/internal/client"
)

const (
	defaultCounterPrefix = "throttle:counter:"
	defaultCallTimeout   = 2 * time.Second
)

// The whole increment is one atomic round trip. PEXPIRE runs only on
// the first hit of a window, so the window closes at a fixed instant
// regardless of traffic; the PTTL < 0 branch repairs a key that lost
// its expiry (for example after a MIGRATE or manual SET).
const incrementScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
    ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// RedisStore is the shared fixed-window counter store. All instances
// increment the same keys, so its counts reflect fleet-wide traffic.
// Every call is time-boxed; any error or timeout is returned to the
// caller for fallback handling, never partially trusted.
type RedisStore struct {
	client  *client.RedisClient
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

type RedisStoreOption func(*RedisStore)

// WithCounterPrefix overrides the key prefix (default "throttle:counter:").
func WithCounterPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithCallTimeout overrides the per-call budget (default 2s).
func WithCallTimeout(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.timeout = d }
}

// WithRedisClock substitutes the time source, for deterministic tests.
func WithRedisClock(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) { s.now = now }
}

func NewRedisStore(rc *client.RedisClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:  rc,
		prefix:  defaultCounterPrefix,
		timeout: defaultCallTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment counts one request against the key's current window in the
// shared store. Failure is distinct from a valid zero: on any error the
// returned record must be ignored.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (Record, error) {
	callCtx, cancel := s.client.WithContext(ctx, s.timeout)
	defer cancel()

	result, err := s.client.Eval(callCtx, incrementScript,
		[]string{s.prefix + key}, window.Milliseconds())
	if err != nil {
		return Record{}, fmt.Errorf("failed to increment shared counter: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return Record{}, fmt.Errorf("unexpected result format from increment script")
	}
	count, ok := values[0].(int64)
	if !ok {
		return Record{}, fmt.Errorf("unexpected count type from increment script")
	}
	ttlMillis, ok := values[1].(int64)
	if !ok {
		return Record{}, fmt.Errorf("unexpected ttl type from increment script")
	}

	now := s.now()
	return Record{
		Count:         int(count),
		WindowResetAt: now.Add(time.Duration(ttlMillis) * time.Millisecond),
		LastRequestAt: now,
	}, nil
}

// Reset drops the counter for a key, for operational tooling and tests.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	callCtx, cancel := s.client.WithContext(ctx, s.timeout)
	defer cancel()
	return s.client.Del(callCtx, s.prefix+key)
}
