package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct {
	calls int
}

func (s *failingStore) Increment(context.Context, string, time.Duration) (Record, error) {
	s.calls++
	return Record{}, errors.New("dial tcp: connection refused")
}

type fixedStore struct {
	record Record
}

func (s *fixedStore) Increment(context.Context, string, time.Duration) (Record, error) {
	return s.record, nil
}

type recordingObserver struct {
	degradations int
	lastErr      error
}

func (o *recordingObserver) Degraded(_ Category, _ string, err error) {
	o.degradations++
	o.lastErr = err
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(map[Category]Policy{
		CategoryAPI: {Limit: 5, Window: time.Minute},
	})
	require.NoError(t, err)
	return catalog
}

func TestLimiter_AdmitsUpToLimitThenDenies(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	limiter := NewLimiter(testCatalog(t), NewLocalStore(WithClock(clock)), zap.NewNop(),
		WithLimiterClock(clock))

	for i, wantRemaining := range []int{4, 3, 2, 1, 0} {
		decision := limiter.Check(context.Background(), "abc", CategoryAPI)
		assert.True(t, decision.Allowed, "request %d should be admitted", i+1)
		assert.Equal(t, wantRemaining, decision.Remaining)
		assert.Equal(t, 5, decision.Limit)
	}

	denied := limiter.Check(context.Background(), "abc", CategoryAPI)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Greater(t, denied.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, denied.RetryAfterSeconds, 60)
}

func TestLimiter_WindowRolloverResetsQuota(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	limiter := NewLimiter(testCatalog(t), NewLocalStore(WithClock(clock)), zap.NewNop(),
		WithLimiterClock(clock))

	for i := 0; i < 5; i++ {
		limiter.Check(context.Background(), "abc", CategoryAPI)
	}
	assert.False(t, limiter.Check(context.Background(), "abc", CategoryAPI).Allowed)

	now = now.Add(61 * time.Second)
	decision := limiter.Check(context.Background(), "abc", CategoryAPI)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining, "first request of the new window")
}

func TestLimiter_IdentifiersDoNotShareQuota(t *testing.T) {
	limiter := NewLimiter(testCatalog(t), NewLocalStore(), zap.NewNop())

	for i := 0; i < 6; i++ {
		limiter.Check(context.Background(), "abc", CategoryAPI)
	}
	assert.False(t, limiter.Check(context.Background(), "abc", CategoryAPI).Allowed)

	decision := limiter.Check(context.Background(), "xyz", CategoryAPI)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 4, decision.Remaining)
}

func TestLimiter_FallsBackWhenSharedStoreFails(t *testing.T) {
	store := &failingStore{}
	observer := &recordingObserver{}
	limiter := NewLimiter(testCatalog(t), NewLocalStore(), zap.NewNop(),
		WithDistributedStore(store),
		WithObserver(observer))

	// Every call fails over to local counting; no request errors out and
	// the quota is still enforced.
	for i := 0; i < 5; i++ {
		decision := limiter.Check(context.Background(), "abc", CategoryAPI)
		assert.True(t, decision.Allowed, "request %d", i+1)
	}
	assert.False(t, limiter.Check(context.Background(), "abc", CategoryAPI).Allowed)

	assert.Equal(t, 6, store.calls)
	assert.Equal(t, 6, observer.degradations)
	assert.Error(t, observer.lastErr)
}

func TestLimiter_UsesSharedStoreRecordWhenAvailable(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	store := &fixedStore{record: Record{Count: 5, WindowResetAt: now.Add(30 * time.Second)}}
	local := NewLocalStore(WithClock(clock))
	limiter := NewLimiter(testCatalog(t), local, zap.NewNop(),
		WithDistributedStore(store),
		WithLimiterClock(clock))

	decision := limiter.Check(context.Background(), "abc", CategoryAPI)
	assert.True(t, decision.Allowed, "boundary request is admitted")
	assert.Equal(t, 0, decision.Remaining)
	assert.Equal(t, 30, decision.ResetSeconds)
	assert.Equal(t, 0, local.Len(), "local store untouched while shared store is healthy")

	store.record.Count = 6
	assert.False(t, limiter.Check(context.Background(), "abc", CategoryAPI).Allowed)
}

func TestLimiter_UnknownCategoryAdmits(t *testing.T) {
	limiter := NewLimiter(testCatalog(t), NewLocalStore(), zap.NewNop())

	decision := limiter.Check(context.Background(), "abc", Category("unconfigured"))
	assert.True(t, decision.Allowed)
}

func TestLimiter_Mode(t *testing.T) {
	local := NewLimiter(testCatalog(t), NewLocalStore(), zap.NewNop())
	assert.Equal(t, "local-only", local.Mode())

	distributed := NewLimiter(testCatalog(t), NewLocalStore(), zap.NewNop(),
		WithDistributedStore(&fixedStore{}))
	assert.Equal(t, "distributed", distributed.Mode())
}
