package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

// LocalStore keeps fixed-window counters in process memory. It never
// fails and is always available, which makes it the fallback when the
// shared store is not. It only sees this instance's traffic: under a
// multi-instance deployment it under-counts the global rate.
type LocalStore struct {
	mu         sync.Mutex
	records    map[string]*Record
	now        func() time.Time
	sweepEvery time.Duration
}

type LocalStoreOption func(*LocalStore)

// WithSweepInterval overrides how often expired records are swept.
func WithSweepInterval(d time.Duration) LocalStoreOption {
	return func(s *LocalStore) { s.sweepEvery = d }
}

// WithClock substitutes the time source, for deterministic tests.
func WithClock(now func() time.Time) LocalStoreOption {
	return func(s *LocalStore) { s.now = now }
}

func NewLocalStore(opts ...LocalStoreOption) *LocalStore {
	s := &LocalStore{
		records:    make(map[string]*Record),
		now:        time.Now,
		sweepEvery: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment counts one request against the key's current window and
// returns the updated record. A missing or expired record starts a
// fresh window with count 1.
func (s *LocalStore) Increment(key string, window time.Duration) Record {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok || !now.Before(record.WindowResetAt) {
		record = &Record{
			Count:         1,
			WindowResetAt: now.Add(window),
			LastRequestAt: now,
		}
		s.records[key] = record
		return *record
	}

	record.Count++
	record.LastRequestAt = now
	return *record
}

// Sweep removes every record whose window has passed. Reads already
// treat expired records as absent; sweeping just bounds memory growth.
func (s *LocalStore) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, record := range s.records {
		if !now.Before(record.WindowResetAt) {
			delete(s.records, key)
		}
	}
}

// StartJanitor sweeps on a fixed interval until ctx is cancelled.
func (s *LocalStore) StartJanitor(ctx context.Context) {
	if s.sweepEvery <= 0 {
		return
	}

	ticker := time.NewTicker(s.sweepEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Len reports how many records are currently held, for diagnostics.
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
