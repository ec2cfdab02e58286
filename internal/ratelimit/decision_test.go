package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide_BoundaryRequestIsAllowed(t *testing.T) {
	now := time.Unix(1700000000, 0)
	policy := Policy{Limit: 5, Window: time.Minute}
	resetAt := now.Add(30 * time.Second)

	atLimit := Decide(Record{Count: 5, WindowResetAt: resetAt}, policy, now)
	assert.True(t, atLimit.Allowed)
	assert.Equal(t, 0, atLimit.Remaining)
	assert.Equal(t, 0, atLimit.RetryAfterSeconds)

	overLimit := Decide(Record{Count: 6, WindowResetAt: resetAt}, policy, now)
	assert.False(t, overLimit.Allowed)
	assert.Equal(t, 0, overLimit.Remaining)
	assert.Equal(t, 30, overLimit.RetryAfterSeconds)
}

func TestDecide_RemainingNeverNegative(t *testing.T) {
	now := time.Unix(1700000000, 0)
	policy := Policy{Limit: 3, Window: time.Minute}

	decision := Decide(Record{Count: 50, WindowResetAt: now.Add(time.Minute)}, policy, now)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
}

func TestDecide_ResetSecondsRoundsUp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	policy := Policy{Limit: 10, Window: time.Minute}

	decision := Decide(Record{Count: 1, WindowResetAt: now.Add(1500 * time.Millisecond)}, policy, now)
	assert.Equal(t, 2, decision.ResetSeconds)

	decision = Decide(Record{Count: 1, WindowResetAt: now.Add(60 * time.Second)}, policy, now)
	assert.Equal(t, 60, decision.ResetSeconds)
}

func TestDecide_ResetSecondsFloorsAtZero(t *testing.T) {
	now := time.Unix(1700000000, 0)
	policy := Policy{Limit: 10, Window: time.Minute}

	// Window already passed; a new window starts on the next increment,
	// but a stale record must still yield a sane decision.
	decision := Decide(Record{Count: 1, WindowResetAt: now.Add(-time.Second)}, policy, now)
	assert.Equal(t, 0, decision.ResetSeconds)
}

func TestDecide_ResetSecondsDecreasesWithinWindow(t *testing.T) {
	start := time.Unix(1700000000, 0)
	policy := Policy{Limit: 10, Window: time.Minute}
	record := Record{Count: 1, WindowResetAt: start.Add(time.Minute)}

	previous := Decide(record, policy, start).ResetSeconds
	for elapsed := 5 * time.Second; elapsed < time.Minute; elapsed += 5 * time.Second {
		current := Decide(record, policy, start.Add(elapsed)).ResetSeconds
		assert.LessOrEqual(t, current, previous)
		previous = current
	}
	assert.Equal(t, 0, Decide(record, policy, start.Add(2*time.Minute)).ResetSeconds)
}
