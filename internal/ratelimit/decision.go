package ratelimit

import "time"

// Decision is the outcome of one admission check, shaped so callers can
// write rate-limit response headers directly from its fields.
type Decision struct {
	Allowed           bool
	Limit             int
	Remaining         int
	ResetSeconds      int
	RetryAfterSeconds int // set only on denial
}

// Decide evaluates a counter record against a policy. Pure function: it
// has no side effects and cannot fail. The boundary request is admitted;
// with a limit of N the Nth request passes and the (N+1)th is denied.
func Decide(record Record, policy Policy, now time.Time) Decision {
	decision := Decision{
		Allowed: record.Count <= policy.Limit,
		Limit:   policy.Limit,
	}

	if remaining := policy.Limit - record.Count; remaining > 0 {
		decision.Remaining = remaining
	}

	if until := record.WindowResetAt.Sub(now); until > 0 {
		// Round up so clients never retry a second too early.
		decision.ResetSeconds = int((until + time.Second - 1) / time.Second)
	}

	if !decision.Allowed {
		decision.RetryAfterSeconds = decision.ResetSeconds
	}
	return decision
}
