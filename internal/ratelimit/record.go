package ratelimit

import "time"

// Record is the counter state for one (identifier, category) pair within
// the current fixed window. Count never decreases inside a window; it
// starts over at 1 when a request arrives after WindowResetAt.
type Record struct {
	Count         int
	WindowResetAt time.Time
	LastRequestAt time.Time // diagnostic only, not used in admission
}
