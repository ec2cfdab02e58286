package ratelimit

import (
	"fmt"
	"time"
)

// Category names a class of traffic with its own admission budget.
// Categories are resolved by the caller (typically from the route); the
// limiter never derives them itself.
type Category string

const (
	CategoryLogin           Category = "login"
	CategoryCredentialReset Category = "credential_reset"
	CategoryAPI             Category = "api"
	CategoryAdmin           Category = "admin"
	CategoryPublic          Category = "public"
)

// Policy is an admission budget: at most Limit requests per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Catalog maps categories to policies. It is immutable after
// construction and safe for concurrent reads without locking.
type Catalog struct {
	policies map[Category]Policy
}

// NewCatalog validates and freezes the supplied policies. A zero or
// negative limit or window is a programming error and is rejected here,
// at startup, rather than at request time.
func NewCatalog(policies map[Category]Policy) (*Catalog, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("policy catalog must not be empty")
	}
	frozen := make(map[Category]Policy, len(policies))
	for category, policy := range policies {
		if policy.Limit <= 0 {
			return nil, fmt.Errorf("policy %q: limit must be positive, got %d", category, policy.Limit)
		}
		if policy.Window <= 0 {
			return nil, fmt.Errorf("policy %q: window must be positive, got %s", category, policy.Window)
		}
		frozen[category] = policy
	}
	return &Catalog{policies: frozen}, nil
}

// Policy returns the policy for a category, reporting whether the
// category is known.
func (c *Catalog) Policy(category Category) (Policy, bool) {
	policy, ok := c.policies[category]
	return policy, ok
}

// Categories lists the configured categories, for diagnostics.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.policies))
	for category := range c.policies {
		out = append(out, category)
	}
	return out
}
