// Package ratelimit implements fixed-window request admission shared
// across service instances.
//
// Counters live in Redis, keyed by client identifier and policy
// category. When Redis is unreachable, unconfigured, or slow, the
// limiter transparently falls back to an in-process counter store, so a
// counting failure never blocks traffic and never surfaces to callers.
// During such an outage each instance only limits its own share of
// traffic; the two stores are allowed to diverge.
package ratelimit
