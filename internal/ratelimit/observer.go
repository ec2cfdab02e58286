package ratelimit

// Observer receives notifications when the limiter degrades from the
// shared store to local counting. Decision logic never depends on it;
// it exists so operators can alert on sustained degradation.
type Observer interface {
	Degraded(category Category, identifier string, err error)
}

// NoopObserver ignores all notifications. Using it avoids nil checks in
// the hot path.
type NoopObserver struct{}

func (NoopObserver) Degraded(Category, string, error) {}
