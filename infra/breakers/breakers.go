// Package breakers wraps sony/gobreaker for the engine's best-effort
// infrastructure calls (training-log writes, cache lookups) where a failing
// dependency must degrade rather than propagate. The type parameter gives
// callers typed results back instead of `any`.
package breakers

import (
	"time"

	cb "github.com/sony/gobreaker"
)

// Breaker wraps one named circuit over calls returning T.
type Breaker[T any] struct {
	cb *cb.CircuitBreaker
}

// New constructs a Breaker that trips after 3 consecutive failures, or after
// a >5% failure rate once at least 20 requests have been observed in the
// rolling interval.
func New[T any](name string) *Breaker[T] {
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		total := counts.Requests
		if total < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(total) > 0.05
	}
	return &Breaker[T]{cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker. On trip or failure, err is non-nil
// and the zero value of T is returned.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// State reports the breaker's current state name, for health/metrics surfaces.
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
