package cache

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/taxpoynt/core/internal/apperror"
	"github.com/taxpoynt/core/pkg/metrics"
)

// BreakerConfig configures the L2 circuit breaker (§4.6): N consecutive
// failures opens it, it stays open for RecoveryTimeout, then one probe via
// half-open either closes it (success) or reopens it (failure).
type BreakerConfig struct {
	ConsecutiveFailures uint32
	RecoveryTimeout     time.Duration
}

// DefaultBreakerConfig trips after 10 consecutive failures and allows a
// retry probe 60s later.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 10, RecoveryTimeout: 60 * time.Second}
}

// NewBreaker builds a gobreaker.CircuitBreaker[any] named name, publishing
// its state transitions to the taxpoynt_circuit_breaker_state gauge.
func NewBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(gaugeValue(to))
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

func gaugeValue(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}

// ErrCircuitOpen is the sentinel error callers can compare against with
// errors.Is when a short-circuited call never reached L2.
var ErrCircuitOpen = apperror.New(apperror.KindCircuitOpen, "circuit breaker open")

// Guard executes fn through breaker, translating gobreaker's own
// ErrOpenState/ErrTooManyRequests into ErrCircuitOpen so callers never
// import gobreaker directly.
func Guard(breaker *gobreaker.CircuitBreaker[any], fn func() (any, error)) (any, error) {
	result, err := breaker.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, ErrCircuitOpen
	}
	return result, err
}
