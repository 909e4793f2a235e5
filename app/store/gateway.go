package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrBackendFailed is returned by the simulated gateway when a round-trip
// is randomly rejected, playing the part of a transient server error.
var ErrBackendFailed = errors.New("backend request failed")

// Gateway models the confirming round-trip of a mutation. Production uses
// the simulated implementation below; tests inject deterministic outcomes.
// A future real network client would implement the same interface.
type Gateway interface {
	Roundtrip(ctx context.Context) error
}

// SimulatedGateway waits a random delay within [minDelay, maxDelay] and then
// fails with the configured probability. The delay always resolves, there is
// no hang to guard against with timeouts.
type SimulatedGateway struct {
	minDelay time.Duration
	maxDelay time.Duration
	failRate float64
}

// NewSimulatedGateway creates a gateway with the given latency window and
// failure probability (0 disables failures, 1 fails every call).
func NewSimulatedGateway(minDelay, maxDelay time.Duration, failRate float64) *SimulatedGateway {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &SimulatedGateway{minDelay: minDelay, maxDelay: maxDelay, failRate: failRate}
}

// Roundtrip suspends for the randomized delay and reports the simulated
// outcome. Context cancellation cuts the delay short and counts as failure.
func (g *SimulatedGateway) Roundtrip(ctx context.Context) error {
	delay := g.minDelay
	if spread := g.maxDelay - g.minDelay; spread > 0 {
		delay += time.Duration(rand.Int64N(int64(spread)))
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if g.failRate > 0 && rand.Float64() < g.failRate {
		return ErrBackendFailed
	}
	return nil
}
