package summary

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// GuardSettings tunes the circuit breaker around a backend.
type GuardSettings struct {
	// ConsecutiveFailures trips the breaker. Default 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open. Default 30s.
	OpenTimeout time.Duration
	// HalfOpenRequests are let through to probe recovery. Default 1.
	HalfOpenRequests uint32
}

// Guard wraps a Backend with a circuit breaker. While the breaker is open,
// calls fail immediately instead of waiting on a provider that is down.
// It never retries.
type Guard struct {
	next    Backend
	breaker *gobreaker.CircuitBreaker[completion]
}

type completion struct {
	content string
	model   string
}

// NewGuard wraps next.
func NewGuard(next Backend, s GuardSettings) *Guard {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the provider's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("⚡ Summary backend %s breaker: %s -> %s", name, from, to)
		},
	}

	return &Guard{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[completion](settings),
	}
}

// Name implements Backend.
func (g *Guard) Name() string { return g.next.Name() }

// Complete implements Backend.
func (g *Guard) Complete(ctx context.Context, systemPrompt, text string) (string, string, error) {
	out, err := g.breaker.Execute(func() (completion, error) {
		content, model, err := g.next.Complete(ctx, systemPrompt, text)
		return completion{content: content, model: model}, err
	})
	if err != nil {
		return "", "", err
	}
	return out.content, out.model, nil
}

// IsOpen reports whether err came from a breaker refusing the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
