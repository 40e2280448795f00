package llms

import (
	"context"

	"PrepBot/backend/go/internal/rag_service/rag/interfaces"
	"PrepBot/backend/go/pkg/circuitbreaker"
)

// Guarded runs completions through a circuit breaker. While the breaker is
// open, calls fail immediately with circuitbreaker.ErrCircuitOpen.
type Guarded struct {
	next    interfaces.LLM
	breaker circuitbreaker.CircuitBreaker
}

// NewGuarded wraps next with breaker.
func NewGuarded(next interfaces.LLM, breaker circuitbreaker.CircuitBreaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

// Complete delegates to the wrapped LLM. Caller cancellation does not count
// as a provider failure.
func (g *Guarded) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	var answer string
	var callErr error
	err := g.breaker.Execute(func() error {
		answer, callErr = g.next.Complete(ctx, prompt, temperature)
		if callErr != nil && ctx.Err() != nil {
			return nil
		}
		return callErr
	})
	if err != nil {
		return "", err
	}
	if callErr != nil {
		return "", callErr
	}
	return answer, nil
}

var _ interfaces.LLM = (*Guarded)(nil)
