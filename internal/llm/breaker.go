package llm

import (
	"context"
	"errors"
	"log"
	"time"

	cb "github.com/sony/gobreaker"
)

type circuitBreaker struct {
	next    Generator
	name    string
	breaker *cb.CircuitBreaker
}

// NewCircuitBreaker stops calling a backend after failures consecutive transient errors.
// While open, calls fail fast with a transient BackendError.
func NewCircuitBreaker(next Generator, name string, failures uint32, cooldown time.Duration) Generator {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	settings := cb.Settings{
		Name:        "llm-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A rejected prompt says nothing about backend health
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to cb.State) {
			log.Printf("⚡ [LLM] Circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}
	return &circuitBreaker{next: next, name: name, breaker: cb.NewCircuitBreaker(settings)}
}

func (c *circuitBreaker) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.next.Generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
			return "", &BackendError{Provider: c.name, Transient: true, Err: err}
		}
		return "", err
	}
	return out.(string), nil
}
