package llm

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

// NewRateLimited caps the request rate to a backend. Callers block until a token is
// available or ctx is done.
func NewRateLimited(next Generator, rps float64, burst int) Generator {
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		// the next token arrives after ctx's deadline
		return "", &BackendError{Provider: "rate-limit", Transient: true, Err: err}
	}
	return r.next.Generate(ctx, prompt)
}
