package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrCoolingDown is returned while a provider is in a quota cooldown window
var ErrCoolingDown = errors.New("provider is cooling down after a quota error")

// BackendError describes a failed call to a generation backend
type BackendError struct {
	Provider   string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsTransient reports whether a backend failure is worth retrying: timeouts, throttling,
// server errors and open circuits.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// transientStatus classifies an HTTP status code
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

// isQuotaError detects quota exhaustion or rate limiting
func isQuotaError(statusCode int, responseBody string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	lowerBody := strings.ToLower(responseBody)
	quotaPatterns := []string{
		"quota exceeded",
		"rate limit",
		"too many requests",
		"tokens per minute",
		"requests per minute",
		"daily limit",
		"insufficient_quota",
		"rate_limit_exceeded",
	}

	for _, pattern := range quotaPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}

	return false
}

// cooldownFor picks how long to stop calling a provider after a quota error
func cooldownFor(statusCode int, responseBody string) time.Duration {
	lowerBody := strings.ToLower(responseBody)

	// Daily limit or billing issues
	if strings.Contains(lowerBody, "daily limit") ||
		strings.Contains(lowerBody, "insufficient_quota") {
		return 1 * time.Hour
	}

	if statusCode == http.StatusTooManyRequests ||
		strings.Contains(lowerBody, "tokens per minute") ||
		strings.Contains(lowerBody, "requests per minute") {
		return 30 * time.Second
	}

	return 5 * time.Minute
}
