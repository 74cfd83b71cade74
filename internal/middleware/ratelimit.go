package middleware

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Stream ingress limits (per source)
	IngressMax        int
	IngressExpiration time.Duration

	// Manual redrive trigger (global); each call drains a batch and calls the backend
	RedriveMax        int
	RedriveExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		// Ingress: 600/min per source, well above what a change feed pushes
		IngressMax:        600,
		IngressExpiration: 1 * time.Minute,

		// Redrive: 6/min
		RedriveMax:        6,
		RedriveExpiration: 1 * time.Minute,
	}
}

// LoadRateLimitConfig loads config from environment variables with defaults.
// redriveMax comes from the application config; values <= 0 keep the default.
func LoadRateLimitConfig(redriveMax int) *RateLimitConfig {
	config := DefaultRateLimitConfig()

	if redriveMax > 0 {
		config.RedriveMax = redriveMax
	}

	if v := os.Getenv("RATE_LIMIT_INGRESS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.IngressMax = n
		}
	}

	// Development mode: more lenient limits
	if os.Getenv("ENVIRONMENT") == "development" {
		config.IngressMax = 10000
		log.Println("⚠️  [RATE-LIMIT] Development mode: using relaxed ingress limits")
	}

	return config
}

// IngressRateLimiter limits change-feed batches per source
func IngressRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.IngressMax,
		Expiration: config.IngressExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "ingress:" + c.Params("source")
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Ingress limit reached for source: %s", c.Params("source"))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many batches for this source. Please slow down.",
				"retry_after": int(config.IngressExpiration.Seconds()),
			})
		},
	})
}

// RedriveRateLimiter limits manual redrive triggers across all callers
func RedriveRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.RedriveMax,
		Expiration: config.RedriveExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "redrive"
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Redrive trigger limit reached (caller %s)", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Redrive was triggered too often. Please wait.",
				"retry_after": int(config.RedriveExpiration.Seconds()),
			})
		},
	})
}
