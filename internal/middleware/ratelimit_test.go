package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestRedriveRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/redrive", RedriveRateLimiter(&RateLimitConfig{RedriveMax: 2, RedriveExpiration: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	expected := []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}
	for i, want := range expected {
		resp, err := app.Test(httptest.NewRequest("POST", "/redrive", nil))
		if err != nil {
			t.Fatalf("Request %d failed: %v", i, err)
		}
		if resp.StatusCode != want {
			t.Errorf("Request %d: expected status %d, got %d", i, want, resp.StatusCode)
		}
	}
}

func TestIngressRateLimiterPerSource(t *testing.T) {
	app := fiber.New()
	app.Post("/streams/:source", IngressRateLimiter(&RateLimitConfig{IngressMax: 1, IngressExpiration: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		path     string
		expected int
	}{
		{"/streams/notes", fiber.StatusOK},
		{"/streams/notes", fiber.StatusTooManyRequests},
		{"/streams/contacts", fiber.StatusOK},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("POST", tt.path, nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != tt.expected {
			t.Errorf("%s: expected status %d, got %d", tt.path, tt.expected, resp.StatusCode)
		}
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("RATE_LIMIT_INGRESS", "50")

	config := LoadRateLimitConfig(3)
	if config.RedriveMax != 3 {
		t.Errorf("Expected redrive max 3, got %d", config.RedriveMax)
	}
	if config.IngressMax != 50 {
		t.Errorf("Expected ingress max 50, got %d", config.IngressMax)
	}
}
