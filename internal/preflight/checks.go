package preflight

import (
	"context"
	"fmt"
	"log"
	"time"

	"nexussync/internal/config"
	"nexussync/internal/llm"
	"nexussync/internal/queue"
	"nexussync/internal/sources"
	"nexussync/internal/store"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before the pipeline starts
type Checker struct {
	table     store.Table
	queue     queue.Queue
	registry  *sources.Registry
	generator llm.Generator
	cfg       *config.Config
	timeout   time.Duration
}

// NewChecker creates a new preflight checker. generator may be nil when enrichment is
// disabled.
func NewChecker(cfg *config.Config, table store.Table, q queue.Queue, registry *sources.Registry, generator llm.Generator) *Checker {
	return &Checker{
		table:     table,
		queue:     q,
		registry:  registry,
		generator: generator,
		cfg:       cfg,
		timeout:   5 * time.Second,
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkStoreConnection(ctx),
		c.checkQueueConnection(ctx),
		c.checkSourceRegistry(),
		c.checkGenerationBackend(),
		c.checkDrivers(),
	}

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkStoreConnection verifies the unified table is reachable
func (c *Checker) checkStoreConnection(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.table.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Record Store",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot reach %s store", c.cfg.StoreDriver),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Record Store",
		Status:  "pass",
		Message: fmt.Sprintf("%s store reachable", c.cfg.StoreDriver),
	}
}

// checkQueueConnection verifies the dead-letter queue is reachable
func (c *Checker) checkQueueConnection(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.queue.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Dead-Letter Queue",
			Status:  "fail",
			Message: fmt.Sprintf("Cannot reach %s queue", c.cfg.QueueDriver),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Dead-Letter Queue",
		Status:  "pass",
		Message: fmt.Sprintf("%s queue reachable", c.cfg.QueueDriver),
	}
}

// checkSourceRegistry verifies at least one source is registered
func (c *Checker) checkSourceRegistry() CheckResult {
	if c.registry == nil || c.registry.Count() == 0 {
		return CheckResult{
			Name:    "Source Registry",
			Status:  "fail",
			Message: "No sources registered",
		}
	}

	return CheckResult{
		Name:    "Source Registry",
		Status:  "pass",
		Message: fmt.Sprintf("%d sources registered for stage %s", c.registry.Count(), c.cfg.Stage),
	}
}

// checkGenerationBackend verifies enrichment has a backend to call
func (c *Checker) checkGenerationBackend() CheckResult {
	if !c.cfg.EnrichmentEnabled {
		return CheckResult{
			Name:    "Generation Backend",
			Status:  "warning",
			Message: "Enrichment disabled; records are written without summaries",
		}
	}
	if c.generator == nil {
		return CheckResult{
			Name:    "Generation Backend",
			Status:  "fail",
			Message: "Enrichment enabled but no generation backend configured",
		}
	}
	if c.cfg.LLMProvider == llm.ProviderOpenAI && c.cfg.LLMAPIKey == "" {
		return CheckResult{
			Name:    "Generation Backend",
			Status:  "warning",
			Message: "LLM_API_KEY not set (only local OpenAI-compatible servers will accept requests)",
		}
	}

	return CheckResult{
		Name:    "Generation Backend",
		Status:  "pass",
		Message: fmt.Sprintf("%s backend configured (model %s)", c.cfg.LLMProvider, c.cfg.LLMModel),
	}
}

// checkDrivers warns when production runs on in-process backends
func (c *Checker) checkDrivers() CheckResult {
	if c.cfg.Environment == "production" &&
		(c.cfg.StoreDriver == store.DriverMemory || c.cfg.QueueDriver == queue.DriverMemory) {
		return CheckResult{
			Name:    "Drivers",
			Status:  "warning",
			Message: "In-memory store or queue in production; data is lost on restart",
		}
	}

	return CheckResult{
		Name:    "Drivers",
		Status:  "pass",
		Message: fmt.Sprintf("store=%s queue=%s", c.cfg.StoreDriver, c.cfg.QueueDriver),
	}
}
