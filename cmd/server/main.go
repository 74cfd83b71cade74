package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"nexussync/internal/config"
	"nexussync/internal/handlers"
	"nexussync/internal/jobs"
	"nexussync/internal/logging"
	"nexussync/internal/middleware"
	"nexussync/internal/pipeline"
	"nexussync/internal/preflight"
	"nexussync/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting nexussync server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Stage: %s, Store: %s, Queue: %s)",
		cfg.Port, cfg.Stage, cfg.StoreDriver, cfg.QueueDriver)

	// Pipeline metrics must exist before any service is built
	services.InitMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to build pipeline: %v", err)
	}
	defer p.Close(context.Background())

	results := preflight.NewChecker(cfg, p.Table, p.Queue, p.Registry, p.Generator).RunAll(ctx)
	if preflight.HasFailures(results) {
		log.Fatal("❌ Pre-flight checks failed, refusing to start")
	}

	if cfg.PromptsFile != "" {
		go p.Prompts.Watch(ctx, cfg.PromptsFile)
	}

	// Periodic redrive
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	trigger := jobs.Trigger{Interval: cfg.RedriveInterval, Cron: cfg.RedriveCron}
	if trigger.Cron != "" || trigger.Interval > 0 {
		if err := jobScheduler.Register(jobs.NewRedriveJob(p.Redrive), trigger); err != nil {
			log.Fatalf("❌ Failed to schedule redrive: %v", err)
		}
	} else {
		log.Println("⚠️  Periodic redrive disabled (REDRIVE_INTERVAL=0 and no REDRIVE_CRON)")
	}
	jobScheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "nexussync",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 15 * time.Minute, // a batch may wait on several enrichment retries
		IdleTimeout:  120 * time.Second,
		BodyLimit:    10 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("nexussync")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig(cfg.RedriveTriggerLimit)
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Ingress=%d/min per source, Redrive=%d/min",
		rateLimitConfig.IngressMax,
		rateLimitConfig.RedriveMax,
	)

	handlers.Register(app, handlers.Handlers{
		Stream:  handlers.NewStreamHandler(p.Registry, p.Processors),
		Redrive: handlers.NewRedriveHandler(p.Redrive),
		Health:  handlers.NewHealthHandler(p.Table, p.Queue, p.Registry, jobScheduler),
	}, rateLimitConfig)

	log.Printf("✅ Server ready on port %s", cfg.Port)
	for _, t := range p.Registry.List() {
		log.Printf("📥 Stream ingress: http://localhost:%s/api/streams/%s/events (%s)", cfg.Port, t.ID(), t.SourceName())
	}
	log.Printf("🔁 Manual redrive: POST http://localhost:%s/api/admin/redrive", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		// Stop background jobs
		if err := jobScheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping job scheduler: %v", err)
		}

		// Stop the prompt watcher
		cancel()

		// Shutdown Fiber, letting in-flight batches finish
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
