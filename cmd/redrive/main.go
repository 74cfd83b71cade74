// Command redrive runs one redrive invocation against the configured dead-letter queue
// and prints the counts as JSON.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nexussync/internal/config"
	"nexussync/internal/logging"
	"nexussync/internal/pipeline"
)

func main() {
	logging.Init()

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to build pipeline: %v", err)
	}
	defer p.Close(context.Background())

	result, runErr := p.Redrive.Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(result); err != nil {
		log.Printf("❌ Failed to write result: %v", err)
	}

	if runErr != nil {
		log.Printf("❌ Redrive failed: %v", runErr)
		p.Close(context.Background())
		os.Exit(1)
	}
}
