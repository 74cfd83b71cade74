// Package pipeline assembles the sync pipeline from configuration. Both the server and
// the one-shot redrive command build their components here.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"nexussync/internal/awsclients"
	"nexussync/internal/config"
	"nexussync/internal/llm"
	"nexussync/internal/prompts"
	"nexussync/internal/queue"
	"nexussync/internal/services"
	"nexussync/internal/sources"
	"nexussync/internal/store"
)

// Pipeline holds every wired component
type Pipeline struct {
	Config     *config.Config
	Registry   *sources.Registry
	Table      store.Table
	Queue      queue.Queue
	Gateway    *store.Gateway
	Generator  llm.Generator // nil when enrichment is disabled
	Prompts    *prompts.Store
	Builder    *services.RecordBuilder
	DeadLetter *services.DeadLetterService
	Enrichment *services.EnrichmentService
	Redrive    *services.RedriveService
	Processors map[string]*services.StreamProcessor
}

// New connects to the configured backends and wires the services
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	var aws *awsclients.Clients
	if cfg.NeedsAWS() {
		var err error
		aws, err = awsclients.Load(ctx, cfg.AWS())
		if err != nil {
			return nil, err
		}
		log.Printf("☁️  AWS clients configured (region %s)", aws.Region())
	}

	var dynamo store.DynamoAPI
	if aws != nil && cfg.StoreDriver == store.DriverDynamoDB {
		dynamo = aws.DynamoDB()
	}
	table, err := store.Open(ctx, cfg.Store(), dynamo)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	log.Printf("✅ Record store ready (driver: %s)", cfg.StoreDriver)

	var sqsClient queue.SQSAPI
	if aws != nil && cfg.QueueDriver == queue.DriverSQS {
		sqsClient = aws.SQS()
	}
	q, err := queue.New(ctx, cfg.Queue(), sqsClient)
	if err != nil {
		table.Close(ctx)
		return nil, fmt.Errorf("failed to open dead-letter queue: %w", err)
	}
	log.Printf("✅ Dead-letter queue ready (driver: %s)", cfg.QueueDriver)

	var generator llm.Generator
	if cfg.EnrichmentEnabled {
		var clients llm.Clients
		if aws != nil && cfg.LLMProvider == llm.ProviderBedrock {
			clients.Bedrock = aws.Bedrock()
		}
		generator, err = llm.New(cfg.LLM(), clients)
		if err != nil {
			q.Close()
			table.Close(ctx)
			return nil, fmt.Errorf("failed to configure generation backend: %w", err)
		}
		log.Printf("✅ Generation backend ready (%s, model %s)", cfg.LLMProvider, cfg.LLMModel)
	} else {
		log.Println("⚠️  Enrichment disabled (ENRICHMENT_ENABLED=false)")
	}

	promptStore := prompts.NewStore()
	if cfg.PromptsFile != "" {
		if err := promptStore.LoadFile(cfg.PromptsFile); err != nil {
			log.Printf("⚠️  Failed to load prompt overrides from %s: %v (using built-in templates)", cfg.PromptsFile, err)
		} else {
			log.Printf("✅ Prompt overrides loaded from %s", cfg.PromptsFile)
		}
	}

	registry := sources.NewRegistry(cfg.Stage)
	gateway := store.NewGateway(table)
	builder := services.NewRecordBuilder()
	deadLetters := services.NewDeadLetterService(q)

	enrichCfg := services.DefaultEnrichmentConfig()
	enrichCfg.Enabled = cfg.EnrichmentEnabled
	enrichCfg.MaxAttempts = cfg.EnrichmentMaxAttempts
	enrichCfg.AttemptTimeout = cfg.LLMTimeout
	enrichment := services.NewEnrichmentService(generator, promptStore, deadLetters, enrichCfg)

	redrive := services.NewRedriveService(q, enrichment, gateway, deadLetters, services.RedriveConfig{
		BatchSize:         cfg.RedriveBatchSize,
		MaxRetry:          cfg.RedriveMaxRetry,
		VisibilityTimeout: cfg.RedriveVisibility,
	})

	return &Pipeline{
		Config:     cfg,
		Registry:   registry,
		Table:      table,
		Queue:      q,
		Gateway:    gateway,
		Generator:  generator,
		Prompts:    promptStore,
		Builder:    builder,
		DeadLetter: deadLetters,
		Enrichment: enrichment,
		Redrive:    redrive,
		Processors: services.NewStreamProcessors(registry, builder, enrichment, gateway),
	}, nil
}

// Close releases the backend connections
func (p *Pipeline) Close(ctx context.Context) {
	if err := p.Queue.Close(); err != nil {
		log.Printf("⚠️  Error closing dead-letter queue: %v", err)
	}
	if err := p.Table.Close(ctx); err != nil {
		log.Printf("⚠️  Error closing record store: %v", err)
	}
}
