package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Drivers accepted by New
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQS    = "sqs"
)

// Config selects and configures the dead-letter queue backend
type Config struct {
	Driver string

	// sqs
	SQSQueueURL string
	SQSWaitTime time.Duration

	// redis
	RedisURL      string
	RedisStream   string
	RedisGroup    string
	RedisConsumer string
}

// New builds the queue for cfg.Driver. sqsClient is only used by the sqs driver.
func New(ctx context.Context, cfg Config, sqsClient SQSAPI) (Queue, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory, "":
		return NewMemoryQueue(), nil
	case DriverRedis:
		return NewRedisQueue(ctx, RedisConfig{
			URL:      cfg.RedisURL,
			Stream:   cfg.RedisStream,
			Group:    cfg.RedisGroup,
			Consumer: cfg.RedisConsumer,
		})
	case DriverSQS:
		if cfg.SQSQueueURL == "" {
			return nil, fmt.Errorf("sqs queue driver requires a queue url")
		}
		if sqsClient == nil {
			return nil, fmt.Errorf("sqs queue driver requires a client")
		}
		return NewSQSQueue(sqsClient, cfg.SQSQueueURL, cfg.SQSWaitTime), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
