// Package awsclients builds the AWS SDK clients used by the store, queue and generation
// backends from one shared configuration.
package awsclients

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"nexussync/internal/llm"
)

// Config holds the connection settings shared by every AWS client
type Config struct {
	Region          string
	Endpoint        string // optional; points every client at a local emulator
	AccessKeyID     string // optional (falls back to the default credentials chain)
	SecretAccessKey string
	SessionToken    string
}

// Clients is a lazily populated set of SDK clients over one aws.Config
type Clients struct {
	aws      aws.Config
	endpoint string
}

// Load resolves the AWS configuration. Static credentials are used only when both the
// key id and the secret are set.
func Load(ctx context.Context, cfg Config) (*Clients, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &Clients{aws: awsCfg, endpoint: cfg.Endpoint}, nil
}

// Region returns the resolved region
func (c *Clients) Region() string {
	return c.aws.Region
}

// DynamoDB returns a client for the record table
func (c *Clients) DynamoDB() *dynamodb.Client {
	return dynamodb.NewFromConfig(c.aws, func(o *dynamodb.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
	})
}

// SQS returns a client for the dead-letter queue
func (c *Clients) SQS() *sqs.Client {
	return sqs.NewFromConfig(c.aws, func(o *sqs.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
		}
	})
}

// Bedrock returns a Converse client. The enrichment retry policy owns retries, so the
// SDK's own retryer is turned off.
func (c *Clients) Bedrock() llm.ConverseAPI {
	cfg := c.aws.Copy()
	if c.endpoint != "" {
		cfg.BaseEndpoint = aws.String(c.endpoint)
	}
	return llm.NewBedrockRuntime(cfg)
}
