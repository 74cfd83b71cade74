package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

// ConverseAPI is the slice of the Bedrock runtime client the generator uses
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// NewBedrockRuntime builds a runtime client with SDK retries turned off, so the caller's
// retry policy is the only one in effect.
func NewBedrockRuntime(cfg aws.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		o.RetryMaxAttempts = 1
	})
}

// BedrockClient generates text with the Bedrock Converse API
type BedrockClient struct {
	api          ConverseAPI
	modelID      string
	systemPrompt string
	maxTokens    int32
	temperature  float32
}

// NewBedrockClient creates a Converse-backed generator
func NewBedrockClient(api ConverseAPI, cfg Config) *BedrockClient {
	maxTokens := int32(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &BedrockClient{
		api:          api,
		modelID:      cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    maxTokens,
		temperature:  float32(cfg.Temperature),
	}
}

func (c *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.maxTokens),
			Temperature: aws.Float32(c.temperature),
		},
	}
	if c.systemPrompt != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: c.systemPrompt},
		}
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return "", classifyBedrockError(err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", nil
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	return sb.String(), nil
}

func classifyBedrockError(err error) error {
	be := &BackendError{Provider: ProviderBedrock, Err: err}

	var (
		throttling  *types.ThrottlingException
		timeout     *types.ModelTimeoutException
		internal    *types.InternalServerException
		unavailable *types.ServiceUnavailableException
		notReady    *types.ModelNotReadyException
	)
	switch {
	case errors.As(err, &throttling):
		be.StatusCode = 429
		be.Transient = true
	case errors.As(err, &timeout):
		be.StatusCode = 408
		be.Transient = true
	case errors.As(err, &internal):
		be.StatusCode = 500
		be.Transient = true
	case errors.As(err, &unavailable):
		be.StatusCode = 503
		be.Transient = true
	case errors.As(err, &notReady):
		be.StatusCode = 429
		be.Transient = true
	case errors.Is(err, context.Canceled):
		be.Transient = false
	default:
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			be.Err = fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
			be.Transient = apiErr.ErrorFault() == smithy.FaultServer
		} else {
			// Transport-level failures never reached the service
			be.Transient = true
		}
	}
	return be
}
