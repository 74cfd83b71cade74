package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
)

const cooldownKey = "cooldown"

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint
type OpenAIClient struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	httpClient   *http.Client
	cooldown     *cache.Cache
}

// NewOpenAIClient creates a chat completions client
func NewOpenAIClient(cfg Config) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		httpClient:   &http.Client{Timeout: timeout},
		cooldown:     cache.New(cache.NoExpiration, time.Minute),
	}
}

// Generate sends a single-turn chat completion and returns the assistant message
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if _, cooling := c.cooldown.Get(cooldownKey); cooling {
		return "", &BackendError{Provider: ProviderOpenAI, Transient: true, Err: ErrCoolingDown}
	}

	messages := []map[string]interface{}{}
	if c.systemPrompt != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": c.systemPrompt,
		})
	}
	messages = append(messages, map[string]interface{}{
		"role":    "user",
		"content": prompt,
	})

	requestBody := map[string]interface{}{
		"model":       c.model,
		"messages":    messages,
		"stream":      false,
		"temperature": c.temperature,
	}
	if c.maxTokens > 0 {
		requestBody["max_tokens"] = c.maxTokens
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &BackendError{
			Provider:  ProviderOpenAI,
			Transient: !errors.Is(err, context.Canceled),
			Err:       fmt.Errorf("request failed: %w", err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &BackendError{Provider: ProviderOpenAI, Transient: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		if isQuotaError(resp.StatusCode, string(body)) {
			d := cooldownFor(resp.StatusCode, string(body))
			c.cooldown.Set(cooldownKey, true, d)
			log.Printf("⚠️ [LLM] Quota error from %s, cooling down for %v", c.baseURL, d)
			return "", &BackendError{
				Provider:   ProviderOpenAI,
				StatusCode: resp.StatusCode,
				Transient:  true,
				Err:        fmt.Errorf("quota exceeded: %s", truncate(string(body), 200)),
			}
		}
		return "", &BackendError{
			Provider:   ProviderOpenAI,
			StatusCode: resp.StatusCode,
			Transient:  transientStatus(resp.StatusCode),
			Err:        fmt.Errorf("API error: %s", truncate(string(body), 200)),
		}
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	// A body the client cannot read is a malformed response, handled by the caller's
	// parse path rather than as a backend failure.
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return string(body), nil
	}

	if len(apiResponse.Choices) == 0 {
		return "", nil
	}

	return apiResponse.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
