package digitalocean

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// InferenceBaseURL is the DigitalOcean AI Inference API base URL
	InferenceBaseURL = "https://inference.do-ai.run"
	// DefaultInferenceTimeout is longer for LLM inference requests
	DefaultInferenceTimeout = 120 * time.Second
	// DefaultInferenceModel is the default model for inference
	DefaultInferenceModel = "openai-gpt-oss-120b"
)

// InferenceClient handles direct LLM inference API calls over the OpenAI-compatible endpoint
type InferenceClient struct {
	client openai.Client
	model  string
}

// InferenceConfig holds configuration for the inference client
type InferenceConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Model      string
	HTTPClient *http.Client // Optional (tests)
}

// NewInferenceClient creates a new DigitalOcean AI Inference client.
// Retries are left to the caller so attempts and backoff stay in one place.
func NewInferenceClient(config InferenceConfig) *InferenceClient {
	if config.BaseURL == "" {
		config.BaseURL = InferenceBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultInferenceTimeout
	}
	if config.Model == "" {
		config.Model = DefaultInferenceModel
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	client := openai.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(versionedBaseURL(config.BaseURL)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &InferenceClient{
		client: client,
		model:  config.Model,
	}
}

// versionedBaseURL makes sure requests land on {base}/v1/chat/completions
func versionedBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/"
}

// InferenceOption is a function that modifies the inference request
type InferenceOption func(*openai.ChatCompletionNewParams)

// WithInferenceTemperature sets the temperature for the request
func WithInferenceTemperature(temp float64) InferenceOption {
	return func(req *openai.ChatCompletionNewParams) {
		req.Temperature = openai.Float(temp)
	}
}

// WithInferenceMaxTokens sets the max tokens for the request
func WithInferenceMaxTokens(tokens int) InferenceOption {
	return func(req *openai.ChatCompletionNewParams) {
		req.MaxTokens = openai.Int(int64(tokens))
	}
}

// WithResponseFormatJSON enables JSON object output mode
func WithResponseFormatJSON() InferenceOption {
	return func(req *openai.ChatCompletionNewParams) {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
}

// SimpleCompletion sends a single-turn system + user completion and returns the first choice
func (c *InferenceClient) SimpleCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...InferenceOption) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.3), // Default temperature for more deterministic output
		MaxTokens:   openai.Int(4096),
	}

	for _, opt := range options {
		opt(&params)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("inference API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from inference API")
	}

	return resp.Choices[0].Message.Content, nil
}

// JSONCompletion asks for raw JSON output
func (c *InferenceClient) JSONCompletion(ctx context.Context, systemPrompt, userPrompt string, options ...InferenceOption) (string, error) {
	enhancedSystemPrompt := systemPrompt + "\n\nYou MUST respond with valid JSON only. Do not include any markdown formatting, code blocks, or explanatory text. Output raw JSON only."

	return c.SimpleCompletion(ctx, enhancedSystemPrompt, userPrompt, options...)
}

// HealthCheck verifies the inference API is accessible
func (c *InferenceClient) HealthCheck(ctx context.Context) error {
	_, err := c.SimpleCompletion(ctx, "You are a health check.", "Say 'ok' if you can hear me.", WithInferenceMaxTokens(10))
	return err
}
