// Package llm implements the completion backend against any
// OpenAI-compatible chat completion API, such as OpenRouter. It is the
// hosted alternative to the local Ollama backend.
package llm

import (
	"context"
	"fmt"

	"vagent/core"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the OpenAI-compatible backend.
type Config struct {
	APIKey      string  `json:"-"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
}

// DefaultConfig returns a Config targeting OpenRouter's free tier.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://openrouter.ai/api/v1",
		Model:       "google/gemma-3n-e4b-it:free",
		MaxTokens:   50,
		Temperature: 0.7,
	}
}

// OpenAILLMService generates text completions through the chat completion
// endpoint. The already-flattened prompt is sent as a single user message,
// keeping the single-shot generation model shared with the Ollama backend.
type OpenAILLMService struct {
	config Config
	client *openai.Client
	logger *core.Logger
}

func NewOpenAILLMService(config Config, logger *core.Logger) (*OpenAILLMService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = defaults.Temperature
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL

	return &OpenAILLMService{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With(map[string]interface{}{"component": "openai"}),
	}, nil
}

func (s *OpenAILLMService) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
