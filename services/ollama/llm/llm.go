// Package llm implements the completion backend against a locally hosted
// Ollama instance, using the single-shot generate endpoint rather than the
// chat endpoint. The flattened prompt favors fast generation on small
// local models.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"vagent/core"

	"github.com/bytedance/sonic"
)

// Config holds the configuration for the Ollama backend.
type Config struct {
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"` // cap on generated tokens
}

// DefaultConfig returns a Config with the documented defaults: a local
// instance, temperature 0.7 and an 80-token output cap.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://127.0.0.1:11434",
		Model:       "gemma3:4b",
		Temperature: 0.7,
		NumPredict:  80,
	}
}

// OllamaLLMService generates text completions via Ollama's /api/generate.
type OllamaLLMService struct {
	config Config
	client *http.Client
	logger *core.Logger
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func NewOllamaLLMService(config Config, logger *core.Logger) *OllamaLLMService {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Temperature == 0 {
		config.Temperature = defaults.Temperature
	}
	if config.NumPredict == 0 {
		config.NumPredict = defaults.NumPredict
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &OllamaLLMService{
		config: config,
		client: &http.Client{},
		logger: logger.With(map[string]interface{}{"component": "ollama"}),
	}
}

// GenerateText sends the flattened prompt and returns the backend's text
// field, or the empty string when the field is absent.
func (s *OllamaLLMService) GenerateText(ctx context.Context, prompt string) (string, error) {
	body, err := sonic.Marshal(generateRequest{
		Model:  s.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: s.config.Temperature,
			NumPredict:  s.config.NumPredict,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connection", "keep-alive")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: read response: %w", err)
	}

	var out generateResponse
	if err := sonic.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("ollama: parse response: %w", err)
	}
	return out.Response, nil
}
