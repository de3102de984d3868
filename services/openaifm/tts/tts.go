// Package tts implements the speech synthesis backend against openai.fm's
// generate API. The response body is relayed live: synthesis keeps
// streaming server-side while the caller is already reading.
package tts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"vagent/core"
)

// Config holds the fixed voice configuration sent with every request.
type Config struct {
	BaseURL    string `json:"base_url"`
	Voice      string `json:"voice"`
	Prompt     string `json:"prompt"`     // tone/style descriptor
	Generation string `json:"generation"` // backend generation/version tag
}

const defaultPrompt = "Affect: warm and upbeat\n\n" +
	"Tone: Friendly and conversational, keeping replies light and engaging.\n\n" +
	"Pronunciation: Clear and articulate, with natural emphasis on key phrases.\n\n" +
	"Pause: Brief pauses between statements for a natural speaking rhythm."

// DefaultConfig returns the fixed persona/voice defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://www.openai.fm",
		Voice:      "nova",
		Prompt:     defaultPrompt,
		Generation: "b7e9eb3f-d888-438a-8353-0e8d137aa869",
	}
}

// OpenAIFMTTS synthesizes speech for a text and hands back the live audio
// byte stream without buffering it.
type OpenAIFMTTS struct {
	config Config
	client *http.Client
	logger *core.Logger
}

func NewOpenAIFMTTS(config Config, logger *core.Logger) *OpenAIFMTTS {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Voice == "" {
		config.Voice = defaults.Voice
	}
	if config.Prompt == "" {
		config.Prompt = defaults.Prompt
	}
	if config.Generation == "" {
		config.Generation = defaults.Generation
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &OpenAIFMTTS{
		config: config,
		// No client timeout: it would cut off the still-streaming body.
		client: &http.Client{},
		logger: logger.With(map[string]interface{}{"component": "openaifm"}),
	}
}

// Synthesize issues the generate request and returns the response stream
// as soon as headers arrive. The caller owns the stream and must close it.
func (s *OpenAIFMTTS) Synthesize(ctx context.Context, text string) (*core.SpeechStream, error) {
	params := url.Values{}
	params.Set("input", text)
	params.Set("prompt", s.config.Prompt)
	params.Set("voice", s.config.Voice)
	params.Set("generation", s.config.Generation)

	reqURL := s.config.BaseURL + "/api/generate?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("openaifm: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openaifm: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("openaifm: unexpected status %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = core.DefaultAudioContentType
	}
	return &core.SpeechStream{Body: resp.Body, ContentType: contentType}, nil
}
