package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"vagent/core"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// APIClientConfig configures the HTTP client for the chat and tts
// endpoints.
type APIClientConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:3000".
	BaseURL string
	// UserID identifies the conversation; generated when empty.
	UserID string
	// SystemPrompt, when set, overrides the server's persona preamble.
	SystemPrompt string
}

// APIClient implements Completer and Synthesizer over the server's HTTP
// API, the way a browser session would.
type APIClient struct {
	config APIClientConfig
	client *http.Client
	logger *core.Logger
}

type chatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	UserID       string `json:"userId"`
}

type chatResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type ttsError struct {
	Error string `json:"error"`
}

func NewAPIClient(config APIClientConfig, logger *core.Logger) *APIClient {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:3000"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.UserID == "" {
		config.UserID = uuid.New().String()
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &APIClient{
		config: config,
		client: &http.Client{},
		logger: logger.With(map[string]interface{}{"component": "apiclient", "userId": config.UserID}),
	}
}

// UserID returns the conversation identifier in use.
func (c *APIClient) UserID() string {
	return c.config.UserID
}

// Complete posts the transcript to /api/chat and returns the reply text.
func (c *APIClient) Complete(ctx context.Context, transcript string) (string, error) {
	body, err := sonic.Marshal(chatRequest{
		Message:      transcript,
		SystemPrompt: c.config.SystemPrompt,
		UserID:       c.config.UserID,
	})
	if err != nil {
		return "", &core.GatewayError{Backend: "completion", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &core.GatewayError{Backend: "completion", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &core.GatewayError{Backend: "completion", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &core.GatewayError{Backend: "completion", Err: err}
	}

	var parsed chatResponse
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return "", &core.GatewayError{Backend: "completion", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &core.GatewayError{Backend: "completion", Err: remoteError(parsed.Error, resp.Status)}
	}
	return parsed.Response, nil
}

// Synthesize posts the reply to /api/tts and returns the live audio
// stream.
func (c *APIClient) Synthesize(ctx context.Context, text string) (*core.SpeechStream, error) {
	body, err := sonic.Marshal(ttsRequest{Text: text})
	if err != nil {
		return nil, &core.GatewayError{Backend: "synthesis", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/tts", bytes.NewReader(body))
	if err != nil {
		return nil, &core.GatewayError{Backend: "synthesis", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &core.GatewayError{Backend: "synthesis", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var parsed ttsError
		_ = sonic.Unmarshal(data, &parsed)
		return nil, &core.GatewayError{Backend: "synthesis", Err: remoteError(parsed.Error, resp.Status)}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = core.DefaultAudioContentType
	}
	return &core.SpeechStream{Body: resp.Body, ContentType: contentType}, nil
}

func remoteError(msg, status string) error {
	if msg != "" {
		return errors.New(msg)
	}
	return fmt.Errorf("unexpected status %s", status)
}
