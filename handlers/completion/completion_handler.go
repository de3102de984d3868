// Package completion is the gateway between conversation history and the
// language-model backend. It flattens the chat structure into a single
// textual prompt, a deliberate simplification for speed over local
// backends that favor single-shot generation.
package completion

import (
	"context"
	"strings"

	"vagent/core"
)

// ICompletionService is a text-generation backend. Implementations live
// under services/ (Ollama, OpenAI-compatible).
type ICompletionService interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Request carries the inputs for one completion call. History is the
// transient working copy assembled for this call; the handler never
// mutates stored state.
type Request struct {
	History []core.Message
	// PromptOverride, when set, replaces the default persona preamble and
	// is prepended even when history is non-empty.
	PromptOverride string
	UserText       string
}

// CompletionHandler builds the linear prompt and calls the backend.
type CompletionHandler struct {
	service ICompletionService
	config  CompletionConfig
	logger  *core.Logger
}

func NewCompletionHandler(service ICompletionService, config CompletionConfig, logger *core.Logger) *CompletionHandler {
	defaults := DefaultConfig()
	if config.Persona == "" {
		config.Persona = defaults.Persona
	}
	if config.PersonaRole == "" {
		config.PersonaRole = defaults.PersonaRole
	}
	if config.FallbackReply == "" {
		config.FallbackReply = defaults.FallbackReply
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &CompletionHandler{
		service: service,
		config:  config,
		logger:  logger.With(map[string]interface{}{"component": "completion"}),
	}
}

// FallbackReply is the fixed phrase substituted when completion fails or
// the transcript was empty.
func (h *CompletionHandler) FallbackReply() string {
	return h.config.FallbackReply
}

// Complete renders the prompt and returns the backend's reply text. Any
// backend failure surfaces as a GatewayError; the caller decides whether
// to substitute the fallback phrase.
func (h *CompletionHandler) Complete(ctx context.Context, req Request) (string, error) {
	prompt := h.renderPrompt(req)

	text, err := h.service.GenerateText(ctx, prompt)
	if err != nil {
		return "", &core.GatewayError{Backend: "completion", Err: err}
	}
	return text, nil
}

// renderPrompt flattens preamble + capped history + the new user message
// into "<role>: <content>" lines joined by newlines.
func (h *CompletionHandler) renderPrompt(req Request) string {
	history := req.History
	if h.config.HistoryLimit > 0 && len(history) > h.config.HistoryLimit {
		history = history[len(history)-h.config.HistoryLimit:]
	}

	msgs := make([]core.Message, 0, len(history)+2)
	switch {
	case req.PromptOverride != "":
		msgs = append(msgs, core.Message{Role: h.config.PersonaRole, Content: req.PromptOverride})
	case len(history) == 0:
		msgs = append(msgs, core.Message{Role: h.config.PersonaRole, Content: h.config.Persona})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, core.Message{Role: core.RoleUser, Content: req.UserText})

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
