// Package synthesis is the gateway to the speech synthesis backend. It
// relays the backend's byte stream unmodified so playback can start while
// synthesis is still running server-side.
package synthesis

import (
	"context"
	"strings"

	"vagent/core"
)

// ISynthesisService is a text-to-speech backend returning a live stream.
type ISynthesisService interface {
	Synthesize(ctx context.Context, text string) (*core.SpeechStream, error)
}

// SynthesisHandler validates input and forwards to the backend. There is
// no retry: synthesis is not idempotent against cost and latency, so a
// failure here is terminal for the turn.
type SynthesisHandler struct {
	service ISynthesisService
	logger  *core.Logger
}

func NewSynthesisHandler(service ISynthesisService, logger *core.Logger) *SynthesisHandler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &SynthesisHandler{
		service: service,
		logger:  logger.With(map[string]interface{}{"component": "synthesis"}),
	}
}

// Synthesize returns the backend's live audio stream for text. The caller
// owns the stream and must close it.
func (h *SynthesisHandler) Synthesize(ctx context.Context, text string) (*core.SpeechStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &core.ValidationError{Msg: "No text provided"}
	}

	stream, err := h.service.Synthesize(ctx, text)
	if err != nil {
		return nil, &core.GatewayError{Backend: "synthesis", Err: err}
	}
	return stream, nil
}
