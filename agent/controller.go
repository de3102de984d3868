// Package agent runs the hands-free conversation loop: capture speech,
// send the transcript for completion, synthesize the reply and play it,
// then resume listening.
package agent

import (
	"context"
	"strings"
	"sync"

	"vagent/core"

	"github.com/google/uuid"
)

// State is the controller's position in the per-turn sequence.
type State int

const (
	StateIdle State = iota
	StateListening
	StateTranscribed
	StateCompleting
	StateSynthesizing
	StateSpeaking
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranscribed:
		return "transcribed"
	case StateCompleting:
		return "completing"
	case StateSynthesizing:
		return "synthesizing"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Completer produces the reply text for a transcript.
type Completer interface {
	Complete(ctx context.Context, transcript string) (string, error)
}

// Synthesizer produces a live speech stream for a reply.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*core.SpeechStream, error)
}

// Player renders a speech stream to completion. started is called once
// audio output has begun.
type Player interface {
	Play(ctx context.Context, stream *core.SpeechStream, started func()) error
}

// ControllerConfig holds the controller's fixed phrases.
type ControllerConfig struct {
	// FallbackReply is spoken when the transcript was empty/failed or the
	// completion gateway failed.
	FallbackReply string `json:"fallback_reply"`
}

// DefaultControllerConfig returns a ControllerConfig with the standard
// fallback phrase.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		FallbackReply: "Sorry, I could not hear you.",
	}
}

// Controller is the per-session turn state machine. At most one turn is in
// flight per instance: turns execute inline in the Run loop, and start
// commands arriving outside Idle/Listening are ignored.
type Controller struct {
	recognizer  Recognizer
	completer   Completer
	synthesizer Synthesizer
	player      Player
	config      ControllerConfig
	logger      *core.Logger
	sessionID   string

	// OnState, when set before Run, observes every state change together
	// with a user-facing status message.
	OnState func(state State, status string)

	mu    sync.Mutex
	state State
}

func NewController(
	recognizer Recognizer,
	completer Completer,
	synthesizer Synthesizer,
	player Player,
	config ControllerConfig,
	logger *core.Logger,
) *Controller {
	if config.FallbackReply == "" {
		config.FallbackReply = DefaultControllerConfig().FallbackReply
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	sessionID := uuid.New().String()
	return &Controller{
		recognizer:  recognizer,
		completer:   completer,
		synthesizer: synthesizer,
		player:      player,
		config:      config,
		logger:      logger.With(map[string]interface{}{"session": sessionID}),
		sessionID:   sessionID,
		state:       StateIdle,
	}
}

// SessionID returns the generated identifier for this controller instance.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(state State, status string) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.logger.Debug("state change", "state", state.String(), "status", status)
	if c.OnState != nil {
		c.OnState(state, status)
	}
}

// Start is the explicit start command: it arms the recognizer and enters
// Listening. While a turn is in flight the command is ignored.
func (c *Controller) Start() error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state != StateIdle && state != StateListening {
		c.logger.Debug("start command ignored", "state", state.String())
		return nil
	}

	c.setState(StateListening, "Listening...")
	return c.recognizer.Start()
}

// Run starts listening and drives the conversation loop until ctx is
// cancelled, the recognizer closes, or a turn ends in the Error state.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(); err != nil {
		c.setState(StateError, "Speech recognition not available")
		return err
	}

	for {
		select {
		case transcript := <-c.recognizer.Results():
			if err := c.turn(ctx, transcript); err != nil {
				return err
			}
		case err := <-c.recognizer.Errors():
			c.logger.Warn("speech recognition failed", "error", err)
			// A failed capture takes the same path as an empty transcript.
			if err := c.turn(ctx, ""); err != nil {
				return err
			}
		case <-c.recognizer.Ended():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// turn executes one full cycle: transcript → reply → speech → playback.
// A synthesis or playback failure is terminal: the controller surfaces the
// Error state and does not resume listening.
func (c *Controller) turn(ctx context.Context, transcript string) error {
	reply := c.config.FallbackReply

	if strings.TrimSpace(transcript) == "" {
		// Empty or failed transcript: keep the fallback reply and skip the
		// completion gateway entirely.
		c.logger.Info("empty transcript, using fallback reply")
	} else {
		c.setState(StateTranscribed, transcript)
		c.setState(StateCompleting, "Processing...")

		text, err := c.completer.Complete(ctx, transcript)
		switch {
		case err != nil:
			c.logger.Warn("completion failed, using fallback reply", "error", err)
		case strings.TrimSpace(text) == "":
			c.logger.Warn("completion returned empty reply, using fallback reply")
		default:
			reply = text
		}
	}

	c.setState(StateSynthesizing, "Processing...")
	stream, err := c.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		c.logger.Error("synthesis failed", "error", err)
		c.setState(StateError, "Error generating speech")
		return err
	}
	defer stream.Close()

	if err := c.player.Play(ctx, stream, func() {
		c.setState(StateSpeaking, "Speaking...")
	}); err != nil {
		c.logger.Error("playback failed", "error", err)
		c.setState(StateError, "Error playing audio")
		return err
	}

	// Hands-free loop: re-enter listening without further user action.
	c.setState(StateIdle, "")
	return c.Start()
}
