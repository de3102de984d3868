// Package server exposes the turn protocol over HTTP: /api/chat runs the
// conversation side of a turn, /api/tts relays the synthesis stream, and
// /ws/status broadcasts request lifecycle events to observer UIs.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"vagent/core"
	"vagent/handlers/completion"
	"vagent/handlers/synthesis"
	"vagent/store"

	"github.com/bytedance/sonic"
)

const (
	appendTimeout   = 10 * time.Second
	relayBufferSize = 4096
)

type Server struct {
	store      store.ConversationStore
	completion *completion.CompletionHandler
	synthesis  *synthesis.SynthesisHandler
	hub        *StatusHub
	logger     *core.Logger
}

func New(
	st store.ConversationStore,
	completionHandler *completion.CompletionHandler,
	synthesisHandler *synthesis.SynthesisHandler,
	hub *StatusHub,
	logger *core.Logger,
) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		store:      st,
		completion: completionHandler,
		synthesis:  synthesisHandler,
		hub:        hub,
		logger:     logger.With(map[string]interface{}{"component": "server"}),
	}
}

// Close disconnects any status observers. The HTTP listener is shut down
// by the caller.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}

// Routes returns the HTTP handler for all endpoints.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/tts", s.handleTTS)
	if s.hub != nil {
		mux.HandleFunc("GET /ws/status", s.hub.HandleWS)
	}
	return mux
}

type chatRequest struct {
	Message      string `json:"message"`
	SystemPrompt string `json:"systemPrompt"`
	UserID       string `json:"userId"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No message provided"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No userId provided"})
		return
	}

	logger := s.logger.With(map[string]interface{}{"userId": req.UserID})
	s.hub.Broadcast("completing", req.UserID)

	conv, err := s.store.FindOrCreate(r.Context(), req.UserID)
	if err != nil {
		// Store trouble never blocks the turn: proceed with empty history.
		logger.Warn("conversation lookup failed, continuing without history", "error", err)
		conv = &core.Conversation{UserID: req.UserID}
	} else {
		logger.Debug("conversation loaded", "messages", len(conv.Messages))
	}

	reply, err := s.completion.Complete(r.Context(), completion.Request{
		History:        conv.Messages,
		PromptOverride: req.SystemPrompt,
		UserText:       req.Message,
	})
	if err != nil {
		logger.Error("completion failed", "error", err)
		s.hub.Broadcast("error", req.UserID)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to generate response"})
		return
	}

	// Best-effort persistence: the reply goes out without waiting on the
	// store, and a write failure is logged rather than failing the turn.
	userMsg := core.NewMessage(core.RoleUser, req.Message)
	assistantMsg := core.NewMessage(core.RoleAssistant, reply)
	go s.persistTurn(logger, req.UserID, userMsg, assistantMsg)

	s.hub.Broadcast("completed", req.UserID)
	writeJSON(w, http.StatusOK, chatResponse{Response: reply})
}

func (s *Server) persistTurn(logger *core.Logger, userID string, msgs ...core.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := s.store.Append(ctx, userID, msgs...); err != nil {
		logger.Warn("failed to persist turn", "error", err)
	}
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	stream, err := s.synthesis.Synthesize(r.Context(), req.Text)
	if err != nil {
		var validation *core.ValidationError
		if errors.As(err, &validation) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No text provided"})
			return
		}
		s.logger.Error("synthesis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to generate speech"})
		return
	}
	defer stream.Close()

	s.hub.Broadcast("synthesizing", "")

	// Relay the still-filling stream chunk by chunk so the client can start
	// playback before synthesis finishes server-side.
	w.Header().Set("Content-Type", stream.ContentType)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, relayBufferSize)
	for {
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				s.logger.Debug("tts client went away", "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return
		}
		if readErr != nil {
			s.logger.Warn("tts stream interrupted", "error", readErr)
			return
		}
	}
}

func decodeJSON(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
