package completion

import "vagent/core"

// CompletionConfig controls prompt assembly for the completion gateway.
type CompletionConfig struct {
	// Persona is prepended as a preamble message when the conversation
	// history is empty and the request carries no prompt override.
	Persona string `json:"persona"`
	// PersonaRole is the role the preamble is tagged with. The deployed
	// behavior tags it "user"; see DESIGN.md for the rationale.
	PersonaRole core.Role `json:"persona_role"`
	// HistoryLimit caps how many trailing history messages are rendered
	// into the prompt. Zero disables the cap. The stored history is never
	// truncated.
	HistoryLimit int `json:"history_limit"`
	// FallbackReply is returned by callers when the gateway fails; kept
	// here so server and agent share one configured phrase.
	FallbackReply string `json:"fallback_reply"`
}

// DefaultConfig returns a CompletionConfig with a short-reply persona and
// a bounded prompt window.
func DefaultConfig() CompletionConfig {
	return CompletionConfig{
		Persona:       "You are a friendly voice assistant. Respond in 10 or less words.",
		PersonaRole:   core.RoleUser,
		HistoryLimit:  20,
		FallbackReply: "Sorry, I could not hear you.",
	}
}
