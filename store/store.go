// Package store holds the durable conversation log, keyed by the opaque
// user identifier supplied by the client.
package store

import (
	"context"

	"vagent/core"
)

// ConversationStore is the persistence boundary for conversation history.
//
// FindOrCreate looks up the conversation for userID. When none exists it
// returns an empty one without persisting it; the conversation is first
// written on Append. Append adds the given messages, in order, to the end
// of the stored sequence. Append failures are never fatal to a turn; the
// caller logs them and continues.
type ConversationStore interface {
	FindOrCreate(ctx context.Context, userID string) (*core.Conversation, error)
	Append(ctx context.Context, userID string, msgs ...core.Message) error
}
