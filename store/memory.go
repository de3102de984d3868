package store

import (
	"context"
	"sync"
	"time"

	"vagent/core"
)

// MemoryStore keeps conversations in process memory. It backs development
// setups and tests where no database is configured.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*core.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*core.Conversation),
	}
}

func (s *MemoryStore) FindOrCreate(ctx context.Context, userID string) (*core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[userID]; ok {
		return snapshot(conv), nil
	}
	return &core.Conversation{UserID: userID}, nil
}

func (s *MemoryStore) Append(ctx context.Context, userID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	conv, ok := s.conversations[userID]
	if !ok {
		conv = &core.Conversation{UserID: userID, CreatedAt: now}
		s.conversations[userID] = conv
	}
	conv.Messages = append(conv.Messages, msgs...)
	conv.UpdatedAt = now
	return nil
}

// snapshot returns a working copy so callers cannot mutate the stored
// message sequence.
func snapshot(conv *core.Conversation) *core.Conversation {
	out := *conv
	out.Messages = append([]core.Message(nil), conv.Messages...)
	return &out
}
