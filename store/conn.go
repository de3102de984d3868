package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// connAttempt is one in-flight connection attempt. Its result becomes
// visible to every waiter when done is closed.
type connAttempt struct {
	done   chan struct{}
	client *mongo.Client
	err    error
}

// connGuard holds the single process-wide database client. The connection
// is established lazily on first use; concurrent first callers wait on the
// one in-flight attempt instead of racing to create duplicates. A failed
// attempt clears the guard so the next caller retries.
type connGuard struct {
	mu      sync.Mutex
	dial    func(ctx context.Context) (*mongo.Client, error)
	client  *mongo.Client
	attempt *connAttempt
}

func newConnGuard(dial func(ctx context.Context) (*mongo.Client, error)) *connGuard {
	return &connGuard{dial: dial}
}

func (g *connGuard) get(ctx context.Context) (*mongo.Client, error) {
	g.mu.Lock()
	if g.client != nil {
		client := g.client
		g.mu.Unlock()
		return client, nil
	}

	if g.attempt != nil {
		at := g.attempt
		g.mu.Unlock()
		select {
		case <-at.done:
			return at.client, at.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	at := &connAttempt{done: make(chan struct{})}
	g.attempt = at
	g.mu.Unlock()

	at.client, at.err = g.dial(ctx)

	g.mu.Lock()
	if at.err == nil {
		g.client = at.client
	}
	g.attempt = nil
	g.mu.Unlock()
	close(at.done)

	return at.client, at.err
}
