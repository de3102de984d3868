// Package playback drives continuous audio output from a progressively
// arriving byte stream. Audible output begins before the stream is fully
// received; completion means all buffered audio was rendered, not that the
// network transfer finished.
package playback

import (
	"context"
	"io"

	"vagent/core"
)

// Sink is the buffering component that accepts chunks and feeds them to
// audio rendering. Sinks are single-use: one stream, then EndOfInput.
type Sink interface {
	// Append hands one chunk to the renderer.
	Append(chunk []byte) error
	// Ready signals once per consumed chunk; the feeder must wait for it
	// before appending the next chunk.
	Ready() <-chan struct{}
	// EndOfInput tells the sink no more chunks will arrive. Idempotent.
	EndOfInput()
	// Played is closed once everything appended has been rendered.
	Played() <-chan struct{}
	// Errors delivers render failures.
	Errors() <-chan error
}

// Config controls one playback run.
type Config struct {
	// ChunkSize is the network read size per chunk.
	ChunkSize int
	// OnStart, when set, is called after the sink accepts the first chunk,
	// the point at which audio output has begun.
	OnStart func()
}

// DefaultConfig returns a Config with the standard chunk size.
func DefaultConfig() Config {
	return Config{ChunkSize: 4096}
}

// Play feeds r into sink chunk by chunk and returns once playback has
// fully rendered. Backpressure is structural: the next read is issued only
// in response to the sink's ready signal, so exactly one chunk-feed is in
// flight at a time. Any read, append or render failure aborts the whole
// operation.
func Play(ctx context.Context, r io.Reader, sink Sink, config Config) error {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	defer sink.EndOfInput()

	buf := make([]byte, config.ChunkSize)
	started := false

	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := sink.Append(chunk); err != nil {
				return &core.PlaybackError{Stage: "append", Err: err}
			}
			if !started {
				started = true
				if config.OnStart != nil {
					config.OnStart()
				}
			}
			select {
			case <-sink.Ready():
			case err := <-sink.Errors():
				return &core.PlaybackError{Stage: "render", Err: err}
			case <-ctx.Done():
				return &core.PlaybackError{Stage: "render", Err: ctx.Err()}
			}
		}
		if readErr == io.EOF {
			sink.EndOfInput()
			break
		}
		if readErr != nil {
			return &core.PlaybackError{Stage: "read", Err: readErr}
		}
	}

	// The transfer is done; playback continues until the sink has rendered
	// everything it buffered.
	select {
	case <-sink.Played():
		return nil
	case err := <-sink.Errors():
		return &core.PlaybackError{Stage: "render", Err: err}
	case <-ctx.Done():
		return &core.PlaybackError{Stage: "render", Err: ctx.Err()}
	}
}
