package agent

import (
	"context"

	"vagent/core"
	"vagent/playback"
)

// SinkFactory builds a fresh sink for each playback; sinks are single-use.
type SinkFactory func() (playback.Sink, error)

// StreamPlayer implements Player on top of the playback engine.
type StreamPlayer struct {
	sinks  SinkFactory
	config playback.Config
}

func NewStreamPlayer(sinks SinkFactory, config playback.Config) *StreamPlayer {
	return &StreamPlayer{sinks: sinks, config: config}
}

func (p *StreamPlayer) Play(ctx context.Context, stream *core.SpeechStream, started func()) error {
	sink, err := p.sinks()
	if err != nil {
		return &core.PlaybackError{Stage: "render", Err: err}
	}
	config := p.config
	config.OnStart = started
	return playback.Play(ctx, stream.Body, sink, config)
}
