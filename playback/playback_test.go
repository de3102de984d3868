package playback

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"vagent/core"

	"github.com/stretchr/testify/require"
)

// manualSink gives the test full control over the sink's signals.
type manualSink struct {
	mu       sync.Mutex
	appended [][]byte
	ended    bool

	ready  chan struct{}
	played chan struct{}
	errs   chan error
}

func newManualSink() *manualSink {
	return &manualSink{
		ready:  make(chan struct{}, 1),
		played: make(chan struct{}),
		errs:   make(chan error, 1),
	}
}

func (s *manualSink) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, chunk)
	return nil
}

func (s *manualSink) Ready() <-chan struct{} { return s.ready }

func (s *manualSink) EndOfInput() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

func (s *manualSink) Played() <-chan struct{} { return s.played }
func (s *manualSink) Errors() <-chan error    { return s.errs }

func (s *manualSink) appendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func TestPlayStartsBeforeStreamComplete(t *testing.T) {
	pr, pw := io.Pipe()
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Play(context.Background(), pr, sink, Config{
			ChunkSize: 8,
			OnStart:   func() { close(started) },
		})
	}()

	// Only the first chunk has arrived; the stream is still open.
	_, err := pw.Write([]byte("chunk-one"))
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("playback did not start while the stream was still arriving")
	}
	select {
	case err := <-done:
		t.Fatalf("playback finished before end of stream: %v", err)
	default:
	}

	_, err = pw.Write([]byte("chunk-two"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}
	require.Equal(t, "chunk-onechunk-two", buf.String())
}

func TestPlayBackpressureGatesReads(t *testing.T) {
	sink := newManualSink()
	reader := strings.NewReader("aaaabbbbcccc")

	done := make(chan error, 1)
	go func() {
		done <- Play(context.Background(), reader, sink, Config{ChunkSize: 4})
	}()

	require.Eventually(t, func() bool { return sink.appendCount() == 1 }, time.Second, 5*time.Millisecond)

	// No ready signal sent: the feeder must not move on.
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, sink.appendCount())

	sink.ready <- struct{}{}
	require.Eventually(t, func() bool { return sink.appendCount() == 2 }, time.Second, 5*time.Millisecond)

	sink.ready <- struct{}{}
	require.Eventually(t, func() bool { return sink.appendCount() == 3 }, time.Second, 5*time.Millisecond)
	sink.ready <- struct{}{}

	// Input is exhausted; completion still waits for the render signal.
	time.Sleep(50 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("playback finished before everything was rendered: %v", err)
	default:
	}

	close(sink.played)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("playback did not finish after render completion")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.True(t, sink.ended)
	require.Equal(t, [][]byte{[]byte("aaaa"), []byte("bbbb"), []byte("cccc")}, sink.appended)
}

type failingReader struct{ err error }

func (r failingReader) Read(p []byte) (int, error) { return 0, r.err }

func TestPlayReadFailureAborts(t *testing.T) {
	sink := newManualSink()
	readErr := errors.New("stream reset")

	err := Play(context.Background(), failingReader{err: readErr}, sink, DefaultConfig())
	var pbErr *core.PlaybackError
	require.ErrorAs(t, err, &pbErr)
	require.Equal(t, "read", pbErr.Stage)
	require.ErrorIs(t, err, readErr)
	require.True(t, sink.ended)
}

func TestPlayRenderFailureAborts(t *testing.T) {
	sink := newManualSink()
	renderErr := errors.New("device gone")
	sink.errs <- renderErr

	err := Play(context.Background(), strings.NewReader("audio"), sink, DefaultConfig())
	var pbErr *core.PlaybackError
	require.ErrorAs(t, err, &pbErr)
	require.Equal(t, "render", pbErr.Stage)
	require.ErrorIs(t, err, renderErr)
}

func TestPlayContextCancelAborts(t *testing.T) {
	sink := newManualSink()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Play(ctx, strings.NewReader("audio"), sink, DefaultConfig())
	}()

	require.Eventually(t, func() bool { return sink.appendCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("playback did not abort on cancellation")
	}
	require.True(t, sink.ended)
}
