package agent

import (
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

type fakeRecognizer struct {
	results chan string
	errs    chan error
	ended   chan struct{}

	mu     sync.Mutex
	starts int
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{
		results: make(chan string),
		errs:    make(chan error),
		ended:   make(chan struct{}),
	}
}

func (r *fakeRecognizer) Start() error {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
	return nil
}

func (r *fakeRecognizer) Stop() error            { return nil }
func (r *fakeRecognizer) Results() <-chan string { return r.results }
func (r *fakeRecognizer) Errors() <-chan error   { return r.errs }
func (r *fakeRecognizer) Ended() <-chan struct{} { return r.ended }

func (r *fakeRecognizer) startCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

type fakeCompleter struct {
	mu         sync.Mutex
	transcript string
	calls      int
	reply      string
	err        error
}

func (c *fakeCompleter) Complete(ctx context.Context, transcript string) (string, error) {
	c.mu.Lock()
	c.transcript = transcript
	c.calls++
	c.mu.Unlock()
	return c.reply, c.err
}

func (c *fakeCompleter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (s *fakeSynthesizer) Synthesize(ctx context.Context, text string) (*core.SpeechStream, error) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &core.SpeechStream{Body: io.NopCloser(strings.NewReader("audio"))}, nil
}

func (s *fakeSynthesizer) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fakePlayer struct{ err error }

func (p *fakePlayer) Play(ctx context.Context, stream *core.SpeechStream, started func()) error {
	if p.err != nil {
		return p.err
	}
	started()
	return nil
}

type fixture struct {
	recognizer  *fakeRecognizer
	completer   *fakeCompleter
	synthesizer *fakeSynthesizer
	player      *fakePlayer
	controller  *Controller
	states      chan State
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		recognizer:  newFakeRecognizer(),
		completer:   &fakeCompleter{reply: "the reply"},
		synthesizer: &fakeSynthesizer{},
		player:      &fakePlayer{},
		states:      make(chan State, 64),
	}
	f.controller = NewController(f.recognizer, f.completer, f.synthesizer, f.player, DefaultControllerConfig(), nil)
	f.controller.OnState = func(state State, status string) { f.states <- state }
	return f
}

func (f *fixture) run(t *testing.T) (<-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.controller.Run(ctx) }()
	return done, cancel
}

func (f *fixture) waitState(t *testing.T, want State) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case got := <-f.states:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("never reached state %v", want)
		}
	}
}

func TestTurnHappyPath(t *testing.T) {
	f := newFixture(t)
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.results <- "hello there"

	for _, want := range []State{StateTranscribed, StateCompleting, StateSynthesizing, StateSpeaking, StateIdle, StateListening} {
		f.waitState(t, want)
	}

	require.Equal(t, "hello there", f.completer.transcript)
	require.Equal(t, []string{"the reply"}, f.synthesizer.spoken())
	// Listening was re-armed for the next turn.
	require.Eventually(t, func() bool { return f.recognizer.startCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestEmptyTranscriptSkipsCompletion(t *testing.T) {
	f := newFixture(t)
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.results <- "   "
	f.waitState(t, StateSpeaking)

	require.Zero(t, f.completer.callCount())
	require.Equal(t, []string{"Sorry, I could not hear you."}, f.synthesizer.spoken())

	cancel()
	<-done
}

func TestRecognitionErrorFallsBack(t *testing.T) {
	f := newFixture(t)
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.errs <- errors.New("no speech detected")
	f.waitState(t, StateSpeaking)

	require.Zero(t, f.completer.callCount())
	require.Equal(t, []string{"Sorry, I could not hear you."}, f.synthesizer.spoken())

	cancel()
	<-done
}

func TestCompletionFailureSpeaksFallback(t *testing.T) {
	f := newFixture(t)
	f.completer.err = errors.New("backend down")
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.results <- "hello"
	f.waitState(t, StateSpeaking)

	require.Equal(t, 1, f.completer.callCount())
	require.Equal(t, []string{"Sorry, I could not hear you."}, f.synthesizer.spoken())

	cancel()
	<-done
}

func TestEmptyCompletionSpeaksFallback(t *testing.T) {
	f := newFixture(t)
	f.completer.reply = "  "
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.results <- "hello"
	f.waitState(t, StateSpeaking)

	require.Equal(t, []string{"Sorry, I could not hear you."}, f.synthesizer.spoken())

	cancel()
	<-done
}

func TestSynthesisFailureEndsSession(t *testing.T) {
	f := newFixture(t)
	synthErr := errors.New("tts down")
	f.synthesizer.err = synthErr
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.results <- "hello"
	f.waitState(t, StateError)

	require.ErrorIs(t, <-done, synthErr)
	// Terminal: listening was not re-armed.
	require.Equal(t, 1, f.recognizer.startCount())
	require.Equal(t, StateError, f.controller.State())
}

func TestPlaybackFailureEndsSession(t *testing.T) {
	f := newFixture(t)
	playErr := errors.New("device gone")
	f.player.err = playErr
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	f.recognizer.results <- "hello"
	f.waitState(t, StateError)

	require.ErrorIs(t, <-done, playErr)
}

func TestRecognizerEndStopsRun(t *testing.T) {
	f := newFixture(t)
	done, cancel := f.run(t)
	defer cancel()

	f.waitState(t, StateListening)
	close(f.recognizer.ended)
	require.NoError(t, <-done)
}

func TestStartIgnoredMidTurn(t *testing.T) {
	f := newFixture(t)
	f.controller.setState(StateCompleting, "")

	require.NoError(t, f.controller.Start())
	require.Zero(t, f.recognizer.startCount())
	require.Equal(t, StateCompleting, f.controller.State())
}
