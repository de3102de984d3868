// Command agent runs a voice session against a vagent server from the
// terminal: typed lines stand in for transcripts, replies are synthesized
// by the server and piped to a local audio player.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"vagent/agent"
	"vagent/core"
	"vagent/playback"

	"github.com/joho/godotenv"
)

func main() {
	var (
		serverURL    string
		userID       string
		playerCmd    string
		systemPrompt string
		noAudio      bool
	)
	flag.StringVar(&serverURL, "server", "http://localhost:3000", "base URL of the vagent server")
	flag.StringVar(&userID, "user", "", "conversation user id (generated when empty)")
	flag.StringVar(&playerCmd, "player", "ffplay", "audio player binary fed MP3 on stdin")
	flag.StringVar(&systemPrompt, "prompt", "", "override the server's persona preamble")
	flag.BoolVar(&noAudio, "no-audio", false, "discard synthesized audio instead of playing it")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Debug("no .env.local loaded")
	}
	logger := core.GetLogger()

	client := agent.NewAPIClient(agent.APIClientConfig{
		BaseURL:      serverURL,
		UserID:       userID,
		SystemPrompt: systemPrompt,
	}, logger)

	sinks := func() (playback.Sink, error) {
		if noAudio {
			return playback.NewWriterSink(io.Discard), nil
		}
		return newProcessSink(playerCmd)
	}
	player := agent.NewStreamPlayer(sinks, playback.DefaultConfig())

	recognizer := agent.NewConsoleRecognizer(os.Stdin)
	controller := agent.NewController(recognizer, client, client, player, agent.DefaultControllerConfig(), logger)
	controller.OnState = func(state agent.State, status string) {
		if status != "" {
			fmt.Printf("[%s] %s\n", state, status)
		} else {
			fmt.Printf("[%s]\n", state)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Type a message and press enter. Ctrl-C or EOF to quit.")
	if err := controller.Start(); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to start listening")
	}
	if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
		logger.With(map[string]any{"error": err}).Error("session ended")
		os.Exit(1)
	}
}

// processSink pipes audio chunks into an external player's stdin and
// reports playback complete once the player process exits.
type processSink struct {
	*playback.WriterSink
	stdin  io.WriteCloser
	cmd    *exec.Cmd
	played chan struct{}
}

func newProcessSink(binary string) (playback.Sink, error) {
	cmd := exec.Command(binary, "-autoexit", "-nodisp", "-loglevel", "error", "-i", "-")
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("agent: player stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agent: start %s: %w", binary, err)
	}
	s := &processSink{
		WriterSink: playback.NewWriterSink(stdin),
		stdin:      stdin,
		cmd:        cmd,
		played:     make(chan struct{}),
	}
	go s.waitForPlayer()
	return s, nil
}

// Played overrides the writer sink's signal: writing the last chunk to the
// pipe is not the end of audible playback, the player exiting is.
func (s *processSink) Played() <-chan struct{} {
	return s.played
}

func (s *processSink) waitForPlayer() {
	<-s.WriterSink.Done()
	s.stdin.Close()
	s.cmd.Wait()
	close(s.played)
}
