package agent

import (
	"bufio"
	"io"
	"sync"
)

// Recognizer is the environment-provided speech capture capability. The
// controller depends on it abstractly; a real device microphone pipeline,
// the console recognizer below and a test double all satisfy the same
// small operation set.
type Recognizer interface {
	// Start begins capturing one utterance. Called again between turns.
	Start() error
	// Stop abandons the current capture.
	Stop() error
	// Results delivers finished transcripts.
	Results() <-chan string
	// Errors delivers per-utterance recognition failures.
	Errors() <-chan error
	// Ended is closed when the recognizer will deliver nothing more.
	Ended() <-chan struct{}
}

// ConsoleRecognizer reads typed lines as stand-in transcripts, one line
// per utterance. Lines arriving while no capture is armed are dropped.
type ConsoleRecognizer struct {
	results chan string
	errs    chan error
	ended   chan struct{}

	mu    sync.Mutex
	armed bool
}

func NewConsoleRecognizer(r io.Reader) *ConsoleRecognizer {
	c := &ConsoleRecognizer{
		results: make(chan string),
		errs:    make(chan error),
		ended:   make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

func (c *ConsoleRecognizer) Start() error {
	c.mu.Lock()
	c.armed = true
	c.mu.Unlock()
	return nil
}

func (c *ConsoleRecognizer) Stop() error {
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
	return nil
}

func (c *ConsoleRecognizer) Results() <-chan string {
	return c.results
}

func (c *ConsoleRecognizer) Errors() <-chan error {
	return c.errs
}

func (c *ConsoleRecognizer) Ended() <-chan struct{} {
	return c.ended
}

func (c *ConsoleRecognizer) readLoop(r io.Reader) {
	defer close(c.ended)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		c.mu.Lock()
		armed := c.armed
		if armed {
			c.armed = false // one utterance per Start
		}
		c.mu.Unlock()

		if armed {
			c.results <- line
		}
	}
	if err := scanner.Err(); err != nil {
		c.errs <- err
	}
}
