package playback

import (
	"errors"
	"io"
	"sync"

	"vagent/utils/audio"
)

// ErrSinkClosed is returned by Append after the render loop has stopped.
var ErrSinkClosed = errors.New("playback: sink closed")

// WriterSink renders audio by writing chunks to an io.Writer, typically
// the stdin pipe of an external audio player process or a device writer.
// The writer's own backpressure models rendering lag: a blocked write
// means the device has not consumed earlier audio yet.
type WriterSink struct {
	w         io.Writer
	transform func([]byte) ([]byte, error)

	in      chan []byte
	ready   chan struct{}
	played  chan struct{}
	errs    chan error
	done    chan struct{}
	endOnce sync.Once
}

// NewWriterSink creates a sink that writes chunks through unmodified.
func NewWriterSink(w io.Writer) *WriterSink {
	return newWriterSink(w, nil)
}

// NewULawSink creates a sink for telephony byte streams: incoming 16-bit
// little-endian PCM chunks are converted to 8-bit µ-law before writing.
func NewULawSink(w io.Writer) *WriterSink {
	return newWriterSink(w, audio.PCMBytesToULaw)
}

func newWriterSink(w io.Writer, transform func([]byte) ([]byte, error)) *WriterSink {
	s := &WriterSink{
		w:         w,
		transform: transform,
		in:        make(chan []byte),
		ready:     make(chan struct{}, 1),
		played:    make(chan struct{}),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	go s.renderLoop()
	return s
}

func (s *WriterSink) Append(chunk []byte) error {
	select {
	case s.in <- chunk:
		return nil
	case <-s.done:
		return ErrSinkClosed
	}
}

func (s *WriterSink) Ready() <-chan struct{} {
	return s.ready
}

func (s *WriterSink) EndOfInput() {
	s.endOnce.Do(func() {
		close(s.in)
	})
}

func (s *WriterSink) Played() <-chan struct{} {
	return s.played
}

func (s *WriterSink) Errors() <-chan error {
	return s.errs
}

// Done is closed once the render loop has stopped, whether by end of
// input or by a render error. Wrappers that own the underlying writer
// use it to know when to release it.
func (s *WriterSink) Done() <-chan struct{} {
	return s.done
}

func (s *WriterSink) renderLoop() {
	defer close(s.done)
	for chunk := range s.in {
		data := chunk
		if s.transform != nil {
			converted, err := s.transform(chunk)
			if err != nil {
				s.errs <- err
				return
			}
			data = converted
		}
		if _, err := s.w.Write(data); err != nil {
			s.errs <- err
			return
		}
		// At most one signal is outstanding under the append/ready pairing,
		// so the buffered send never drops.
		select {
		case s.ready <- struct{}{}:
		default:
		}
	}
	close(s.played)
}
