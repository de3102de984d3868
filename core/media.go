package core

import "io"

// DefaultAudioContentType is assumed when the synthesis backend does not
// declare a content type for its stream.
const DefaultAudioContentType = "audio/mpeg"

// SpeechStream is a live, still-filling audio byte stream handed from the
// synthesis gateway to the playback engine. The body keeps filling while it
// is being read; callers must Close it when playback ends or is aborted.
type SpeechStream struct {
	Body        io.ReadCloser
	ContentType string
}

// Close releases the underlying byte stream.
func (s *SpeechStream) Close() error {
	if s == nil || s.Body == nil {
		return nil
	}
	return s.Body.Close()
}
