// Package audio provides the sample-format conversions used by the
// telephony playback sink.
package audio

import (
	"errors"

	"github.com/zaf/g711"
)

// PCMToULaw converts a 16-bit PCM sample to 8-bit µ-law using ITU-T G.711 standard
func PCMToULaw(sample int16) byte {
	return g711.EncodeUlawFrame(sample)
}

// ULawToPCM converts an 8-bit µ-law byte to 16-bit PCM using ITU-T G.711 standard
func ULawToPCM(u byte) int16 {
	return g711.DecodeUlawFrame(u)
}

// PCMBytesToULaw converts PCM bytes to µ-law
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if err := ValidatePCMData(pcm); err != nil {
		return nil, err
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawBytesToPCM converts µ-law bytes to PCM bytes
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// PCMBytesToALaw converts PCM bytes to A-law
func PCMBytesToALaw(pcm []byte) ([]byte, error) {
	if err := ValidatePCMData(pcm); err != nil {
		return nil, err
	}
	return g711.EncodeAlaw(pcm), nil
}

// ALawBytesToPCM converts A-law bytes to PCM bytes
func ALawBytesToPCM(aBytes []byte) []byte {
	return g711.DecodeAlaw(aBytes)
}

// ValidatePCMData validates a 16-bit little-endian PCM byte slice.
func ValidatePCMData(pcm []byte) error {
	if len(pcm) == 0 {
		return errors.New("PCM data is empty")
	}
	if len(pcm)%2 != 0 {
		return errors.New("PCM byte slice length must be even (16-bit samples)")
	}
	return nil
}
