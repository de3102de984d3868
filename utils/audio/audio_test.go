package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestULawRoundTripPreservesSilence(t *testing.T) {
	require.InDelta(t, 0, ULawToPCM(PCMToULaw(0)), 8)
}

func TestULawFrameMonotonic(t *testing.T) {
	// Louder samples must stay louder through the companding cycle.
	quiet := ULawToPCM(PCMToULaw(100))
	loud := ULawToPCM(PCMToULaw(10000))
	require.Greater(t, loud, quiet)
}

func TestPCMBytesToULawHalvesLength(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0xff, 0x7f, 0x00, 0x80, 0x34, 0x12}
	out, err := PCMBytesToULaw(pcm)
	require.NoError(t, err)
	require.Len(t, out, len(pcm)/2)

	back := ULawBytesToPCM(out)
	require.Len(t, back, len(pcm))
}

func TestValidatePCMData(t *testing.T) {
	require.Error(t, ValidatePCMData(nil))
	require.Error(t, ValidatePCMData([]byte{0x01}))
	require.NoError(t, ValidatePCMData([]byte{0x01, 0x02}))

	_, err := PCMBytesToALaw([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}
