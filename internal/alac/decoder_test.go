package alac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFmtpExtractsAllEleven(t *testing.T) {
	info, err := ParseFmtp("352 0 16 40 10 14 2 255 0 0 44100")
	require.NoError(t, err)
	assert.Equal(t, StreamInfo{
		FrameLength:       352,
		CompatibleVersion: 0,
		BitDepth:          16,
		PB:                40,
		MB:                10,
		KB:                14,
		NumChannels:       2,
		MaxRun:            255,
		MaxFrameBytes:     0,
		AvgBitRate:        0,
		SampleRate:        44100,
	}, info)
}

func TestParseFmtpWrongFieldCountFails(t *testing.T) {
	_, err := ParseFmtp("352 0 16")
	assert.Error(t, err)
}

func TestRawPCMDecoderDecodes16Bit(t *testing.T) {
	dec := NewRawPCMDecoder(StreamInfo{BitDepth: 16, NumChannels: 2})
	frame := []byte{0x00, 0x01, 0xFF, 0xFF, 0x7F, 0xFF, 0x80, 0x00}
	samples, err := dec.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, -1, 32767, -32768}, samples)
}

func TestRawPCMDecoderRejectsMisalignedFrame(t *testing.T) {
	dec := NewRawPCMDecoder(StreamInfo{BitDepth: 16})
	_, err := dec.Decode([]byte{0x00})
	assert.Error(t, err)
}

func TestRawPCMDecoderRejectsUnsupportedBitDepth(t *testing.T) {
	dec := NewRawPCMDecoder(StreamInfo{BitDepth: 0})
	_, err := dec.Decode([]byte{0x00, 0x01})
	assert.Error(t, err)
}
