// Package alac owns the ALAC stream-parameter negotiation and the Decoder
// seam that the crypto pipeline decodes frames through. Compressed
// (Rice-coded) ALAC decoding is a real external codec's job; this package
// only needs to own the interface and parse the stream parameters out of
// the negotiated fmtp line.
package alac

import (
	"fmt"
	"strconv"
	"strings"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// StreamInfo is the ALAC stream description carried in an SDP fmtp line:
// "frameLength compatibleVersion bitDepth pb mb kb numChannels maxRun
// maxFrameBytes avgBitRate sampleRate" (eleven space-separated integers,
// after the leading payload-type token has already been stripped by the
// SDP parser).
type StreamInfo struct {
	FrameLength        int
	CompatibleVersion  int
	BitDepth           int
	PB                 int
	MB                 int
	KB                 int
	NumChannels        int
	MaxRun             int
	MaxFrameBytes      int
	AvgBitRate         int
	SampleRate         int
}

// ParseFmtp parses the eleven fmtp integers into a StreamInfo.
func ParseFmtp(fmtp string) (StreamInfo, error) {
	fields := strings.Fields(fmtp)
	if len(fields) != 11 {
		return StreamInfo{}, rerr.NewParseError("alac.fmtp", fmt.Errorf("expected 11 fields, got %d", len(fields)))
	}
	vals := make([]int, 11)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return StreamInfo{}, rerr.NewParseError("alac.fmtp", err)
		}
		vals[i] = v
	}
	return StreamInfo{
		FrameLength:       vals[0],
		CompatibleVersion: vals[1],
		BitDepth:          vals[2],
		PB:                vals[3],
		MB:                vals[4],
		KB:                vals[5],
		NumChannels:       vals[6],
		MaxRun:            vals[7],
		MaxFrameBytes:     vals[8],
		AvgBitRate:        vals[9],
		SampleRate:        vals[10],
	}, nil
}
