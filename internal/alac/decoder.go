package alac

import (
	"encoding/binary"
	"fmt"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// Decoder turns one ALAC frame's raw bytes into interleaved signed 32-bit
// samples (stereo: L,R,L,R,...). The cryptopipeline right-shifts each
// result by 16 to produce the 16-bit samples the reorder buffer stores.
//
// The compressed (Rice/predictive-coded) ALAC bitstream is a real codec's
// job to decode; Decoder exists so the crypto pipeline and the Player have
// a stable seam to plug a concrete decoder into.
type Decoder interface {
	Decode(frame []byte) ([]int32, error)
}

// RawPCMDecoder implements the one ALAC frame shape simple enough to stay
// in scope: an "escape" frame, where the encoder declined to compress and
// wrote interleaved samples directly at the stream's configured bit depth.
// Production deployments wire a real Rice-coded ALAC decoder behind the
// same Decoder interface; this implementation exists to exercise the
// pipeline end to end and is not a substitute for one.
type RawPCMDecoder struct {
	Info StreamInfo
}

// NewRawPCMDecoder builds a Decoder bound to the stream parameters
// negotiated at ANNOUNCE time.
func NewRawPCMDecoder(info StreamInfo) *RawPCMDecoder {
	return &RawPCMDecoder{Info: info}
}

// Decode interprets frame as NumChannels-interleaved big-endian samples of
// BitDepth bits each (16, 24, or 32), zero/sign-extended to int32.
func (d *RawPCMDecoder) Decode(frame []byte) ([]int32, error) {
	bytesPerSample := d.Info.BitDepth / 8
	if bytesPerSample <= 0 || bytesPerSample > 4 {
		return nil, rerr.NewCodecError("alac.decode", fmt.Errorf("unsupported bit depth %d", d.Info.BitDepth))
	}
	if len(frame)%bytesPerSample != 0 {
		return nil, rerr.NewCodecError("alac.decode", fmt.Errorf("frame length %d not a multiple of sample width %d", len(frame), bytesPerSample))
	}

	count := len(frame) / bytesPerSample
	out := make([]int32, count)
	for i := 0; i < count; i++ {
		off := i * bytesPerSample
		out[i] = decodeSample(frame[off:off+bytesPerSample], d.Info.BitDepth)
	}
	return out, nil
}

func decodeSample(b []byte, bitDepth int) int32 {
	var raw uint32
	switch len(b) {
	case 2:
		raw = uint32(binary.BigEndian.Uint16(b))
	case 3:
		raw = uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	case 4:
		raw = binary.BigEndian.Uint32(b)
	}
	// Sign-extend from bitDepth bits to 32.
	shift := uint(32 - bitDepth)
	return int32(raw<<shift) >> shift
}
