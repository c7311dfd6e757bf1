package ntptime

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeTripleReadsOriginAndTransmit(t *testing.T) {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint32(buf[8:12], 100)
	binary.BigEndian.PutUint32(buf[12:16], 200)
	binary.BigEndian.PutUint32(buf[16:20], 300)

	origin, transmit, ok := DecodeTriple(buf)
	assert.True(t, ok)
	assert.Equal(t, Time{Sec: 100, Frac: 200}, origin)
	assert.Equal(t, uint32(300), transmit)
}

func TestDecodeTripleRejectsShortBuffer(t *testing.T) {
	_, _, ok := DecodeTriple(make([]byte, 10))
	assert.False(t, ok)
}

func TestDecodeTimingTripleReadsAllThree(t *testing.T) {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint32(buf[8:12], 1)
	binary.BigEndian.PutUint32(buf[12:16], 2)
	binary.BigEndian.PutUint32(buf[16:20], 3)
	binary.BigEndian.PutUint32(buf[20:24], 4)
	binary.BigEndian.PutUint32(buf[24:28], 5)
	binary.BigEndian.PutUint32(buf[28:32], 6)

	triple, ok := DecodeTimingTriple(buf)
	assert.True(t, ok)
	assert.Equal(t, TimingTriple{
		Origin:   Time{Sec: 1, Frac: 2},
		Receive:  Time{Sec: 3, Frac: 4},
		Transmit: Time{Sec: 5, Frac: 6},
	}, triple)
}

func TestDecodeTimingTripleRejectsWrongLength(t *testing.T) {
	_, ok := DecodeTimingTriple(make([]byte, 31))
	assert.False(t, ok)
}
