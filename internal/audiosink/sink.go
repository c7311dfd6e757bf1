// Package audiosink adapts the reorder buffer's decoded PCM frames into a
// pull-based audio source and plays it through PortAudio, the same
// playback library the rest of the retrieval pack's audio tooling links
// against.
package audiosink

import (
	"sync"
	"sync/atomic"

	"github.com/alxayo/raop-go/internal/reorder"
)

// Source produces interleaved PCM samples for a sink to play. NextSample
// returns ok=false once the source is exhausted (end of session).
type Source interface {
	NextSample() (sample int16, ok bool)
	Channels() int
	SampleRate() int
}

// Sink accepts a Source to play. A RECORD session enqueues exactly one
// live Source per call to Record; Teardown stops playback.
type Sink interface {
	Enqueue(src Source)
	Stop()
}

// PCMSource pulls frames out of a reorder buffer one sample at a time,
// blocking the caller's pull cadence on whatever is currently at the front
// of the buffer rather than buffering ahead itself.
type PCMSource struct {
	buf      *reorder.Buffer
	channels int
	rate     int

	mu      sync.Mutex
	current reorder.Frame
	pos     int
}

// NewPCMSource builds a Source over buf at the given channel count and
// sample rate (2 channels / 44,100 Hz for RAOP audio).
func NewPCMSource(buf *reorder.Buffer, channels, rate int) *PCMSource {
	return &PCMSource{buf: buf, channels: channels, rate: rate}
}

func (s *PCMSource) Channels() int   { return s.channels }
func (s *PCMSource) SampleRate() int { return s.rate }

// NextSample returns the next interleaved sample, advancing to the next
// buffered frame as needed. Returns ok=false when no frame is currently
// available; callers should treat that as silence and retry later rather
// than as end of stream, since RAOP sessions are long-lived.
func (s *PCMSource) NextSample() (int16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.pos >= len(s.current) {
		frame, ok := s.buf.PopFront()
		if !ok {
			return 0, false
		}
		s.current = frame
		s.pos = 0
	}
	sample := s.current[s.pos]
	s.pos++
	return sample, true
}

// NullSink discards audio; it exists so the Player can be constructed and
// tested without a real output device.
type NullSink struct {
	active atomic.Pointer[Source]
}

func NewNullSink() *NullSink { return &NullSink{} }

func (s *NullSink) Enqueue(src Source) { s.active.Store(&src) }
func (s *NullSink) Stop()              { s.active.Store(nil) }
