package audiosink

import (
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	rerr "github.com/alxayo/raop-go/internal/errors"
)

// PortAudioSink plays whatever Source is currently enqueued through the
// default output device via a single long-lived callback stream.
type PortAudioSink struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	active atomic.Pointer[Source]
}

// NewPortAudioSink initializes PortAudio and opens a stereo 44,100 Hz
// output stream whose callback reads from whatever Source is currently
// enqueued. Call Close when the process exits.
func NewPortAudioSink(channels, sampleRate int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, rerr.NewFatalError("audiosink.init", err)
	}

	sink := &PortAudioSink{}
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), 0, sink.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, rerr.NewFatalError("audiosink.open_stream", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, rerr.NewFatalError("audiosink.start_stream", err)
	}

	sink.mu.Lock()
	sink.stream = stream
	sink.mu.Unlock()
	return sink, nil
}

func (s *PortAudioSink) callback(out []int16) {
	src := s.active.Load()
	if src == nil {
		for i := range out {
			out[i] = 0
		}
		return
	}
	for i := range out {
		sample, ok := (*src).NextSample()
		if !ok {
			sample = 0
		}
		out[i] = sample
	}
}

func (s *PortAudioSink) Enqueue(src Source) { s.active.Store(&src) }

func (s *PortAudioSink) Stop() { s.active.Store(nil) }

// Close terminates the stream and the PortAudio library.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	_ = portaudio.Terminate()
	s.stream = nil
	return err
}
