// Package reorder implements the sequence-indexed jitter buffer: an ordered
// map from wrap-aware RTP sequence number to decoded PCM frame, with gap
// detection on write and a pull interface for the audio sink.
//
// Generalizes player/frame_buffer.rs's BTreeMap-of-iterators approach with
// explicit missing-range reporting: the original only tracked a write
// marker for bookkeeping and never surfaced the skipped range to a caller.
package reorder

import (
	"sync"

	"github.com/alxayo/raop-go/internal/seq"
)

// Frame is one decoded ALAC packet's worth of interleaved 16-bit samples.
type Frame []int16

// Range is a half-open interval of skipped RTP sequence numbers, as
// returned by Add when a gap is detected.
type Range struct {
	Start seq.Seq
	End   seq.Seq
}

// Empty reports whether the range contains no sequences.
func (r Range) Empty() bool { return r.Start == r.End }

// Buffer is safe for concurrent use by exactly one writer (the Player actor)
// and one reader (the audio sink's pull loop) at a time.
type Buffer struct {
	mu    sync.Mutex
	data  map[seq.Seq]Frame
	read  seq.Seq
	write seq.Seq
}

// New creates a Buffer with both markers initialized to the sequence number
// carried by the RTP-Info header on RECORD.
func New(initial seq.Seq) *Buffer {
	return &Buffer{
		data:  make(map[seq.Seq]Frame),
		read:  initial,
		write: initial,
	}
}

// Add records frame at seq, advances the write marker to seq, and reports
// the half-open range of sequences skipped since the previous write marker.
// If old == seq (duplicate) or seq == old.Next() (in-order), the returned
// range is empty.
func (b *Buffer) Add(s seq.Seq, frame Frame) Range {
	b.mu.Lock()
	defer b.mu.Unlock()

	missing := Range{Start: b.write.Next(), End: s}
	b.data[s] = frame
	b.write = s
	if missing.Start.Less(missing.End) || missing.Start == missing.End {
		return missing
	}
	return Range{Start: missing.Start, End: missing.Start}
}

// Flush drops every entry with a key strictly less than to (in wrap-aware
// order) and sets the read marker to to.
func (b *Buffer) Flush(to seq.Seq) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k := range b.data {
		if k.Less(to) {
			delete(b.data, k)
		}
	}
	b.read = to
}

// PopFront returns the frame at the current read marker and advances the
// marker, or reports ok=false if no frame is stored there (the sink should
// substitute silence). The marker advances unconditionally either way,
// mirroring frame_buffer.rs's pop_front.
func (b *Buffer) PopFront() (frame Frame, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame, ok = b.data[b.read]
	if ok {
		delete(b.data, b.read)
	}
	b.read = b.read.Next()
	return frame, ok
}

// Len reports the number of frames currently stored, for diagnostics and
// size_hint-style tests. Not part of the hot path.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
