// Package shutdown implements a single-shot broadcast bus: one sender fans
// a "stop" signal out to N subscribers, and a completion tracker proves
// every subscriber reached a safe state before the owner returns.
package shutdown

import "sync"

// Bus is the sender side. Close fires the broadcast exactly once; repeated
// calls are safe no-ops. The zero value is not usable; use New.
type Bus struct {
	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New creates a Bus with no subscribers yet registered.
func New() *Bus {
	return &Bus{done: make(chan struct{})}
}

// Subscriber returns a new Subscriber bound to this bus and registers it with
// the bus's completion tracker. The caller must call Subscriber.Done exactly
// once when its worker has reached a safe state: signal, then wait for
// every goroutine to exit.
func (b *Bus) Subscriber() *Subscriber {
	b.wg.Add(1)
	return &Subscriber{bus: b}
}

// Stop fires the broadcast. Safe to call multiple times and from multiple
// goroutines; only the first call has effect.
func (b *Bus) Stop() {
	b.once.Do(func() { close(b.done) })
}

// Wait blocks until every Subscriber created by Subscriber() has called Done.
// It does not by itself imply Stop was called; callers normally call Stop
// first and then Wait.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// Subscriber is the per-worker handle: query IsStopped for a non-blocking
// check, or WaitStop to suspend until the bus fires. Every worker must call
// Done exactly once before returning from its run loop.
type Subscriber struct {
	bus  *Bus
	done bool
}

// IsStopped reports whether the shutdown signal has fired. Once true it
// latches true for the lifetime of the subscriber.
func (s *Subscriber) IsStopped() bool {
	if s.done {
		return true
	}
	select {
	case <-s.bus.done:
		s.done = true
		return true
	default:
		return false
	}
}

// WaitStop returns a channel that is closed when the shutdown signal fires.
// Callers select on it alongside their other suspension points (socket recv,
// channel recv, sleep): the shutdown branch should always be present in
// every blocking select a cooperative worker runs.
func (s *Subscriber) WaitStop() <-chan struct{} {
	return s.bus.done
}

// Done marks this subscriber's worker as having reached a safe state. The
// owning Bus.Wait unblocks once every registered subscriber has called Done.
func (s *Subscriber) Done() {
	s.bus.wg.Done()
}
