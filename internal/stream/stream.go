// Package stream delivers orchestrator lifecycle events to a single
// consumer in emission order, tolerating consumer disconnect.
package stream

import (
	"sync"

	"github.com/execboard/boardroom/internal/domain"
)

// defaultBuffer absorbs short consumer stalls without blocking the
// orchestrator between events.
const defaultBuffer = 64

// Stream is an ordered, single-consumer event channel.
//
// Close is the only cancellation signal: it is idempotent and may be called
// from either side (the orchestrator when the session ends, the transport
// when the consumer disconnects). Writes after Close are silently dropped;
// Emit never panics on a closed stream. Consumers select on Events and Done:
//
//	for {
//		select {
//		case ev := <-s.Events():
//			...
//		case <-s.Done():
//			return
//		}
//	}
type Stream struct {
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

// New creates a stream with the default buffer.
func New() *Stream {
	return NewBuffered(defaultBuffer)
}

// NewBuffered creates a stream with an explicit buffer size.
func NewBuffered(size int) *Stream {
	return &Stream{
		events: make(chan domain.Event, size),
		done:   make(chan struct{}),
	}
}

// Events is the consumer side. Events arrive strictly in emission order; no
// reordering or batching.
func (s *Stream) Events() <-chan domain.Event {
	return s.events
}

// Emit delivers one event, blocking when the buffer is full until the
// consumer catches up or the stream closes. Emitting to a closed stream is
// a no-op.
func (s *Stream) Emit(ev domain.Event) {
	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Close terminates the stream. Safe to call any number of times, from
// either side.
func (s *Stream) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Closed reports whether Close has been called. The orchestrator checks this
// before initiating further engine calls.
func (s *Stream) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done exposes the close signal for select loops.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}
