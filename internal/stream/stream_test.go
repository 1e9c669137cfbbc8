package stream

import (
	"testing"
	"time"

	"github.com/execboard/boardroom/internal/domain"
)

func TestStream_OrderPreserved(t *testing.T) {
	s := NewBuffered(8)

	types := []domain.EventType{
		domain.EventSessionStart,
		domain.EventRoundStart,
		domain.EventAgentStart,
		domain.EventAgentResponse,
		domain.EventRoundComplete,
		domain.EventSessionComplete,
	}
	for _, typ := range types {
		s.Emit(domain.Event{Type: typ})
	}

	for i, want := range types {
		got := <-s.Events()
		if got.Type != want {
			t.Errorf("event %d = %s, want %s", i, got.Type, want)
		}
	}
}

func TestStream_WriteAfterCloseDropped(t *testing.T) {
	s := NewBuffered(4)
	s.Emit(domain.Event{Type: domain.EventSessionStart})
	s.Close()

	// Must not panic or block.
	s.Emit(domain.Event{Type: domain.EventRoundStart})

	if got := len(s.events); got != 1 {
		t.Errorf("buffered events = %d, want 1 (post-close emit dropped)", got)
	}
}

func TestStream_CloseIdempotent(t *testing.T) {
	s := New()
	s.Close()
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Error("Closed() = false after Close()")
	}
}

func TestStream_EmitUnblocksOnClose(t *testing.T) {
	s := NewBuffered(1)
	s.Emit(domain.Event{Type: domain.EventSessionStart}) // fill buffer

	unblocked := make(chan struct{})
	go func() {
		s.Emit(domain.Event{Type: domain.EventRoundStart}) // blocks: buffer full
		close(unblocked)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Close()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("Emit did not unblock after Close")
	}
}

func TestStream_DoneSignals(t *testing.T) {
	s := New()
	select {
	case <-s.Done():
		t.Fatal("Done() signaled before Close")
	default:
	}
	s.Close()
	select {
	case <-s.Done():
	default:
		t.Error("Done() not signaled after Close")
	}
}
