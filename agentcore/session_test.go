package agentcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, gate *ApprovalGate) *SessionRegistry {
	t.Helper()
	r := NewSessionRegistry(16, 0, gate, nil)
	t.Cleanup(r.Close)
	return r
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := newTestRegistry(t, nil)

	s, err := r.Create()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID() == "" {
		t.Error("expected non-empty session ID")
	}

	got, err := r.Get(s.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != s {
		t.Error("expected the same session instance")
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistryDistinctSessionIDs(t *testing.T) {
	r := newTestRegistry(t, nil)

	a, _ := r.Create()
	b, _ := r.Create()
	if a.ID() == b.ID() {
		t.Error("sessions must get distinct IDs")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 live sessions, got %d", r.Len())
	}
}

func TestSessionEventIsolation(t *testing.T) {
	r := newTestRegistry(t, nil)

	a, _ := r.Create()
	b, _ := r.Create()

	a.emitter.Emit(Event{Kind: EventTextDelta, Text: "for-a"})
	b.emitter.Emit(Event{Kind: EventTextDelta, Text: "for-b"})

	select {
	case ev := <-a.Events():
		if ev.SessionID != a.ID() || ev.Text != "for-a" {
			t.Errorf("session a received foreign event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event on session a")
	}

	select {
	case ev := <-b.Events():
		if ev.SessionID != b.ID() || ev.Text != "for-b" {
			t.Errorf("session b received foreign event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event on session b")
	}
}

func TestRegistryDestroy(t *testing.T) {
	gate := NewApprovalGate(time.Minute)
	r := newTestRegistry(t, gate)

	s, _ := r.Create()
	pending, err := gate.Request(s.ID(), "call-1", "write_file", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Destroy(s.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Session is gone from the registry.
	if _, err := r.Get(s.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if s.State() != StateClosed {
		t.Errorf("expected closed state, got %q", s.State())
	}

	// Its context is cancelled.
	select {
	case <-s.ctx.Done():
	case <-time.After(time.Second):
		t.Error("session context not cancelled")
	}

	// Its pending approvals were rejected.
	decision, _, err := pending.Await(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision != DecisionRejected {
		t.Errorf("expected rejected, got %q", decision)
	}

	// Its event channel closes.
	select {
	case _, ok := <-s.Events():
		if ok {
			t.Error("expected closed event channel")
		}
	case <-time.After(time.Second):
		t.Error("event channel did not close")
	}
}

func TestRegistryDestroyUnknown(t *testing.T) {
	r := newTestRegistry(t, nil)
	if err := r.Destroy("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRegistryIdleSweep(t *testing.T) {
	r := NewSessionRegistry(16, 50*time.Millisecond, nil, nil)
	defer r.Close()

	s, _ := r.Create()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := r.Get(s.ID()); errors.Is(err, ErrSessionNotFound) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("idle session was never swept")
}
