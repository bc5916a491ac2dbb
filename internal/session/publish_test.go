package session

import (
	"testing"
	"time"
)

func TestPublished_LoadReturnsIsolatedCopy(t *testing.T) {
	p := newPublished()
	now := time.Now()
	p.store(Snapshot{Call: &CallRecord{ID: "c1", State: CallStateConnected, ConnectedAt: &now}, OnHook: false})

	a := p.load()
	a.Call.State = CallStateFailed

	b := p.load()
	if b.Call.State != CallStateConnected {
		t.Fatalf("observers must not be able to mutate published state")
	}
}

func TestPublished_InitialSnapshot(t *testing.T) {
	p := newPublished()
	s := p.load()
	if !s.OnHook {
		t.Fatalf("sessions publish on-hook before anything happens")
	}
	if s.Registration.State != RegStateIdle {
		t.Fatalf("registration starts idle, got %s", s.Registration.State)
	}
	if s.Call != nil || s.Initialized {
		t.Fatalf("unexpected initial snapshot: %+v", s)
	}
}

func TestWatch_SlowReaderCoalesces(t *testing.T) {
	p := newPublished()
	ch, cancel := p.watch()
	defer cancel()

	// Burst of publishes with no reads in between: the subscriber keeps the
	// newest, not the backlog.
	for i := 0; i < 10; i++ {
		p.store(Snapshot{LastError: "", OnHook: i%2 == 0, At: time.Now()})
	}
	p.store(Snapshot{LastError: "final", At: time.Now()})

	var last Snapshot
	drained := false
	for !drained {
		select {
		case s := <-ch:
			last = s
		default:
			drained = true
		}
	}
	if last.LastError != "final" {
		t.Fatalf("expected the newest snapshot to win, got %+v", last)
	}
}

func TestWatch_CancelUnsubscribes(t *testing.T) {
	p := newPublished()
	ch, cancel := p.watch()
	cancel()

	p.store(Snapshot{LastError: "after-cancel"})
	select {
	case s, ok := <-ch:
		if ok && s.LastError == "after-cancel" {
			t.Fatalf("canceled watcher still received updates")
		}
	default:
	}
}
