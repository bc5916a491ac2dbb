package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryEngine is a loopback engine useful for tests and headless dev runs.
// It performs no signaling: every operation succeeds unless scripted to fail,
// invocations are recorded, and events are injected by the caller (or by the
// few convenience helpers below). It is not intended for production use.
type MemoryEngine struct {
	mu       sync.Mutex
	started  bool
	closed   bool
	events   chan Event
	failures map[string]error
	ops      []string
	muted    map[CallID]bool
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		events:   make(chan Event, 64),
		failures: make(map[string]error),
		muted:    make(map[CallID]bool),
	}
}

func (e *MemoryEngine) Name() string { return "memory" }

// FailWith scripts the next invocations of op ("place", "answer", "hangup",
// "register", "hold", "resume", "transfer", "reject", "set_mute", "is_muted",
// "start") to return err. Pass nil to clear.
func (e *MemoryEngine) FailWith(op string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, op)
		return
	}
	e.failures[op] = err
}

// Ops returns the recorded invocations in order.
func (e *MemoryEngine) Ops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.ops))
	copy(out, e.ops)
	return out
}

// Inject delivers an event to the consumer as if the engine raised it.
func (e *MemoryEngine) Inject(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	e.events <- ev
}

// RingIn simulates an inbound call and returns its id.
func (e *MemoryEngine) RingIn(from string) CallID {
	id := CallID(uuid.NewString())
	e.Inject(Event{Type: EventIncomingCall, CallID: id, From: from})
	return id
}

func (e *MemoryEngine) Start(ctx context.Context) error {
	if err := e.begin(ctx, "start", ""); err != nil {
		return err
	}
	e.mu.Lock()
	e.started = true
	e.mu.Unlock()
	return nil
}

func (e *MemoryEngine) Register(ctx context.Context, req RegisterRequest) (RegistrationID, error) {
	if err := e.begin(ctx, "register", req.AOR); err != nil {
		return "", err
	}
	return RegistrationID(uuid.NewString()), nil
}

func (e *MemoryEngine) Place(ctx context.Context, from, to string) (CallID, error) {
	if err := e.begin(ctx, "place", to); err != nil {
		return "", err
	}
	id := CallID(uuid.NewString())
	e.mu.Lock()
	e.muted[id] = false
	e.mu.Unlock()
	return id, nil
}

func (e *MemoryEngine) Answer(ctx context.Context, id CallID) error {
	return e.begin(ctx, "answer", string(id))
}

func (e *MemoryEngine) Reject(ctx context.Context, id CallID) error {
	return e.begin(ctx, "reject", string(id))
}

func (e *MemoryEngine) Hangup(ctx context.Context, id CallID) error {
	return e.begin(ctx, "hangup", string(id))
}

func (e *MemoryEngine) Hold(ctx context.Context, id CallID) error {
	return e.begin(ctx, "hold", string(id))
}

func (e *MemoryEngine) Resume(ctx context.Context, id CallID) error {
	return e.begin(ctx, "resume", string(id))
}

func (e *MemoryEngine) Transfer(ctx context.Context, id CallID, target string) error {
	return e.begin(ctx, "transfer", string(id)+" "+target)
}

func (e *MemoryEngine) IsMuted(ctx context.Context, id CallID) (bool, error) {
	if err := e.begin(ctx, "is_muted", string(id)); err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted[id], nil
}

func (e *MemoryEngine) SetMute(ctx context.Context, id CallID, muted bool) error {
	if err := e.begin(ctx, "set_mute", fmt.Sprintf("%s %v", id, muted)); err != nil {
		return err
	}
	e.mu.Lock()
	e.muted[id] = muted
	e.mu.Unlock()
	return nil
}

func (e *MemoryEngine) Events() <-chan Event { return e.events }

func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.events)
	return nil
}

func (e *MemoryEngine) begin(ctx context.Context, op, detail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if detail != "" {
		e.ops = append(e.ops, op+" "+detail)
	} else {
		e.ops = append(e.ops, op)
	}
	if err := e.failures[op]; err != nil {
		return err
	}
	return nil
}
