package session

import (
	"sync"
	"time"
)

// Snapshot is the read-only published view of the session. Observers never
// see a half-applied transition: the loop writes a whole snapshot after each
// processed command or event.
type Snapshot struct {
	Initialized  bool         `json:"initialized"`
	Call         *CallRecord  `json:"call,omitempty"`
	Registration Registration `json:"registration"`
	OnHook       bool         `json:"on_hook"`
	LastError    string       `json:"last_error,omitempty"`
	At           time.Time    `json:"at"`
}

// published holds the state cells plus watcher fan-out. Written only by the
// loop; read concurrently by any number of observers.
type published struct {
	mu      sync.RWMutex
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

func newPublished() *published {
	return &published{
		snap: Snapshot{OnHook: true, Registration: Registration{State: RegStateIdle}},
		subs: make(map[int]chan Snapshot),
	}
}

func (p *published) load() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.snap
	s.Call = s.Call.clone()
	return s
}

// store publishes a snapshot and fans it out. Watchers hold a one-slot
// buffer: a slow reader gets coalesced updates rather than slowing the loop.
func (p *published) store(s Snapshot) {
	p.mu.Lock()
	p.snap = s
	for _, ch := range p.subs {
		out := s
		out.Call = s.Call.clone()
		select {
		case ch <- out:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- out:
			default:
			}
		}
	}
	p.mu.Unlock()
}

// watch registers an observer. The returned cancel must be called to release
// the subscription.
func (p *published) watch() (<-chan Snapshot, func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	ch := make(chan Snapshot, 1)
	p.subs[id] = ch
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
	return ch, cancel
}
