package journal

import "sync"

// DefaultCap bounds the in-memory journal. Enough for an afternoon of calls;
// anything older is display noise.
const DefaultCap = 256

// MemoryRepo is a bounded in-memory append-only store.
type MemoryRepo struct {
	mu      sync.Mutex
	cap     int
	entries []Entry
}

func NewMemoryRepo(capacity int) *MemoryRepo {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &MemoryRepo{cap: capacity}
}

func (r *MemoryRepo) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.cap {
		r.entries = r.entries[len(r.entries)-r.cap:]
	}
}

func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
