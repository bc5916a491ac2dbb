package journal

import "time"

// Entry is one line of session activity shown in the UI's event pane.
//
// Invariants:
// - Entries are append-only; never updated or deleted individually.
// - The journal is in-memory and bounded; old entries fall off the front.
//   Call history persistence is deliberately out of scope.

type Entry struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// CallID is set for call-scoped entries.
	CallID string `json:"call_id,omitempty"`

	// Message is a short human-readable description.
	Message string `json:"message,omitempty"`

	At time.Time `json:"at"`
}

type Kind string

const (
	KindCommand      Kind = "command"
	KindCall         Kind = "call"
	KindRegistration Kind = "registration"
	KindError        Kind = "error"
)
