package session

import (
	"time"

	"softphone/internal/engine"
)

// CallState is the local call lifecycle. It is deliberately smaller than the
// engine-native enumeration; MapCallState is the only way across.
type CallState string

const (
	CallStateCalling      CallState = "calling"
	CallStateRinging      CallState = "ringing"
	CallStateConnected    CallState = "connected"
	CallStateOnHold       CallState = "on_hold"
	CallStateTransferring CallState = "transferring"
	CallStateDisconnected CallState = "disconnected"
	CallStateFailed       CallState = "failed"
)

// Engaged reports whether the state represents active engagement, which
// forces the phone off-hook. An incoming ring is not engagement; the call is
// still merely being offered.
func (s CallState) Engaged() bool {
	switch s {
	case CallStateCalling, CallStateConnected, CallStateOnHold, CallStateTransferring:
		return true
	}
	return false
}

// Billable reports whether elapsed time should accrue and tick out to
// observers.
func (s CallState) Billable() bool {
	return s == CallStateConnected || s == CallStateOnHold
}

// CallRecord is the snapshot of the single live call. Mutated only by the
// session loop.
type CallRecord struct {
	ID         engine.CallID `json:"id"`
	RemoteURI  string        `json:"remote_uri"`
	State      CallState     `json:"state"`
	IsIncoming bool          `json:"is_incoming"`
	Muted      bool          `json:"muted"`

	// ConnectedAt is stamped on the first transition into Connected.
	ConnectedAt *time.Time `json:"connected_at,omitempty"`

	// Duration is derived from ConnectedAt on each publish, never stored
	// authoritatively.
	Duration time.Duration `json:"duration,omitempty"`

	// Reason carries the failure detail when State is Failed.
	Reason string `json:"reason,omitempty"`
}

func (r *CallRecord) clone() *CallRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.ConnectedAt != nil {
		t := *r.ConnectedAt
		out.ConnectedAt = &t
	}
	return &out
}

// RegState enumerates the registration lifecycle. Only server-mode sessions
// go through registering; receiver and peer-to-peer sessions jump straight to
// registered (ready).
type RegState string

const (
	RegStateIdle        RegState = "idle"
	RegStateRegistering RegState = "registering"
	RegStateRegistered  RegState = "registered"
	RegStateError       RegState = "error"
)

// Registration is the published registration cell.
type Registration struct {
	State   RegState `json:"state"`
	Message string   `json:"message,omitempty"`
}

// MapCallState maps an engine-native call state onto the local lifecycle.
// ok is false for values the table does not know; callers treat that as a
// detectable error, not a silent fallthrough.
func MapCallState(s engine.CallState) (CallState, bool) {
	switch s {
	case engine.CallStateInitiating, engine.CallStateProceeding:
		return CallStateCalling, true
	case engine.CallStateRinging, engine.CallStateIncomingPending:
		return CallStateRinging, true
	case engine.CallStateConnected:
		return CallStateConnected, true
	case engine.CallStateTerminating, engine.CallStateTerminated:
		return CallStateDisconnected, true
	case engine.CallStateFailed, engine.CallStateCancelled:
		return CallStateFailed, true
	}
	return "", false
}

// MapRegistrationStatus maps an engine-native registrar status onto the local
// registration state.
func MapRegistrationStatus(s engine.RegistrationStatus) (RegState, bool) {
	switch s {
	case engine.RegistrationStatusActive:
		return RegStateRegistered, true
	case engine.RegistrationStatusPending:
		return RegStateRegistering, true
	case engine.RegistrationStatusFailed:
		return RegStateError, true
	case engine.RegistrationStatusExpired:
		return RegStateIdle, true
	}
	return "", false
}
