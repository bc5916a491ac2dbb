package engine

import (
	"context"
	"time"
)

// CallID is the engine-issued opaque identifier for one call.
// It is stable for the lifetime of the call.
type CallID string

// Engine is the engine-agnostic capability interface the session loop drives.
//
// Rules:
// - No engine SDK calls outside engine adapters.
// - The handle behind an Engine is single-owner: only the session loop may
//   invoke call-control methods.
// - Events() has exactly one live consumer and is not restartable.
// - All methods honor ctx cancellation; a canceled call is abandoned, not
//   rolled back.
type Engine interface {
	Name() string

	// Start brings up transports and begins emitting events.
	Start(ctx context.Context) error

	// Register places a registrar binding. Server-mode sessions only.
	Register(ctx context.Context, req RegisterRequest) (RegistrationID, error)

	// Place initiates an outgoing call and returns its id.
	Place(ctx context.Context, from, to string) (CallID, error)

	Answer(ctx context.Context, id CallID) error
	Reject(ctx context.Context, id CallID) error
	Hangup(ctx context.Context, id CallID) error

	Hold(ctx context.Context, id CallID) error
	Resume(ctx context.Context, id CallID) error
	Transfer(ctx context.Context, id CallID, target string) error

	IsMuted(ctx context.Context, id CallID) (bool, error)
	SetMute(ctx context.Context, id CallID, muted bool) error

	// Events returns the engine's notification stream. Closed by Close.
	Events() <-chan Event

	Close() error
}

// RegistrationID identifies one registrar binding.
type RegistrationID string

// RegisterRequest carries everything the engine needs for a REGISTER.
type RegisterRequest struct {
	ServerURI string
	AOR       string
	Contact   string
	Username  string
	Password  string
	Expiry    int
}

// CallState is the engine-native call lifecycle enumeration. The session
// layer maps these onto its own, smaller state set; values the mapping does
// not know are surfaced as errors rather than silently dropped.
type CallState string

const (
	CallStateInitiating      CallState = "initiating"
	CallStateProceeding      CallState = "proceeding"
	CallStateRinging         CallState = "ringing"
	CallStateIncomingPending CallState = "incoming_pending"
	CallStateConnected       CallState = "connected"
	CallStateTerminating     CallState = "terminating"
	CallStateTerminated      CallState = "terminated"
	CallStateFailed          CallState = "failed"
	CallStateCancelled       CallState = "cancelled"
)

// RegistrationStatus is the engine-native registrar binding status.
type RegistrationStatus string

const (
	RegistrationStatusActive  RegistrationStatus = "active"
	RegistrationStatusPending RegistrationStatus = "pending"
	RegistrationStatusFailed  RegistrationStatus = "failed"
	RegistrationStatusExpired RegistrationStatus = "expired"
)

// EventType tags the variants of Event.
type EventType string

const (
	EventIncomingCall       EventType = "incoming_call"
	EventCallStateChanged   EventType = "call_state_changed"
	EventCallEnded          EventType = "call_ended"
	EventCallOnHold         EventType = "call_on_hold"
	EventCallResumed        EventType = "call_resumed"
	EventRegistrationStatus EventType = "registration_status"
)

// Event is one asynchronous engine notification. Fields beyond Type/At are
// populated per variant.
type Event struct {
	Type EventType
	At   time.Time

	// Call events.
	CallID CallID
	From   string
	State  CallState

	// Registration events.
	Registration RegistrationStatus
	Reason       string
}
