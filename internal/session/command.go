package session

import "softphone/internal/profile"

// Commands are the only way to affect session state. Each carries a reply
// channel (buffered, written at most once) so the issuing task can await the
// outcome without ever blocking the loop.
type commandKind string

const (
	cmdInitialize commandKind = "initialize"
	cmdMakeCall   commandKind = "make_call"
	cmdAnswer     commandKind = "answer"
	cmdHangup     commandKind = "hangup"
	cmdToggleMute commandKind = "toggle_mute"
	cmdHold       commandKind = "hold"
	cmdResume     commandKind = "resume"
	cmdTransfer   commandKind = "transfer"
	cmdToggleHook commandKind = "toggle_hook"
)

type command struct {
	kind    commandKind
	profile profile.Profile // initialize
	target  string          // make_call, transfer
	reply   chan error
}
