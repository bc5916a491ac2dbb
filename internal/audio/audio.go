package audio

import "softphone/internal/engine"

// Controller is the seam to the platform audio subsystem. The session loop
// only forwards call-scoped start/stop/mute requests; device management,
// codecs, and actual I/O live entirely behind this interface.
//
// All methods are best-effort: a failing audio path must never block call
// control, so implementations report problems by logging, not by error
// returns the loop would have to unwind.
type Controller interface {
	StartCallAudio(id engine.CallID)
	StopCallAudio(id engine.CallID)

	SetMute(id engine.CallID, muted bool)
	SetInputVolume(level float64)
	SetOutputVolume(level float64)

	// Devices lists selectable audio devices for the settings screen.
	Devices() []Device
}

// Device describes one selectable input or output device.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsInput   bool   `json:"is_input"`
	IsDefault bool   `json:"is_default"`
}
