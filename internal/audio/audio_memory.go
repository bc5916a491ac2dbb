package audio

import (
	"fmt"
	"sync"

	"softphone/internal/engine"
)

// MemoryController records audio requests instead of touching hardware.
// Used by tests and headless runs. Not intended for production use.
type MemoryController struct {
	mu     sync.Mutex
	ops    []string
	active map[engine.CallID]bool
	input  float64
	output float64
}

func NewMemoryController() *MemoryController {
	return &MemoryController{
		active: make(map[engine.CallID]bool),
		input:  1.0,
		output: 1.0,
	}
}

func (c *MemoryController) StartCallAudio(id engine.CallID) {
	c.record("start "+string(id), func() { c.active[id] = true })
}

func (c *MemoryController) StopCallAudio(id engine.CallID) {
	c.record("stop "+string(id), func() { delete(c.active, id) })
}

func (c *MemoryController) SetMute(id engine.CallID, muted bool) {
	c.record(fmt.Sprintf("mute %s %v", id, muted), nil)
}

func (c *MemoryController) SetInputVolume(level float64) {
	c.record(fmt.Sprintf("input_volume %.2f", level), func() { c.input = level })
}

func (c *MemoryController) SetOutputVolume(level float64) {
	c.record(fmt.Sprintf("output_volume %.2f", level), func() { c.output = level })
}

func (c *MemoryController) Devices() []Device {
	return []Device{
		{ID: "mem-in", Name: "Memory Microphone", IsInput: true, IsDefault: true},
		{ID: "mem-out", Name: "Memory Speaker", IsDefault: true},
	}
}

// Active reports whether call audio is currently running for id.
func (c *MemoryController) Active(id engine.CallID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[id]
}

// Ops returns recorded requests in order.
func (c *MemoryController) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.ops))
	copy(out, c.ops)
	return out
}

func (c *MemoryController) record(op string, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, op)
	if apply != nil {
		apply()
	}
}
