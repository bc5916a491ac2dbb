package audio

import (
	"testing"

	"softphone/internal/engine"
)

func TestMemoryController_StartStop(t *testing.T) {
	c := NewMemoryController()
	id := engine.CallID("call-1")

	c.StartCallAudio(id)
	if !c.Active(id) {
		t.Fatalf("expected audio active after start")
	}
	c.StopCallAudio(id)
	if c.Active(id) {
		t.Fatalf("expected audio inactive after stop")
	}

	ops := c.Ops()
	if len(ops) != 2 || ops[0] != "start call-1" || ops[1] != "stop call-1" {
		t.Fatalf("unexpected ops: %v", ops)
	}
}

func TestMemoryController_DevicesHaveDefaults(t *testing.T) {
	c := NewMemoryController()
	devs := c.Devices()
	var in, out bool
	for _, d := range devs {
		if d.IsInput && d.IsDefault {
			in = true
		}
		if !d.IsInput && d.IsDefault {
			out = true
		}
	}
	if !in || !out {
		t.Fatalf("expected default input and output devices, got %+v", devs)
	}
}
