package recording

import (
	"errors"
	"fmt"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
)

// ErrReleased is returned when a released snapshot is applied.
var ErrReleased = errors.New("recording: snapshot released")

// Snapshot is the binding state of a command list captured before
// injected work. Depending on the adapter's capability it holds either a
// native state block or a copy of the tracked state.
type Snapshot struct {
	adapter  backend.Adapter
	block    gpucore.StateBlockID
	state    *StateBlock
	released bool
}

// Capture snapshots the binding state of cmd.
func Capture(adapter backend.Adapter, cmd gpucore.CommandList, tracker *Tracker) (*Snapshot, error) {
	if adapter != nil && adapter.Capability() == backend.CapabilityStateBlock {
		block, err := adapter.Capture(cmd)
		if err != nil {
			return nil, fmt.Errorf("recording: capture: %w", err)
		}
		return &Snapshot{adapter: adapter, block: block}, nil
	}
	return &Snapshot{adapter: adapter, state: tracker.State()}, nil
}

// Native reports whether the snapshot holds a device state block.
func (s *Snapshot) Native() bool { return s.state == nil }

// State returns the captured tracked state, or nil for native snapshots.
func (s *Snapshot) State() *StateBlock { return s.state }

// Apply restores the captured state on cmd. It may be called repeatedly
// until Release.
func (s *Snapshot) Apply(cmd gpucore.CommandList) error {
	if s.released {
		return ErrReleased
	}
	var err error
	if s.state == nil {
		err = s.adapter.ApplyCaptured(cmd, s.block)
	} else {
		err = s.state.Apply(cmd, s.adapter)
	}
	if err != nil {
		slogger().Warn("recording: restore incomplete", "cmd", cmd.ID(), "err", err)
	}
	return err
}

// Release frees the native state block, if any.
func (s *Snapshot) Release(cmd gpucore.CommandList) {
	if s.released {
		return
	}
	s.released = true
	if s.state == nil {
		s.adapter.Release(cmd, s.block)
	}
}
