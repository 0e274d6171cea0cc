// Package explicit provides the descriptor replay adapter used on APIs
// without native state blocks. It registers itself as "explicit":
//
//	import _ "github.com/gogpu/shadertoggle/backend/explicit"
package explicit

import (
	"fmt"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
)

func init() {
	backend.Register(backend.NameExplicit, New)
}

// Adapter restores command list state by replaying tracked binds. It has
// no native capture, so the recording package clones its tracked state
// instead.
type Adapter struct {
	layouts backend.LayoutSource
}

// New creates an explicit adapter reading layout parameters from
// cfg.Layouts.
func New(cfg backend.Config) backend.Adapter {
	return &Adapter{layouts: cfg.Layouts}
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return backend.NameExplicit }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.CapabilityDescriptorReplay }

// Capture implements backend.Adapter.
func (a *Adapter) Capture(gpucore.CommandList) (gpucore.StateBlockID, error) {
	return gpucore.InvalidID, fmt.Errorf("explicit: capture: %w", backend.ErrUnsupported)
}

// ApplyCaptured implements backend.Adapter.
func (a *Adapter) ApplyCaptured(gpucore.CommandList, gpucore.StateBlockID) error {
	return fmt.Errorf("explicit: apply: %w", backend.ErrUnsupported)
}

// Release implements backend.Adapter.
func (a *Adapter) Release(gpucore.CommandList, gpucore.StateBlockID) {}

// LayoutParam implements backend.Adapter.
func (a *Adapter) LayoutParam(layout gpucore.PipelineLayoutID, i uint32) (gpucore.LayoutParam, bool) {
	if a.layouts == nil {
		return gpucore.LayoutParam{}, false
	}
	return a.layouts.Param(layout, i)
}

// BindDescriptorTables implements backend.Adapter. A run covering a known
// non-table parameter is refused.
func (a *Adapter) BindDescriptorTables(cmd gpucore.CommandList, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) error {
	for i := range tables {
		p, ok := a.LayoutParam(layout, first+uint32(i))
		if ok && p.Type != gpucore.LayoutParamDescriptorTable {
			return fmt.Errorf("explicit: param %d of layout %d is not a table: %w", first+uint32(i), layout, backend.ErrUnsupported)
		}
	}
	return cmd.BindDescriptorTables(stages, layout, first, tables)
}
