// Package legacy provides the state block adapter.
//
// It requires command lists implementing [gpucore.StateBlockCommandList]
// and registers itself as "legacy":
//
//	import _ "github.com/gogpu/shadertoggle/backend/legacy"
package legacy

import (
	"fmt"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
)

func init() {
	backend.Register(backend.NameLegacy, New)
}

// Adapter captures command list state with native state blocks.
type Adapter struct {
	layouts backend.LayoutSource
}

// New creates a legacy adapter.
func New(cfg backend.Config) backend.Adapter {
	return &Adapter{layouts: cfg.Layouts}
}

// Name implements backend.Adapter.
func (a *Adapter) Name() string { return backend.NameLegacy }

// Capability implements backend.Adapter.
func (a *Adapter) Capability() backend.Capability { return backend.CapabilityStateBlock }

func stateBlocks(cmd gpucore.CommandList) (gpucore.StateBlockCommandList, error) {
	sb, ok := cmd.(gpucore.StateBlockCommandList)
	if !ok {
		return nil, fmt.Errorf("legacy: command list %d has no state blocks: %w", cmd.ID(), backend.ErrUnsupported)
	}
	return sb, nil
}

// Capture implements backend.Adapter.
func (a *Adapter) Capture(cmd gpucore.CommandList) (gpucore.StateBlockID, error) {
	sb, err := stateBlocks(cmd)
	if err != nil {
		return gpucore.InvalidID, err
	}
	block, err := sb.CaptureStateBlock()
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("legacy: capture: %w", err)
	}
	return block, nil
}

// ApplyCaptured implements backend.Adapter.
func (a *Adapter) ApplyCaptured(cmd gpucore.CommandList, block gpucore.StateBlockID) error {
	if block == gpucore.InvalidID {
		return backend.ErrInvalidBlock
	}
	sb, err := stateBlocks(cmd)
	if err != nil {
		return err
	}
	if err := sb.ApplyStateBlock(block); err != nil {
		return fmt.Errorf("legacy: apply: %w", err)
	}
	return nil
}

// Release implements backend.Adapter.
func (a *Adapter) Release(cmd gpucore.CommandList, block gpucore.StateBlockID) {
	if block == gpucore.InvalidID {
		return
	}
	if sb, err := stateBlocks(cmd); err == nil {
		sb.DestroyStateBlock(block)
	}
}

// LayoutParam implements backend.Adapter.
func (a *Adapter) LayoutParam(layout gpucore.PipelineLayoutID, i uint32) (gpucore.LayoutParam, bool) {
	if a.layouts == nil {
		return gpucore.LayoutParam{}, false
	}
	return a.layouts.Param(layout, i)
}

// BindDescriptorTables implements backend.Adapter.
func (a *Adapter) BindDescriptorTables(cmd gpucore.CommandList, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) error {
	return cmd.BindDescriptorTables(stages, layout, first, tables)
}
