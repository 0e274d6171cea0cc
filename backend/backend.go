package backend

import (
	"errors"

	"github.com/gogpu/shadertoggle/gpucore"
)

// Common backend errors.
var (
	// ErrUnsupported is returned when an adapter lacks an operation.
	ErrUnsupported = errors.New("backend: operation not supported")

	// ErrInvalidBlock is returned when a captured block is applied after
	// release or on another command list.
	ErrInvalidBlock = errors.New("backend: invalid state block")
)

// Capability is the state capture strategy an adapter provides.
type Capability uint8

const (
	// CapabilityDescriptorReplay restores state by re-issuing tracked
	// binds, including descriptor tables.
	CapabilityDescriptorReplay Capability = iota

	// CapabilityStateBlock restores state through a device-native state
	// block primitive.
	CapabilityStateBlock
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapabilityStateBlock:
		return "StateBlock"
	case CapabilityDescriptorReplay:
		return "DescriptorReplay"
	default:
		return "Unknown"
	}
}

// LayoutSource returns pipeline layout parameters.
type LayoutSource interface {
	Param(layout gpucore.PipelineLayoutID, i uint32) (gpucore.LayoutParam, bool)
}

// Adapter abstracts how the binding state of a command list is captured
// and restored on one graphics API family.
//
// An adapter is selected once per device and shared by every command list
// of that device, so implementations must be safe for concurrent use.
type Adapter interface {
	// Name returns the registry name of the adapter.
	Name() string

	// Capability returns the capture strategy.
	Capability() Capability

	// Capture records the native state of cmd. Adapters without the
	// state block capability return ErrUnsupported.
	Capture(cmd gpucore.CommandList) (gpucore.StateBlockID, error)

	// ApplyCaptured re-applies a block returned by Capture.
	ApplyCaptured(cmd gpucore.CommandList, block gpucore.StateBlockID) error

	// Release frees a block returned by Capture.
	Release(cmd gpucore.CommandList, block gpucore.StateBlockID)

	// LayoutParam returns parameter i of layout, when known.
	LayoutParam(layout gpucore.PipelineLayoutID, i uint32) (gpucore.LayoutParam, bool)

	// BindDescriptorTables re-binds a contiguous run of tables.
	BindDescriptorTables(cmd gpucore.CommandList, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) error
}

// Config carries the device-wide collaborators an adapter may need.
type Config struct {
	Layouts LayoutSource
}
