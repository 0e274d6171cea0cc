package gpucore

import "github.com/gogpu/gputypes"

// CommandList is the outbound surface of one host recording stream.
// The engine issues binds through it to restore state and to inject work.
//
// Every bind returns an error so that restore can report handles that
// were destroyed mid-frame; the engine never retries a failed bind.
type CommandList interface {
	// ID returns the identity of the recording stream.
	ID() CommandListID

	BindRenderTargets(rtvs []ViewID, dsv ViewID) error
	BindPipeline(stages PipelineStage, pipeline PipelineID) error
	BindPipelineStates(states []DynamicState, values []uint32) error
	BindViewports(first uint32, viewports []Viewport) error
	BindScissorRects(first uint32, rects []Rect) error

	// BindDescriptorTables binds len(tables) tables to consecutive layout
	// parameters starting at first.
	BindDescriptorTables(stages ShaderStage, layout PipelineLayoutID, first uint32, tables []DescriptorTableID) error

	// PushDescriptors writes descriptors directly into a push-descriptor
	// layout parameter.
	PushDescriptors(stages ShaderStage, layout PipelineLayoutID, param uint32, update TableUpdate) error

	// PushConstants writes 32-bit values into a push-constant parameter
	// starting at value offset first.
	PushConstants(stages ShaderStage, layout PipelineLayoutID, param, first uint32, values []uint32) error

	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error
	CopyResource(src, dst ResourceID) error
	ClearRenderTargetView(view ViewID, color gputypes.Color) error
}

// StateBlockCommandList is implemented by command lists of APIs that expose
// a monolithic device state capture primitive.
type StateBlockCommandList interface {
	CommandList

	CaptureStateBlock() (StateBlockID, error)
	ApplyStateBlock(block StateBlockID) error
	DestroyStateBlock(block StateBlockID)
}

// Device answers queries about host objects and creates the few resources
// the engine owns (binding copy targets, preview textures).
type Device interface {
	// ResourceFromView returns the resource a view was created on,
	// or InvalidID when the view is unknown.
	ResourceFromView(view ViewID) ResourceID

	// ResourceDesc describes a resource. ok is false for unknown handles.
	ResourceDesc(res ResourceID) (desc ResourceDesc, ok bool)

	// DescriptorHeapOffset locates a table binding inside its heap.
	DescriptorHeapOffset(table DescriptorTableID, binding uint32) (heap DescriptorHeapID, offset uint32, ok bool)

	CreateTexture(desc ResourceDesc) (ResourceID, error)
	DestroyResource(res ResourceID)
}

// ViewPair holds a linear view and an sRGB view of one resource.
// Both are equal when the format has no sRGB variant.
type ViewPair struct {
	Linear ViewID
	SRGB   ViewID
}

// IsValid reports whether the linear view is set.
func (p ViewPair) IsValid() bool { return p.Linear != InvalidID }

// ViewProvider creates and caches the views the engine renders through.
type ViewProvider interface {
	RenderTargetViews(res ResourceID) (ViewPair, error)
	ShaderResourceViews(res ResourceID) (ViewPair, error)

	// Release drops cached views of a resource that is about to be destroyed.
	Release(res ResourceID)
}

// EffectRuntime is the post-processing runtime the engine drives.
type EffectRuntime interface {
	// RenderTechnique applies a named technique to the given view pair.
	RenderTechnique(cmd CommandList, technique string, rtv, rtvSRGB ViewID) error

	// UpdateTextureBinding points a named texture binding at new views.
	// Zero views reset the binding to its default.
	UpdateTextureBinding(name string, srv, srvSRGB ViewID) error

	// ScreenshotSize returns the back buffer size the runtime renders at.
	ScreenshotSize() (width, height uint32)
}
