package gpucore

// Resource IDs
//
// These opaque IDs represent host GPU objects. The host runtime owns the
// objects; the engine only stores and forwards the handles it was given.
// IDs are uint64 to accommodate native pointers and API-specific handles.

// ResourceID is an opaque handle to a buffer or texture.
type ResourceID uint64

// ViewID is an opaque handle to a resource view (RTV, DSV, SRV or UAV).
type ViewID uint64

// PipelineID is an opaque handle to a pipeline or pipeline state object.
type PipelineID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout (root signature).
type PipelineLayoutID uint64

// DescriptorTableID is an opaque handle to a descriptor table.
type DescriptorTableID uint64

// DescriptorHeapID is an opaque handle to a descriptor heap.
type DescriptorHeapID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// StateBlockID is an opaque handle to a captured device state block.
type StateBlockID uint64

// CommandListID identifies a recording stream.
type CommandListID uint64

// InvalidID is the zero value, representing an invalid/null handle.
const InvalidID = 0

// API identifies the graphics API the host intercepts.
type API uint8

// Graphics APIs.
const (
	APIUnknown API = iota
	APID3D9
	APID3D10
	APID3D11
	APID3D12
	APIOpenGL
	APIVulkan
)

var apiNames = [...]string{
	APIUnknown: "unknown",
	APID3D9:    "d3d9",
	APID3D10:   "d3d10",
	APID3D11:   "d3d11",
	APID3D12:   "d3d12",
	APIOpenGL:  "opengl",
	APIVulkan:  "vulkan",
}

// String returns the lowercase API name.
func (a API) String() string {
	if int(a) < len(apiNames) {
		return apiNames[a]
	}
	return "unknown"
}

// ShaderStage is a bitmask of programmable shader stages.
type ShaderStage uint32

// Shader stage flags.
const (
	ShaderStageVertex   ShaderStage = 1 << 0
	ShaderStageHull     ShaderStage = 1 << 1
	ShaderStageDomain   ShaderStage = 1 << 2
	ShaderStageGeometry ShaderStage = 1 << 3
	ShaderStagePixel    ShaderStage = 1 << 4
	ShaderStageCompute  ShaderStage = 1 << 5

	ShaderStageAllGraphics = ShaderStageVertex | ShaderStageHull | ShaderStageDomain |
		ShaderStageGeometry | ShaderStagePixel
	ShaderStageAll = ShaderStageAllGraphics | ShaderStageCompute
)

// ShaderStages lists the individual stages in the order they are tracked.
var ShaderStages = [...]ShaderStage{
	ShaderStageVertex,
	ShaderStageHull,
	ShaderStageDomain,
	ShaderStageGeometry,
	ShaderStagePixel,
	ShaderStageCompute,
}

// Has reports whether all bits of other are set.
func (s ShaderStage) Has(other ShaderStage) bool {
	return s&other == other && other != 0
}

// Index returns the position of a single-bit stage within [ShaderStages],
// or -1 when s is not exactly one stage.
func (s ShaderStage) Index() int {
	for i, st := range ShaderStages {
		if s == st {
			return i
		}
	}
	return -1
}

// PipelineStage is a bitmask of pipeline sub-objects that can be bound.
type PipelineStage uint32

// Pipeline stage flags.
const (
	PipelineStageVertexShader   PipelineStage = 1 << 3
	PipelineStageHullShader     PipelineStage = 1 << 4
	PipelineStageDomainShader   PipelineStage = 1 << 5
	PipelineStageGeometryShader PipelineStage = 1 << 6
	PipelineStagePixelShader    PipelineStage = 1 << 7
	PipelineStageComputeShader  PipelineStage = 1 << 11

	PipelineStageInputAssembler PipelineStage = 1 << 1
	PipelineStageStreamOutput   PipelineStage = 1 << 2
	PipelineStageRasterizer     PipelineStage = 1 << 8
	PipelineStageDepthStencil   PipelineStage = 1 << 9
	PipelineStageOutputMerger   PipelineStage = 1 << 10

	PipelineStageAllShaders = PipelineStageVertexShader | PipelineStageHullShader |
		PipelineStageDomainShader | PipelineStageGeometryShader |
		PipelineStagePixelShader | PipelineStageComputeShader
	PipelineStageAllGraphics = PipelineStageInputAssembler | PipelineStageStreamOutput |
		PipelineStageVertexShader | PipelineStageHullShader | PipelineStageDomainShader |
		PipelineStageGeometryShader | PipelineStagePixelShader | PipelineStageRasterizer |
		PipelineStageDepthStencil | PipelineStageOutputMerger
	PipelineStageAll = PipelineStageAllGraphics | PipelineStageComputeShader
)

// Has reports whether any bit of other is set.
func (p PipelineStage) Has(other PipelineStage) bool {
	return p&other != 0
}

// ShaderStages converts the shader sub-objects of p into shader stage flags.
func (p PipelineStage) ShaderStages() ShaderStage {
	var s ShaderStage
	if p.Has(PipelineStageVertexShader) {
		s |= ShaderStageVertex
	}
	if p.Has(PipelineStageHullShader) {
		s |= ShaderStageHull
	}
	if p.Has(PipelineStageDomainShader) {
		s |= ShaderStageDomain
	}
	if p.Has(PipelineStageGeometryShader) {
		s |= ShaderStageGeometry
	}
	if p.Has(PipelineStagePixelShader) {
		s |= ShaderStagePixel
	}
	if p.Has(PipelineStageComputeShader) {
		s |= ShaderStageCompute
	}
	return s
}

// DynamicState names a scalar pipeline state that can be set without
// rebinding the pipeline.
type DynamicState uint32

// Dynamic states tracked by the snapshot.
const (
	DynamicStateUnknown DynamicState = iota
	DynamicStatePrimitiveTopology
	DynamicStateBlendConstant
	DynamicStateFrontStencilReference
	DynamicStateBackStencilReference
)

// PrimitiveTopologyUndefined is the value the host reports before any
// topology is set.
const PrimitiveTopologyUndefined uint32 = 0

// Viewport is a host viewport in render-target pixels.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is a scissor rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}
