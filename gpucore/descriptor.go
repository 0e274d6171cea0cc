package gpucore

// DescriptorType is the kind of object a descriptor references.
type DescriptorType uint32

// Descriptor types.
const (
	DescriptorTypeSampler DescriptorType = iota
	DescriptorTypeSamplerWithResourceView
	DescriptorTypeShaderResourceView
	DescriptorTypeUnorderedAccessView
	DescriptorTypeConstantBuffer
	DescriptorTypeShaderStorageBuffer
)

// UnboundedCount marks a descriptor range whose size is only known at
// bind time.
const UnboundedCount = ^uint32(0)

// DescriptorRange is one contiguous run of descriptors in a table layout.
type DescriptorRange struct {
	BaseBinding uint32
	Count       uint32
	Type        DescriptorType
	Visibility  ShaderStage
}

// LayoutParamType is the kind of a pipeline layout parameter.
type LayoutParamType uint32

// Layout parameter types.
const (
	LayoutParamUnknown LayoutParamType = iota
	LayoutParamDescriptorTable
	LayoutParamPushConstants
	LayoutParamPushDescriptors
)

// PushConstantRange describes a push-constant layout parameter.
type PushConstantRange struct {
	Count      uint32
	Visibility ShaderStage
}

// LayoutParam is one parameter of a pipeline layout.
type LayoutParam struct {
	Type   LayoutParamType
	Ranges []DescriptorRange
	Push   PushConstantRange
}

// BufferRange references a slice of a buffer.
type BufferRange struct {
	Buffer ResourceID
	Offset uint64
	Size   uint64
}

// SamplerWithView pairs a sampler and a view in a combined descriptor.
type SamplerWithView struct {
	Sampler SamplerID
	View    ViewID
}

// Descriptor is the content of one descriptor slot. Which field is valid
// depends on Type.
type Descriptor struct {
	Type    DescriptorType
	Sampler SamplerID
	View    ViewID
	Buffer  BufferRange
}

// IsNull reports whether the slot references nothing.
func (d Descriptor) IsNull() bool {
	switch d.Type {
	case DescriptorTypeSampler:
		return d.Sampler == InvalidID
	case DescriptorTypeConstantBuffer, DescriptorTypeShaderStorageBuffer:
		return d.Buffer.Buffer == InvalidID
	}
	return d.View == InvalidID
}

// Resource returns the view or buffer handle the descriptor references,
// widened to uint64 so callers can compare against InvalidID.
func (d Descriptor) Resource() uint64 {
	switch d.Type {
	case DescriptorTypeSampler:
		return uint64(d.Sampler)
	case DescriptorTypeConstantBuffer, DescriptorTypeShaderStorageBuffer:
		return uint64(d.Buffer.Buffer)
	}
	return uint64(d.View)
}

// TableUpdate writes descriptors into a table starting at Binding+ArrayOffset.
type TableUpdate struct {
	Table       DescriptorTableID
	Binding     uint32
	ArrayOffset uint32
	Type        DescriptorType
	Descriptors []Descriptor
}

// TableCopy copies Count descriptors between tables.
type TableCopy struct {
	Source        DescriptorTableID
	SourceBinding uint32
	SourceOffset  uint32
	Dest          DescriptorTableID
	DestBinding   uint32
	DestOffset    uint32
	Count         uint32
}
