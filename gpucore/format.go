package gpucore

import "github.com/gogpu/gputypes"

// Format is the host's texture format enum. It distinguishes typeless,
// linear and sRGB variants so views of one allocation can be paired.
type Format uint32

// Texture formats.
const (
	FormatUnknown Format = iota

	FormatR8G8B8A8Typeless
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8UnormSRGB

	FormatB8G8R8A8Typeless
	FormatB8G8R8A8Unorm
	FormatB8G8R8A8UnormSRGB

	FormatR10G10B10A2Unorm
	FormatR11G11B10Float
	FormatR16G16B16A16Float
	FormatR32G32B32A32Float

	FormatR8Unorm
	FormatR32Float

	FormatD24UnormS8Uint
	FormatD32Float
)

// IsColor reports whether f is usable as a color render target for
// post-processing.
func (f Format) IsColor() bool {
	switch f {
	case FormatR8G8B8A8Typeless, FormatR8G8B8A8Unorm, FormatR8G8B8A8UnormSRGB,
		FormatB8G8R8A8Typeless, FormatB8G8R8A8Unorm, FormatB8G8R8A8UnormSRGB,
		FormatR10G10B10A2Unorm, FormatR11G11B10Float,
		FormatR16G16B16A16Float, FormatR32G32B32A32Float:
		return true
	}
	return false
}

// IsDepth reports whether f is a depth or depth-stencil format.
func (f Format) IsDepth() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32Float
}

// IsSRGB reports whether f applies sRGB encoding on write.
func (f Format) IsSRGB() bool {
	return f == FormatR8G8B8A8UnormSRGB || f == FormatB8G8R8A8UnormSRGB
}

// Linear returns the non-sRGB typed variant of f.
func (f Format) Linear() Format {
	switch f {
	case FormatR8G8B8A8Typeless, FormatR8G8B8A8UnormSRGB:
		return FormatR8G8B8A8Unorm
	case FormatB8G8R8A8Typeless, FormatB8G8R8A8UnormSRGB:
		return FormatB8G8R8A8Unorm
	}
	return f
}

// SRGB returns the sRGB variant of f, or f itself when none exists.
func (f Format) SRGB() Format {
	switch f {
	case FormatR8G8B8A8Typeless, FormatR8G8B8A8Unorm:
		return FormatR8G8B8A8UnormSRGB
	case FormatB8G8R8A8Typeless, FormatB8G8R8A8Unorm:
		return FormatB8G8R8A8UnormSRGB
	}
	return f
}

// CopyCompatible reports whether a resource of format f can be the
// destination of a full copy from src.
func (f Format) CopyCompatible(src Format) bool {
	return f.Linear() == src.Linear()
}

// GPUTypes maps f to the equivalent WebGPU format.
// Formats without a WebGPU equivalent map to TextureFormatUndefined.
func (f Format) GPUTypes() gputypes.TextureFormat {
	switch f.Linear() {
	case FormatR8G8B8A8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case FormatB8G8R8A8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case FormatR8Unorm:
		return gputypes.TextureFormatR8Unorm
	case FormatD24UnormS8Uint:
		return gputypes.TextureFormatDepth24PlusStencil8
	}
	return gputypes.TextureFormatUndefined
}

// FormatFromGPUTypes maps a WebGPU format to the host format enum.
func FormatFromGPUTypes(f gputypes.TextureFormat) Format {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return FormatR8G8B8A8Unorm
	case gputypes.TextureFormatBGRA8Unorm:
		return FormatB8G8R8A8Unorm
	case gputypes.TextureFormatR8Unorm:
		return FormatR8Unorm
	case gputypes.TextureFormatDepth24PlusStencil8:
		return FormatD24UnormS8Uint
	}
	return FormatUnknown
}

// ResourceDesc describes a texture allocation.
type ResourceDesc struct {
	Size   gputypes.Extent3D
	Levels uint16
	Format Format
}

// SameShape reports whether d and other have identical size, mip count
// and format, meaning one can be copied over the other in full.
func (d ResourceDesc) SameShape(other ResourceDesc) bool {
	return d.Size.Width == other.Size.Width &&
		d.Size.Height == other.Size.Height &&
		d.Levels == other.Levels &&
		d.Format == other.Format
}
