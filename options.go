package shadertoggle

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadertoggle/executor"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/session"
)

// Option configures an Engine during creation.
//
// Example:
//
//	e, err := shadertoggle.New(
//	    shadertoggle.WithAPI(gpucore.APID3D12),
//	    shadertoggle.WithDevice(dev),
//	    shadertoggle.WithEffectRuntime(rt),
//	    shadertoggle.WithViewProvider(views),
//	)
type Option func(*options)

type options struct {
	backend string
	api     gpucore.API

	device    gpucore.Device
	runtime   gpucore.EffectRuntime
	views     gpucore.ViewProvider
	constants executor.ConstantSource
	provider  gpucontext.DeviceProvider

	retryLimit    int
	previewFormat gpucore.Format
}

func defaultOptions() options {
	return options{
		retryLimit:    session.DefaultRetryLimit,
		previewFormat: gpucore.FormatUnknown, // resolved in New
	}
}

// WithBackend forces the state capture adapter by registry name, for
// example backend.NameLegacy. By default the adapter is chosen from the API.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithAPI sets the graphics API the host intercepts.
func WithAPI(api gpucore.API) Option {
	return func(o *options) {
		o.api = api
	}
}

// WithDevice sets the device used for resource queries and the textures
// the engine owns. Required.
func WithDevice(d gpucore.Device) Option {
	return func(o *options) {
		o.device = d
	}
}

// WithEffectRuntime sets the post-processing runtime. Required.
func WithEffectRuntime(r gpucore.EffectRuntime) Option {
	return func(o *options) {
		o.runtime = r
	}
}

// WithViewProvider sets the provider of render target and shader resource
// views. Required.
func WithViewProvider(v gpucore.ViewProvider) Option {
	return func(o *options) {
		o.views = v
	}
}

// WithConstantSource enables constant buffer extraction. Without it,
// groups with ExtractConstants never receive data.
func WithConstantSource(c executor.ConstantSource) Option {
	return func(o *options) {
		o.constants = c
	}
}

// WithDeviceProvider connects the engine to a gogpu device provider.
// Its surface format becomes the default preview format, and when the
// provider implements WaitIdle the engine waits on it before destroying
// textures the GPU may still read.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithRetryLimit sets how many frames an unresolved retrying task stays
// queued. Zero keeps it until it resolves.
func WithRetryLimit(frames int) Option {
	return func(o *options) {
		if frames >= 0 {
			o.retryLimit = frames
		}
	}
}

// WithPreviewFormat sets the format of the preview texture. It takes
// precedence over the device provider's surface format.
func WithPreviewFormat(f gpucore.Format) Option {
	return func(o *options) {
		o.previewFormat = f
	}
}

// resolvedPreviewFormat returns the explicit preview format, the provider's
// surface format, or RGBA8 in that order.
func (o *options) resolvedPreviewFormat() gpucore.Format {
	if o.previewFormat != gpucore.FormatUnknown {
		return o.previewFormat
	}
	if o.provider != nil {
		if sf := o.provider.SurfaceFormat(); sf != gputypes.TextureFormatUndefined {
			if f := gpucore.FormatFromGPUTypes(sf); f.IsColor() {
				return f
			}
		}
	}
	return gpucore.FormatR8G8B8A8Unorm
}

// idler is implemented by device providers that can block until the GPU
// finished all submitted work.
type idler interface {
	WaitIdle()
}

func (o *options) waitIdle() func() {
	if w, ok := o.provider.(idler); ok {
		return w.WaitIdle
	}
	return nil
}

func (o *options) validate() error {
	switch {
	case o.device == nil:
		return ErrNoDevice
	case o.runtime == nil:
		return ErrNoRuntime
	case o.views == nil:
		return ErrNoViewProvider
	}
	return nil
}
