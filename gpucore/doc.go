// Package gpucore defines the host vocabulary shared by every shadertoggle
// package.
//
// The engine never owns a graphics device. It observes a host runtime that
// intercepts an application's command stream and reports every bind, push
// and draw. This package describes those events and the calls the engine
// makes back into the host:
//
//   - opaque handles ([ResourceID], [ViewID], [PipelineID], ...), where
//     [InvalidID] is the null handle
//   - stage flags ([ShaderStage], [PipelineStage]) and dynamic state
//   - descriptor layouts and contents ([LayoutParam], [Descriptor])
//   - texture formats ([Format]) with a mapping to WebGPU formats
//   - outbound interfaces ([CommandList], [Device], [EffectRuntime],
//     [ViewProvider])
//
// # Handles
//
// The host owns every object referenced by a handle. A handle may become
// invalid at any time (the application destroyed the object mid-frame);
// outbound calls then fail with an error, which callers treat as best-effort.
package gpucore
