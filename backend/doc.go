// Package backend provides the pluggable state capture abstraction.
//
// Graphics APIs differ in how command list state can be saved around
// injected work. Older single-threaded APIs offer a native state block
// that captures and restores everything in one call. Explicit APIs do not,
// so the tracked binds, including descriptor tables, are replayed instead.
// An [Adapter] hides that divergence behind one interface and reports
// which [Capability] it provides.
//
// # Adapter Registration
//
// Adapters are registered via init() functions, following the
// database/sql driver pattern:
//
//	import (
//		_ "github.com/gogpu/shadertoggle/backend/explicit"
//		_ "github.com/gogpu/shadertoggle/backend/legacy"
//	)
//
// # Adapter Selection
//
// The adapter is selected once per device, either by name or from the
// device's API:
//
//	a, err := backend.Select("", gpucore.APID3D12, backend.Config{Layouts: layouts})
//	if err != nil {
//		return err
//	}
//
// # Available Adapters
//
//   - "legacy": native state blocks (D3D9)
//   - "explicit": descriptor table replay (D3D10+, OpenGL, Vulkan)
//
// The wgpu sub-package is not an adapter. It provides a
// [gpucore.CommandList] over a gogpu/wgpu render pass for hosts built on
// that stack.
package backend
