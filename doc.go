// Package shadertoggle schedules post-processing work around the draw
// calls of an intercepted renderer.
//
// # Overview
//
// A host that intercepts a game's graphics API forwards its callbacks to
// an [Engine]. The engine identifies bound shaders by a CRC32 of their
// binary and matches them against toggle groups. A group decides what
// happens around matching draws:
//
//   - effect techniques render into a bound render target
//   - a named texture binding of the effect runtime is fed from a bound
//     view, by reference or by copy
//   - a constant buffer is copied out for the effect runtime
//   - the target is copied into a preview texture for an editor
//   - matching draws are hidden
//
// The work is queued on the pipeline bind and runs at the group's
// invocation point: the next draw, the next pipeline change or the next
// render target change. Before injecting work the engine captures the
// command list's binding state and restores it afterwards, so the game
// continues recording unaware.
//
// # Quick Start
//
//	e, err := shadertoggle.New(
//	    shadertoggle.WithAPI(gpucore.APID3D12),
//	    shadertoggle.WithDevice(dev),
//	    shadertoggle.WithEffectRuntime(rt),
//	    shadertoggle.WithViewProvider(views),
//	)
//	if err != nil {
//	    return err
//	}
//
//	g := group.New(1, "Bloom")
//	g.Active = true
//	g.AddHash(gpucore.ShaderStagePixel, 0x1a2b3c4d)
//	g.PreferredTechniques = []string{"Bloom [Bloom.fx]"}
//	e.AddGroup(g)
//
// # Architecture
//
// The engine is built from these packages:
//   - schedule: per command list queues and the queue bitmask
//   - resolve: maps a group's target policy to a bound view
//   - recording: tracks and restores command list state
//   - backend: capture strategies per graphics API family
//   - executor: performs the queued work
//   - shaderhash: shader identification
//
// # Concurrency
//
// Command lists record concurrently. Each command list's callbacks must
// arrive from the thread recording it. Group and technique configuration
// is guarded by a reader/writer lock held briefly on every bind.
package shadertoggle
