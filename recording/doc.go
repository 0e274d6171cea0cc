// Package recording captures and restores the binding state of command
// lists around injected work.
//
// # Tracking
//
// A [Tracker] follows every bind the host records on one command list
// and keeps a [StateBlock] current:
//
//	t := recording.NewTracker(descriptors)
//	t.BindRenderTargets(rtvs, dsv)
//	t.BindPipeline(gpucore.PipelineStageAllGraphics, pipeline, layout)
//	t.BindDescriptorTables(gpucore.ShaderStagePixel, layout, 0, tables)
//
// Binding a different pipeline layout on a stage drops the tables,
// pushed descriptors and constants of that stage, since they are scoped
// to the old layout.
//
// The tracker also answers the queries target resolution needs:
// [Tracker.RenderTargets], [Tracker.Descriptors] and
// [Tracker.RootTableEntrySizeAt].
//
// # Capture and Restore
//
// [Capture] snapshots the state through the device's backend adapter.
// With the state block capability the native primitive is used; with
// descriptor replay the tracked state is cloned and [StateBlock.Apply]
// re-issues the minimal set of binds:
//
//	snap, err := recording.Capture(adapter, cmd, tracker)
//	if err != nil {
//		return err
//	}
//	defer snap.Release(cmd)
//
//	// ... render effects ...
//
//	if err := snap.Apply(cmd); err != nil {
//		// best effort: every bind was attempted
//	}
//
// Restores are best effort. Every bind is attempted and failures are
// returned joined with [errors.Join].
package recording
