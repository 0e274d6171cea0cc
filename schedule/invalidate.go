// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

// Invalidate purges entries that a bind at site made obsolete and clears
// their bits. change is a segment-relative mask selecting the affected
// (kind, stage) pairs, for example StageMask(StagePixel) when a pixel
// shader pipeline is bound.
//
// On a render-target bind, resolved entries scheduled at the render-target
// call-site that were not consumed reference the outgoing render target;
// they are dropped.
//
// On a pipeline bind:
//   - render-target entries still waiting for their draw are dropped,
//     since the draw they were queued for will not happen
//   - draw and pipeline entries are dropped
//
// An unresolved entry of a retrying group carries no resource and survives.
// Invalidate returns the number of entries removed.
func Invalidate(state *CommandListState, site CallSite, change Mask) int {
	purged := 0
	for stage := Stage(0); stage < NumStages; stage++ {
		for kind := Kind(0); kind < numKinds; kind++ {
			if change&Bit(CallDraw, kind, stage) == 0 {
				continue
			}
			var n int
			switch site {
			case CallBindRenderTarget:
				n = state.purge(kind, stage, func(e *Entry) bool {
					return e.Location == CallBindRenderTarget && e.Resolved()
				})
			case CallBindPipeline:
				n = state.purge(kind, stage, func(e *Entry) bool {
					if !e.Resolved() && e.Group.Retry {
						return false
					}
					switch e.Location {
					case CallBindRenderTarget:
						return !e.Resolved()
					default:
						return true
					}
				})
			}
			if n > 0 {
				state.Sync(kind, stage)
				purged += n
			}
		}
	}
	return purged
}
