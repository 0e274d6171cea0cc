// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

import (
	"github.com/gogpu/shadertoggle/session"
)

// CheckCallForCommandList queues the outstanding work of every group
// matching the pipelines bound on state's stages, and ORs the bits of new
// entries into the mask. It never clears bits.
//
// Enqueueing is idempotent by task key, so calling it twice without an
// intervening change adds nothing. It returns the bits it added.
//
// The caller holds the session's render and binding read locks.
func CheckCallForCommandList(state *CommandListState, sess *session.Session) Mask {
	frame := sess.Frame()
	techs := sess.Techniques()

	var added Mask
	for stage := Stage(0); stage < NumStages; stage++ {
		st := &state.Stages[stage]
		for _, g := range st.Blocked {
			if !sess.IsLive(g) {
				continue
			}
			loc := SiteOf(g.Invocation)

			if g.ExtractConstants && !sess.ConstantUpdated(g) {
				if st.Constants.Enqueue(g, g, CallDraw, frame) {
					added |= Bit(CallDraw, KindConstant, stage)
				}
			}

			// The draw bit guarantees a resolution attempt even when the
			// configured location never fires.
			if sess.PreviewPending(g) {
				if st.Previews.Enqueue(g, g, loc, frame) {
					added |= Bit(loc, KindPreview, stage) | Bit(CallDraw, KindPreview, stage)
				}
			}

			if g.ProvidesBinding() && !sess.BindingUpdated(g.TextureBindingName) {
				// A reference or an extracted descriptor is valid at draw; a
				// copy has to happen where the transient content exists.
				bloc := SiteOf(g.BindingInvocation)
				if !g.CopyTextureBinding || g.ExtractResourceViews {
					bloc = CallDraw
				}
				if st.Bindings.Enqueue(g.TextureBindingName, g, bloc, frame) {
					added |= Bit(bloc, KindBinding, stage) | Bit(CallDraw, KindBinding, stage)
				}
			}

			if g.AllowAllTechniques {
				for _, name := range techs.Ordered() {
					if techs.Rendered(name) || g.IsTechniqueExcepted(name) {
						continue
					}
					if st.Effects.Enqueue(name, g, loc, frame) {
						added |= Bit(loc, KindEffect, stage) | Bit(CallDraw, KindEffect, stage)
					}
				}
				continue
			}
			for _, name := range g.PreferredTechniques {
				if !techs.Pending(name) {
					continue
				}
				if st.Effects.Enqueue(name, g, loc, frame) {
					added |= Bit(loc, KindEffect, stage) | Bit(CallDraw, KindEffect, stage)
				}
			}
		}
	}

	state.Mask |= added
	return added
}
