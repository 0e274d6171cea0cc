// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resolve

import (
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/schedule"
)

// BoundState is the live binding state of one command list.
type BoundState interface {
	// RenderTargets returns the bound render target views.
	RenderTargets() []gpucore.ViewID

	// Descriptors returns the descriptor contents on a shader stage,
	// indexed by layout parameter then by descriptor.
	Descriptors(stage gpucore.ShaderStage) [][]gpucore.Descriptor
}

// SwapchainFunc returns the current back buffer size.
type SwapchainFunc func() (width, height uint32)

// Resolver maps a group's target selection policy to a concrete bound
// view or buffer.
//
// A Resolver is stateless apart from its collaborators and may be shared
// by every recording thread. The one piece of state it writes, a group's
// descriptor cursor, is locked by the group.
type Resolver struct {
	device    gpucore.Device
	swapchain SwapchainFunc
}

// New creates a resolver querying device for resource descriptions and
// swapchain for the back buffer size.
func New(device gpucore.Device, swapchain SwapchainFunc) *Resolver {
	if swapchain == nil {
		swapchain = func() (uint32, uint32) { return 0, 0 }
	}
	return &Resolver{device: device, swapchain: swapchain}
}

// clampIndex clamps idx into [0, n-1]. n must be positive.
func clampIndex(idx uint32, n int) int {
	return min(int(idx), n-1)
}

// renderTarget returns the render target at the clamped index when its
// resource satisfies the size policy.
func (r *Resolver) renderTarget(state BoundState, index uint32, mode group.MatchMode, needColor bool) (gpucore.ViewID, bool) {
	rtvs := state.RenderTargets()
	if len(rtvs) == 0 {
		return gpucore.InvalidID, false
	}
	view := rtvs[clampIndex(index, len(rtvs))]
	if view == gpucore.InvalidID {
		return gpucore.InvalidID, false
	}
	desc, ok := r.describe(view)
	if !ok {
		return gpucore.InvalidID, false
	}
	if needColor && !desc.Format.IsColor() {
		return gpucore.InvalidID, false
	}
	if !r.matches(desc, mode) {
		return gpucore.InvalidID, false
	}
	return view, true
}

func (r *Resolver) describe(view gpucore.ViewID) (gpucore.ResourceDesc, bool) {
	if r.device == nil {
		return gpucore.ResourceDesc{}, false
	}
	res := r.device.ResourceFromView(view)
	if res == gpucore.InvalidID {
		return gpucore.ResourceDesc{}, false
	}
	return r.device.ResourceDesc(res)
}

func (r *Resolver) matches(desc gpucore.ResourceDesc, mode group.MatchMode) bool {
	if mode >= group.MatchNone {
		return true
	}
	w, h := r.swapchain()
	return MatchesSwapchain(desc.Size.Width, desc.Size.Height, w, h, mode)
}

// EffectTarget returns the color render target effects of g draw into.
// The group's index is clamped to the bound count, so a group asking for
// target 2 while two are bound resolves to target 1.
func (r *Resolver) EffectTarget(g *group.Group, state BoundState) (gpucore.ViewID, bool) {
	return r.renderTarget(state, g.RenderTargetIndex, g.SwapchainMatch, true)
}

// BindingTarget returns the view g's texture binding is fed from: a bound
// shader resource descriptor when the group extracts resource views, a
// render target otherwise. A pending cycle request is applied first.
func (r *Resolver) BindingTarget(g *group.Group, state BoundState) (gpucore.ViewID, bool) {
	if !g.ExtractResourceViews {
		return r.renderTarget(state, g.BindingRenderTargetIndex, g.BindingSwapchainMatch, false)
	}

	sel := g.Binding()
	slots := state.Descriptors(sel.Stage)
	if len(slots) == 0 {
		return gpucore.InvalidID, false
	}
	descs := slots[clampIndex(sel.Slot, len(slots))]
	if len(descs) == 0 {
		return gpucore.InvalidID, false
	}
	idx := clampIndex(sel.Index, len(descs))

	if dir := g.TakeCycle(); dir != group.CycleNone {
		if next, ok := Cycle(descs, idx, dir); ok {
			idx = next
			g.CommitDescriptorIndex(uint32(next))
		}
	}

	d := descs[idx]
	if d.IsNull() || d.View == gpucore.InvalidID {
		return gpucore.InvalidID, false
	}
	desc, ok := r.describe(d.View)
	if !ok || !r.matches(desc, g.BindingSwapchainMatch) {
		return gpucore.InvalidID, false
	}
	return d.View, true
}

// PreviewTarget returns the view shown in the interactive preview of g:
// the render target at the group's effect index. It leaves a pending
// descriptor cycle request for the binding resolution.
func (r *Resolver) PreviewTarget(g *group.Group, state BoundState) (gpucore.ViewID, bool) {
	return r.renderTarget(state, g.RenderTargetIndex, g.SwapchainMatch, false)
}

// ConstantBuffer returns the constant buffer range g extracts.
func (r *Resolver) ConstantBuffer(g *group.Group, state BoundState) (gpucore.BufferRange, bool) {
	sel := g.Constants
	slots := state.Descriptors(sel.Stage)
	if len(slots) == 0 {
		return gpucore.BufferRange{}, false
	}
	descs := slots[clampIndex(sel.Slot, len(slots))]
	if len(descs) == 0 {
		return gpucore.BufferRange{}, false
	}
	d := descs[clampIndex(sel.Index, len(descs))]
	if d.Type != gpucore.DescriptorTypeConstantBuffer || d.IsNull() {
		return gpucore.BufferRange{}, false
	}
	return d.Buffer, true
}

// Func returns a resolve function for tasks of kind against state.
func (r *Resolver) Func(kind schedule.Kind, state BoundState) schedule.ResolveFunc {
	return func(e *schedule.Entry, _ schedule.Stage) (schedule.Target, bool) {
		switch kind {
		case schedule.KindEffect:
			v, ok := r.EffectTarget(e.Group, state)
			return schedule.Target{View: v}, ok
		case schedule.KindBinding:
			v, ok := r.BindingTarget(e.Group, state)
			return schedule.Target{View: v}, ok
		case schedule.KindPreview:
			v, ok := r.PreviewTarget(e.Group, state)
			return schedule.Target{View: v}, ok
		case schedule.KindConstant:
			b, ok := r.ConstantBuffer(e.Group, state)
			return schedule.Target{Buffer: b}, ok
		}
		return schedule.Target{}, false
	}
}
