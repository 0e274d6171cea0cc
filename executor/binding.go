// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package executor

import (
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/recording"
	"github.com/gogpu/shadertoggle/schedule"
	"github.com/gogpu/shadertoggle/session"
	"github.com/gogpu/shadertoggle/techniques"
)

// CopyResult is the outcome of preparing a copy-mode binding target.
type CopyResult uint8

// Copy target outcomes.
const (
	CopyFailed CopyResult = iota
	CopyUnchanged
	CopyRecreated
)

// Bindings feeds effect texture bindings from resolved views.
//
// In reference mode the runtime binding points at the game's resource.
// In copy mode the engine owns a texture of the same shape and copies the
// resolved resource into it, optionally flipping it afterwards.
type Bindings struct{}

// Kind implements Executor.
func (Bindings) Kind() schedule.Kind { return schedule.KindBinding }

type bindingTask struct {
	name string
	view gpucore.ViewID
	copy bool
	flip bool
}

// Execute implements Executor.
func (Bindings) Execute(ctx *Context, site schedule.CallSite) bool {
	ctx.Session.RLock()
	keys := dequeue(ctx, schedule.KindBinding, site, bindingQueue)
	if keys.empty() {
		ctx.Session.RUnlock()
		return false
	}

	var tasks []bindingTask
	seen := make(map[string]bool)
	ctx.Session.RLockBindings()
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		for _, name := range keys[stage] {
			e, ok := ctx.State.Stages[stage].Bindings.Get(name)
			if !ok || seen[name] || ctx.Session.BindingUpdated(name) {
				continue
			}
			seen[name] = true
			tasks = append(tasks, bindingTask{
				name: name,
				view: e.Target.View,
				copy: e.Group.CopyTextureBinding,
				flip: e.Group.FlipBinding,
			})
		}
	}
	ctx.Session.RUnlockBindings()
	ctx.Session.RUnlock()

	var (
		snap     *recording.Snapshot
		injected bool
	)
	for _, t := range tasks {
		var ok bool
		if t.copy {
			ok = copyBinding(ctx, t, &snap)
			injected = injected || ok
		} else {
			ok = referenceBinding(ctx, t)
		}
		if ok {
			ctx.Session.MarkBindingUpdated(t.name)
		}
	}
	if snap != nil {
		_ = snap.Apply(ctx.Cmd)
		snap.Release(ctx.Cmd)
	}

	remove(ctx, schedule.KindBinding, bindingQueue, keys)
	return injected
}

// referenceBinding points the runtime binding at the resolved resource.
func referenceBinding(ctx *Context, t bindingTask) bool {
	res := ctx.Device.ResourceFromView(t.view)
	if res == gpucore.InvalidID {
		return false
	}
	desc, _ := ctx.Device.ResourceDesc(res)
	views, err := ctx.Views.ShaderResourceViews(res)
	if err != nil || !views.IsValid() {
		slogger().Warn("executor: no shader resource views", "binding", t.name, "resource", res, "err", err)
		return false
	}

	ctx.Session.LockBindings()
	b := ctx.Session.Binding(t.name)
	changed := b.Resource != res || b.Owned
	if changed {
		b.Resource, b.Desc, b.Views, b.Targets, b.Owned = res, desc, views, gpucore.ViewPair{}, false
	}
	b.Cleared = false
	ctx.Session.UnlockBindings()

	if changed {
		if err := ctx.Runtime.UpdateTextureBinding(t.name, views.Linear, views.SRGB); err != nil {
			slogger().Warn("executor: update binding failed", "binding", t.name, "err", err)
			return false
		}
	}
	return true
}

// copyBinding copies the resolved resource into the engine-owned binding
// texture. The state is captured lazily into snap before a flip draws.
func copyBinding(ctx *Context, t bindingTask, snap **recording.Snapshot) bool {
	src := ctx.Device.ResourceFromView(t.view)
	if src == gpucore.InvalidID {
		return false
	}
	desc, ok := ctx.Device.ResourceDesc(src)
	if !ok {
		return false
	}
	b, result := PrepareCopyTarget(ctx, t.name, desc)
	if result == CopyFailed {
		return false
	}
	if err := ctx.Cmd.CopyResource(src, b.Resource); err != nil {
		slogger().Warn("executor: binding copy failed", "binding", t.name, "err", err)
		return false
	}

	techs := ctx.Session.Techniques()
	if t.flip && b.Targets.IsValid() && techs.Has(techniques.Flip) {
		if *snap == nil {
			s, err := recording.Capture(ctx.Adapter, ctx.Cmd, ctx.Tracker)
			if err != nil {
				slogger().Warn("executor: flip skipped, state capture failed", "binding", t.name, "err", err)
				return true
			}
			*snap = s
		}
		render(ctx, techniques.Flip, b.Targets)
	}
	return true
}

// PrepareCopyTarget makes sure the named binding owns a texture shaped
// like desc, recreating it on mismatch, and returns the binding state.
func PrepareCopyTarget(ctx *Context, name string, desc gpucore.ResourceDesc) (session.Binding, CopyResult) {
	ctx.Session.LockBindings()
	b := ctx.Session.Binding(name)
	if b.Owned && b.Resource != gpucore.InvalidID && b.Desc.SameShape(desc) {
		b.Cleared = false
		out := *b
		ctx.Session.UnlockBindings()
		return out, CopyUnchanged
	}

	if b.Owned && b.Resource != gpucore.InvalidID {
		ctx.waitIdle()
		ctx.Views.Release(b.Resource)
		ctx.Device.DestroyResource(b.Resource)
	}
	*b = session.Binding{Name: name}

	res, err := ctx.Device.CreateTexture(desc)
	if err != nil {
		ctx.Session.UnlockBindings()
		slogger().Warn("executor: binding texture recreation failed", "binding", name, "err", err)
		return session.Binding{Name: name}, CopyFailed
	}
	srv, err := ctx.Views.ShaderResourceViews(res)
	if err != nil {
		ctx.Device.DestroyResource(res)
		ctx.Session.UnlockBindings()
		slogger().Warn("executor: binding texture views failed", "binding", name, "err", err)
		return session.Binding{Name: name}, CopyFailed
	}
	var rtv gpucore.ViewPair
	if desc.Format.IsColor() {
		rtv, _ = ctx.Views.RenderTargetViews(res)
	}
	b.Resource, b.Desc, b.Views, b.Targets, b.Owned = res, desc, srv, rtv, true
	out := *b
	ctx.Session.UnlockBindings()

	slogger().Debug("executor: binding texture recreated", "binding", name,
		"width", desc.Size.Width, "height", desc.Size.Height)
	if err := ctx.Runtime.UpdateTextureBinding(name, srv.Linear, srv.SRGB); err != nil {
		slogger().Warn("executor: update binding failed", "binding", name, "err", err)
	}
	return out, CopyRecreated
}

// ClearUnmatched resets the bindings of groups with ClearBindingOnMiss
// that were not updated this frame. Owned copy textures are destroyed.
// It returns the number of bindings reset. Call it before the frame's
// updated sets are cleared.
func ClearUnmatched(ctx *Context) int {
	ctx.Session.RLock()
	var names []string
	for _, g := range ctx.Session.Groups().Active() {
		if g.ProvidesBinding() && g.ClearBindingOnMiss {
			names = append(names, g.TextureBindingName)
		}
	}
	ctx.Session.RUnlock()
	if len(names) == 0 {
		return 0
	}

	type reset struct {
		name  string
		owned gpucore.ResourceID
	}
	var resets []reset
	ctx.Session.LockBindings()
	for _, name := range names {
		if ctx.Session.BindingUpdated(name) {
			continue
		}
		b := ctx.Session.Binding(name)
		if b.Cleared {
			continue
		}
		r := reset{name: name}
		if b.Owned {
			r.owned = b.Resource
		}
		*b = session.Binding{Name: name, Cleared: true}
		resets = append(resets, r)
	}
	ctx.Session.UnlockBindings()

	for _, r := range resets {
		if r.owned != gpucore.InvalidID {
			ctx.waitIdle()
			break
		}
	}
	for _, r := range resets {
		if err := ctx.Runtime.UpdateTextureBinding(r.name, gpucore.InvalidID, gpucore.InvalidID); err != nil {
			slogger().Warn("executor: reset binding failed", "binding", r.name, "err", err)
		}
		if r.owned != gpucore.InvalidID {
			ctx.Views.Release(r.owned)
			ctx.Device.DestroyResource(r.owned)
		}
	}
	return len(resets)
}
