// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package executor

import (
	"cmp"
	"slices"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/recording"
	"github.com/gogpu/shadertoggle/schedule"
	"github.com/gogpu/shadertoggle/techniques"
)

// Effects renders queued effect techniques into their resolved targets.
type Effects struct{}

// Kind implements Executor.
func (Effects) Kind() schedule.Kind { return schedule.KindEffect }

// effectBatch is the techniques of one group rendered into one target,
// in render order. The group policy is copied under the render lock.
type effectBatch struct {
	group         *group.Group
	name          string
	view          gpucore.ViewID
	toneMap       bool
	preserveAlpha bool
	names         []string
	keys          ready[string]
}

// Execute implements Executor.
func (Effects) Execute(ctx *Context, site schedule.CallSite) bool {
	techs := ctx.Session.Techniques()

	ctx.Session.RLock()
	keys := dequeue(ctx, schedule.KindEffect, site, effectQueue)
	if keys.empty() {
		ctx.Session.RUnlock()
		return false
	}
	batches, stale := planEffects(ctx, techs, keys)
	ctx.Session.RUnlock()

	rendered := false
	if len(batches) > 0 {
		rendered = renderBatches(ctx, techs, batches)
	}

	done := stale
	for _, b := range batches {
		for stage := range b.keys {
			done[stage] = append(done[stage], b.keys[stage]...)
		}
	}
	remove(ctx, schedule.KindEffect, effectQueue, done)
	return rendered
}

// planEffects groups the ready techniques by group and target in render
// order. Techniques that were disabled or already rendered this frame are
// returned as stale.
func planEffects(ctx *Context, techs *techniques.Table, keys ready[string]) ([]*effectBatch, ready[string]) {
	pos := make(map[string]int)
	for i, name := range techs.Ordered() {
		pos[name] = i
	}

	type item struct {
		stage schedule.Stage
		name  string
		entry *schedule.Entry
	}
	var (
		items []item
		stale ready[string]
	)
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		for _, name := range keys[stage] {
			e, ok := ctx.State.Stages[stage].Effects.Get(name)
			if _, ordered := pos[name]; !ok || !ordered || !techs.Pending(name) {
				stale[stage] = append(stale[stage], name)
				continue
			}
			items = append(items, item{stage: stage, name: name, entry: e})
		}
	}
	slices.SortStableFunc(items, func(a, b item) int {
		return cmp.Compare(pos[a.name], pos[b.name])
	})

	var batches []*effectBatch
	for _, it := range items {
		i := slices.IndexFunc(batches, func(b *effectBatch) bool {
			return b.group == it.entry.Group && b.view == it.entry.Target.View
		})
		if i < 0 {
			g := it.entry.Group
			batches = append(batches, &effectBatch{
				group:         g,
				name:          g.Name,
				view:          it.entry.Target.View,
				toneMap:       g.ToneMap,
				preserveAlpha: g.PreserveAlpha,
			})
			i = len(batches) - 1
		}
		b := batches[i]
		if !slices.Contains(b.names, it.name) {
			b.names = append(b.names, it.name)
		}
		b.keys[it.stage] = append(b.keys[it.stage], it.name)
	}
	return batches, stale
}

// renderBatches captures the bound state, renders every batch and
// restores the state if anything was drawn.
func renderBatches(ctx *Context, techs *techniques.Table, batches []*effectBatch) bool {
	snap, err := recording.Capture(ctx.Adapter, ctx.Cmd, ctx.Tracker)
	if err != nil {
		slogger().Warn("executor: effects skipped, state capture failed", "cmd", ctx.Cmd.ID(), "err", err)
		return false
	}
	defer snap.Release(ctx.Cmd)

	rendered := false
	for _, b := range batches {
		if renderBatch(ctx, techs, b) {
			rendered = true
		}
	}
	if rendered {
		_ = snap.Apply(ctx.Cmd)
	}
	return rendered
}

func renderBatch(ctx *Context, techs *techniques.Table, b *effectBatch) bool {
	res := ctx.Device.ResourceFromView(b.view)
	if res == gpucore.InvalidID {
		slogger().Debug("executor: effect target gone", "group", b.name, "view", b.view)
		return false
	}
	views, err := ctx.Views.RenderTargetViews(res)
	if err != nil || !views.IsValid() {
		slogger().Warn("executor: no render target views", "group", b.name, "resource", res, "err", err)
		return false
	}

	var alpha gpucore.ViewPair
	if b.preserveAlpha && techs.Has(techniques.RestoreAlpha) {
		alpha = saveAlpha(ctx, b.group, res)
	}
	if b.toneMap && techs.Has(techniques.TonemapToSDR) {
		render(ctx, techniques.TonemapToSDR, views)
	}
	rendered := false
	for _, name := range b.names {
		// Another command list may have rendered it since planning.
		if !techs.Pending(name) {
			continue
		}
		if !render(ctx, name, views) {
			continue
		}
		techs.MarkRendered(name)
		ctx.Session.MarkEffectsRendered()
		rendered = true
	}
	if b.toneMap && techs.Has(techniques.TonemapToHDR) {
		render(ctx, techniques.TonemapToHDR, views)
	}
	if rendered && alpha.IsValid() {
		restoreAlpha(ctx, b.name, alpha, views)
	}
	return rendered
}

// restoreAlpha renders RestoreAlpha into views, reading the alpha saved
// in the group buffer behind alpha.
func restoreAlpha(ctx *Context, name string, alpha, views gpucore.ViewPair) {
	if err := ctx.Runtime.UpdateTextureBinding(techniques.AlphaSource, alpha.Linear, alpha.SRGB); err != nil {
		slogger().Warn("executor: alpha source binding failed", "group", name, "err", err)
		return
	}
	render(ctx, techniques.RestoreAlpha, views)
}

func render(ctx *Context, technique string, views gpucore.ViewPair) bool {
	if err := ctx.Runtime.RenderTechnique(ctx.Cmd, technique, views.Linear, views.SRGB); err != nil {
		slogger().Warn("executor: render failed", "technique", technique, "err", err)
		return false
	}
	return true
}

// RenderRemaining renders every enabled technique that did not render
// this frame into backBuffer. Hosts call it before present so that
// techniques whose groups never matched still run once per frame. Nothing
// renders in a frame where no group rendered an effect.
func RenderRemaining(ctx *Context, backBuffer gpucore.ResourceID) bool {
	if !ctx.Session.EffectsRendered() {
		return false
	}
	techs := ctx.Session.Techniques()
	var pending []string
	for _, name := range techs.Ordered() {
		if techs.Pending(name) {
			pending = append(pending, name)
		}
	}
	if len(pending) == 0 || backBuffer == gpucore.InvalidID {
		return false
	}
	views, err := ctx.Views.RenderTargetViews(backBuffer)
	if err != nil || !views.IsValid() {
		slogger().Warn("executor: no back buffer views", "resource", backBuffer, "err", err)
		return false
	}

	rendered := false
	for _, name := range pending {
		if render(ctx, name, views) {
			techs.MarkRendered(name)
			rendered = true
		}
	}
	return rendered
}
