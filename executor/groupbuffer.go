// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package executor

import (
	"sync"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
)

// groupBuffer is the engine-owned copy of a group's target taken before
// its effects render.
type groupBuffer struct {
	res  gpucore.ResourceID
	desc gpucore.ResourceDesc

	// want is the shape of the last target; recreate asks the present
	// hook to replace res with a texture of that shape.
	want     gpucore.ResourceDesc
	recreate bool
}

// GroupBuffers owns the per-group textures of groups with PreserveAlpha.
// Effects save the target into the buffer before rendering, and render
// [techniques.RestoreAlpha] from it afterwards.
//
// Buffers are created and destroyed only by [GroupBuffers.Check] and
// [GroupBuffers.Remove]; recording threads only ask for recreation.
//
// GroupBuffers is safe for concurrent use.
type GroupBuffers struct {
	mu      sync.Mutex
	buffers map[*group.Group]*groupBuffer
}

// NewGroupBuffers creates an empty buffer set.
func NewGroupBuffers() *GroupBuffers {
	return &GroupBuffers{buffers: make(map[*group.Group]*groupBuffer)}
}

// Acquire returns the buffer of g when it can hold a copy of a target
// described by desc. Otherwise it records desc and asks for the buffer to
// be recreated at the next Check.
func (b *GroupBuffers) Acquire(g *group.Group, desc gpucore.ResourceDesc) (gpucore.ResourceID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[g]
	if !ok {
		buf = &groupBuffer{}
		b.buffers[g] = buf
	}
	if buf.res != gpucore.InvalidID && buf.desc.SameShape(desc) {
		return buf.res, true
	}
	buf.want = desc
	buf.recreate = true
	return gpucore.InvalidID, false
}

// Resource returns the current buffer of g.
func (b *GroupBuffers) Resource(g *group.Group) (gpucore.ResourceID, gpucore.ResourceDesc, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[g]
	if !ok || buf.res == gpucore.InvalidID {
		return gpucore.InvalidID, gpucore.ResourceDesc{}, false
	}
	return buf.res, buf.desc, true
}

// Len returns the number of groups holding a buffer.
func (b *GroupBuffers) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, buf := range b.buffers {
		if buf.res != gpucore.InvalidID {
			n++
		}
	}
	return n
}

// bufferWork is one buffer change Check applies outside the lock.
type bufferWork struct {
	group *group.Group
	old   gpucore.ResourceID
	desc  gpucore.ResourceDesc
}

// Check disposes the buffers of groups that were removed, deactivated or
// stopped preserving alpha, and recreates the buffers whose target shape
// changed. Hosts call it once per frame from the present hook. It returns
// the number of buffers created and destroyed.
func (b *GroupBuffers) Check(ctx *Context) (created, destroyed int) {
	keep := make(map[*group.Group]bool)
	b.mu.Lock()
	groups := make([]*group.Group, 0, len(b.buffers))
	for g := range b.buffers {
		groups = append(groups, g)
	}
	b.mu.Unlock()

	ctx.Session.RLock()
	for _, g := range groups {
		keep[g] = ctx.Session.IsLive(g) && g.PreserveAlpha
	}
	ctx.Session.RUnlock()

	var work []bufferWork
	b.mu.Lock()
	for g, buf := range b.buffers {
		switch {
		case !keep[g]:
			work = append(work, bufferWork{group: g, old: buf.res})
			delete(b.buffers, g)
		case buf.recreate:
			work = append(work, bufferWork{group: g, old: buf.res, desc: buf.want})
			buf.res = gpucore.InvalidID
			buf.desc = gpucore.ResourceDesc{}
			buf.recreate = false
		}
	}
	b.mu.Unlock()
	if len(work) == 0 {
		return 0, 0
	}

	waited := false
	for _, w := range work {
		if w.old != gpucore.InvalidID {
			if !waited {
				ctx.waitIdle()
				waited = true
			}
			ctx.Views.Release(w.old)
			ctx.Device.DestroyResource(w.old)
			destroyed++
		}
		if w.desc.Size.Width == 0 || w.desc.Size.Height == 0 {
			continue
		}
		res, err := ctx.Device.CreateTexture(w.desc)
		if err != nil {
			slogger().Warn("executor: group buffer creation failed", "group", w.group.ID, "err", err)
			continue
		}
		b.mu.Lock()
		if buf, ok := b.buffers[w.group]; ok && buf.res == gpucore.InvalidID {
			buf.res, buf.desc = res, w.desc
			res = gpucore.InvalidID
		}
		b.mu.Unlock()
		if res != gpucore.InvalidID {
			// The group was removed meanwhile.
			ctx.Device.DestroyResource(res)
			continue
		}
		created++
	}
	return created, destroyed
}

// Remove destroys the buffer of g. It reports whether one existed.
func (b *GroupBuffers) Remove(ctx *Context, g *group.Group) bool {
	b.mu.Lock()
	buf, ok := b.buffers[g]
	delete(b.buffers, g)
	b.mu.Unlock()
	if !ok || buf.res == gpucore.InvalidID {
		return false
	}
	ctx.waitIdle()
	ctx.Views.Release(buf.res)
	ctx.Device.DestroyResource(buf.res)
	return true
}

// saveAlpha copies the effect target res of g into its group buffer and
// returns the shader views of the copy. A zero pair means the alpha is not
// preserved this time; the buffer is then (re)created at the next Check.
func saveAlpha(ctx *Context, g *group.Group, res gpucore.ResourceID) gpucore.ViewPair {
	if ctx.Buffers == nil {
		return gpucore.ViewPair{}
	}
	desc, ok := ctx.Device.ResourceDesc(res)
	if !ok {
		return gpucore.ViewPair{}
	}
	buf, ok := ctx.Buffers.Acquire(g, desc)
	if !ok {
		return gpucore.ViewPair{}
	}
	if err := ctx.Cmd.CopyResource(res, buf); err != nil {
		slogger().Warn("executor: group buffer copy failed", "group", g.ID, "err", err)
		return gpucore.ViewPair{}
	}
	srv, err := ctx.Views.ShaderResourceViews(buf)
	if err != nil {
		slogger().Warn("executor: no group buffer views", "group", g.ID, "err", err)
		return gpucore.ViewPair{}
	}
	return srv
}
