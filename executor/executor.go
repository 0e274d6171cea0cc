// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package executor performs the deferred work of a command list once the
// scheduler reports it ready at a call-site.
//
// There is one executor per task kind. Each runs in three phases:
//
//  1. Under the session read lock, clear the call-site bits of its kind,
//     resolve and dequeue the ready entries.
//  2. With no session lock held, inject GPU work on the command list.
//  3. Record the outcome through the session's Mark methods, which take
//     the write lock themselves.
//
// Every executor leaves the queue mask consistent with the queues.
package executor

import (
	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/recording"
	"github.com/gogpu/shadertoggle/resolve"
	"github.com/gogpu/shadertoggle/schedule"
	"github.com/gogpu/shadertoggle/session"
)

// ConstantSource reads the current contents of a constant buffer range
// into host memory.
type ConstantSource interface {
	ReadConstants(cmd gpucore.CommandList, buf gpucore.BufferRange) ([]byte, error)
}

// Context bundles everything an executor needs for one command list.
// It is owned by the recording thread of Cmd.
type Context struct {
	Cmd     gpucore.CommandList
	State   *schedule.CommandListState
	Tracker *recording.Tracker

	Resolver *resolve.Resolver
	Adapter  backend.Adapter
	Session  *session.Session

	Runtime   gpucore.EffectRuntime
	Views     gpucore.ViewProvider
	Device    gpucore.Device
	Constants ConstantSource

	// Buffers holds the group buffers of groups preserving alpha. Nil
	// disables alpha preservation.
	Buffers *GroupBuffers

	// WaitIdle blocks until the GPU finished using engine-owned resources.
	// It is called before one is destroyed. Nil means no wait.
	WaitIdle func()
}

func (ctx *Context) waitIdle() {
	if ctx.WaitIdle != nil {
		ctx.WaitIdle()
	}
}

// Executor runs the ready tasks of one kind.
type Executor interface {
	Kind() schedule.Kind

	// Execute runs the tasks ready at site and reports whether GPU work
	// was injected into the command list.
	Execute(ctx *Context, site schedule.CallSite) bool
}

// All returns one executor per kind in dispatch order.
func All() []Executor {
	return []Executor{Effects{}, Bindings{}, Constants{}, Previews{}}
}

// queueFunc selects the queue of one kind from a stage.
type queueFunc[K comparable] func(st *schedule.StageQueues) *schedule.Queue[K]

func effectQueue(st *schedule.StageQueues) *schedule.Queue[string] { return &st.Effects }

func bindingQueue(st *schedule.StageQueues) *schedule.Queue[string] { return &st.Bindings }

func constantQueue(st *schedule.StageQueues) *schedule.Queue[*group.Group] { return &st.Constants }

func previewQueue(st *schedule.StageQueues) *schedule.Queue[*group.Group] { return &st.Previews }

// ready holds the keys dequeued per stage.
type ready[K comparable] [schedule.NumStages][]K

func (r *ready[K]) empty() bool {
	for _, keys := range r {
		if len(keys) > 0 {
			return false
		}
	}
	return true
}

// dequeue clears the bits of kind at site, then resolves and collects the
// entries ready at site on every stage that had work there. Clearing first
// keeps a stage with nothing left from firing again; QueueOrDequeue
// restores the bits of whatever stays queued.
//
// The caller holds the session's render read lock.
func dequeue[K comparable](ctx *Context, kind schedule.Kind, site schedule.CallSite, queue queueFunc[K]) ready[K] {
	var out ready[K]
	seg := ctx.State.Mask.Segment(site) & schedule.KindMask(kind)
	if seg == 0 {
		return out
	}
	ctx.State.Mask &^= seg.At(site)

	resolveFn := ctx.Resolver.Func(kind, ctx.Tracker)
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		if seg&schedule.Bit(schedule.CallDraw, kind, stage) == 0 {
			continue
		}
		q := queue(&ctx.State.Stages[stage])
		out[stage] = schedule.QueueOrDequeue(ctx.State, q, kind, stage, site, resolveFn, ctx.Session)
	}
	return out
}

// remove deletes done keys from their stage queues and resyncs the mask.
func remove[K comparable](ctx *Context, kind schedule.Kind, queue queueFunc[K], done ready[K]) {
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		if len(done[stage]) == 0 {
			continue
		}
		q := queue(&ctx.State.Stages[stage])
		for _, k := range done[stage] {
			q.Remove(k)
		}
		ctx.State.Sync(kind, stage)
	}
}
