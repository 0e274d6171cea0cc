package executor

import (
	"slices"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/schedule"
)

// Constants extracts constant buffer contents for groups with
// ExtractConstants set. The bytes are stored on the session.
type Constants struct{}

// Kind implements Executor.
func (Constants) Kind() schedule.Kind { return schedule.KindConstant }

// Execute implements Executor.
func (Constants) Execute(ctx *Context, site schedule.CallSite) bool {
	type read struct {
		group *group.Group
		buf   gpucore.BufferRange
	}

	ctx.Session.RLock()
	keys := dequeue(ctx, schedule.KindConstant, site, constantQueue)
	var reads []read
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		for _, g := range keys[stage] {
			e, ok := ctx.State.Stages[stage].Constants.Get(g)
			if !ok || ctx.Session.ConstantUpdated(g) {
				continue
			}
			if slices.ContainsFunc(reads, func(r read) bool { return r.group == g }) {
				continue
			}
			reads = append(reads, read{group: g, buf: e.Target.Buffer})
		}
	}
	ctx.Session.RUnlock()

	copied := false
	if ctx.Constants != nil {
		for _, r := range reads {
			data, err := ctx.Constants.ReadConstants(ctx.Cmd, r.buf)
			if err != nil {
				slogger().Warn("executor: constant copy failed", "group", r.group.Name, "buffer", r.buf.Buffer, "err", err)
				continue
			}
			ctx.Session.MarkConstantUpdated(r.group, data)
			copied = true
		}
	}

	remove(ctx, schedule.KindConstant, constantQueue, keys)
	return copied
}
