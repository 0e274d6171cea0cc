package recording

import (
	"errors"
	"fmt"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
)

// Apply re-issues the binds recorded in b on cmd. Only state that was
// tracked is re-bound. Every bind is attempted; failures are collected
// and returned joined, so one stale handle does not leave the rest of the
// state disturbed.
//
// Descriptor tables are re-bound in contiguous runs. A run ends at a
// parameter that was never bound or at a push-constant parameter of the
// layout, as reported by adapter. adapter may be nil, in which case runs
// are bound on cmd directly and only unbound parameters break them.
func (b *StateBlock) Apply(cmd gpucore.CommandList, adapter backend.Adapter) error {
	var errs []error
	fail := func(what string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("recording: restore %s: %w", what, err))
		}
	}

	if len(b.RenderTargets) != 0 || b.DepthStencil != gpucore.InvalidID {
		fail("render targets", cmd.BindRenderTargets(b.RenderTargets, b.DepthStencil))
	}
	for _, p := range b.Pipelines {
		fail("pipeline", cmd.BindPipeline(p.Stages, p.Pipeline))
	}

	var states []gpucore.DynamicState
	var values []uint32
	if b.hasTopology {
		states = append(states, gpucore.DynamicStatePrimitiveTopology)
		values = append(values, b.Topology)
	}
	if b.hasBlendConstant {
		states = append(states, gpucore.DynamicStateBlendConstant)
		values = append(values, b.BlendConstant)
	}
	if len(states) != 0 {
		fail("dynamic state", cmd.BindPipelineStates(states, values))
	}

	if len(b.Viewports) != 0 {
		fail("viewports", cmd.BindViewports(0, b.Viewports))
	}
	if len(b.Scissors) != 0 {
		fail("scissors", cmd.BindScissorRects(0, b.Scissors))
	}

	for _, stages := range b.stageKeys() {
		s := b.Stages[stages]
		for _, r := range tableRuns(s, adapter) {
			fail("descriptor tables", bindRun(cmd, adapter, stages, s.Layout, r))
		}
		for i, d := range s.Descriptors {
			if d == nil {
				continue
			}
			update := gpucore.TableUpdate{Descriptors: d}
			if len(d) != 0 {
				update.Type = d[0].Type
			}
			fail("push descriptors", cmd.PushDescriptors(stages, s.Layout, uint32(i), update))
		}
		for i, v := range s.Constants {
			if v == nil {
				continue
			}
			fail("push constants", cmd.PushConstants(stages, s.Layout, uint32(i), 0, v))
		}
	}

	return errors.Join(errs...)
}

// tableRun is a contiguous run of bound tables starting at parameter First.
type tableRun struct {
	First  uint32
	Tables []gpucore.DescriptorTableID
}

// tableRuns splits the bound tables of s into contiguous runs.
func tableRuns(s *StageState, adapter backend.Adapter) []tableRun {
	var runs []tableRun
	var cur *tableRun
	for i, t := range s.Tables {
		if t == gpucore.InvalidID || isPushConstants(adapter, s.Layout, uint32(i)) {
			cur = nil
			continue
		}
		if cur == nil {
			runs = append(runs, tableRun{First: uint32(i)})
			cur = &runs[len(runs)-1]
		}
		cur.Tables = append(cur.Tables, t)
	}
	return runs
}

func isPushConstants(adapter backend.Adapter, layout gpucore.PipelineLayoutID, i uint32) bool {
	if adapter == nil {
		return false
	}
	p, ok := adapter.LayoutParam(layout, i)
	return ok && p.Type == gpucore.LayoutParamPushConstants
}

func bindRun(cmd gpucore.CommandList, adapter backend.Adapter, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, r tableRun) error {
	if adapter == nil {
		return cmd.BindDescriptorTables(stages, layout, r.First, r.Tables)
	}
	return adapter.BindDescriptorTables(cmd, stages, layout, r.First, r.Tables)
}
