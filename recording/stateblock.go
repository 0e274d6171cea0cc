package recording

import (
	"slices"

	"github.com/gogpu/shadertoggle/gpucore"
)

// BoundPipeline is one pipeline bind.
type BoundPipeline struct {
	Stages   gpucore.PipelineStage
	Pipeline gpucore.PipelineID
}

// StageState is the layout-scoped binding state of one shader stage
// combination. Slices are indexed by layout parameter.
type StageState struct {
	Layout gpucore.PipelineLayoutID

	// Tables holds bound descriptor tables. A zero entry was never bound.
	Tables []gpucore.DescriptorTableID

	// Descriptors holds pushed descriptors.
	Descriptors [][]gpucore.Descriptor

	// Constants holds pushed constants.
	Constants [][]uint32
}

func (s *StageState) reset(layout gpucore.PipelineLayoutID) {
	s.Layout = layout
	s.Tables = s.Tables[:0]
	s.Descriptors = s.Descriptors[:0]
	s.Constants = s.Constants[:0]
}

func (s *StageState) clone() *StageState {
	c := &StageState{
		Layout:      s.Layout,
		Tables:      slices.Clone(s.Tables),
		Descriptors: make([][]gpucore.Descriptor, len(s.Descriptors)),
		Constants:   make([][]uint32, len(s.Constants)),
	}
	for i, d := range s.Descriptors {
		c.Descriptors[i] = slices.Clone(d)
	}
	for i, v := range s.Constants {
		c.Constants[i] = slices.Clone(v)
	}
	return c
}

func (s *StageState) empty() bool {
	return len(s.Tables) == 0 && len(s.Descriptors) == 0 && len(s.Constants) == 0
}

// grow extends a parameter-indexed slice so that index i is valid.
func grow[T any](s []T, i uint32) []T {
	if need := int(i) + 1; len(s) < need {
		s = append(s, make([]T, need-len(s))...)
	}
	return s
}

// StateBlock is a snapshot of the binding state of one command list:
// everything injected work could disturb and Apply must put back.
type StateBlock struct {
	RenderTargets []gpucore.ViewID
	DepthStencil  gpucore.ViewID

	// Pipelines in bind order, one entry per distinct stage mask.
	Pipelines []BoundPipeline

	Topology         uint32
	BlendConstant    uint32
	hasTopology      bool
	hasBlendConstant bool

	Viewports []gpucore.Viewport
	Scissors  []gpucore.Rect

	// Stages is keyed by the stage mask the host bound with.
	Stages map[gpucore.ShaderStage]*StageState
}

// NewStateBlock returns an empty state block.
func NewStateBlock() *StateBlock {
	return &StateBlock{Stages: make(map[gpucore.ShaderStage]*StageState)}
}

// Clone returns a deep copy of b.
func (b *StateBlock) Clone() *StateBlock {
	c := &StateBlock{
		RenderTargets:    slices.Clone(b.RenderTargets),
		DepthStencil:     b.DepthStencil,
		Pipelines:        slices.Clone(b.Pipelines),
		Topology:         b.Topology,
		BlendConstant:    b.BlendConstant,
		hasTopology:      b.hasTopology,
		hasBlendConstant: b.hasBlendConstant,
		Viewports:        slices.Clone(b.Viewports),
		Scissors:         slices.Clone(b.Scissors),
		Stages:           make(map[gpucore.ShaderStage]*StageState, len(b.Stages)),
	}
	for k, s := range b.Stages {
		c.Stages[k] = s.clone()
	}
	return c
}

// Clear resets b to the empty state.
func (b *StateBlock) Clear() {
	*b = StateBlock{Stages: make(map[gpucore.ShaderStage]*StageState)}
}

// IsEmpty reports whether nothing has been tracked.
func (b *StateBlock) IsEmpty() bool {
	if len(b.RenderTargets) != 0 || b.DepthStencil != gpucore.InvalidID ||
		len(b.Pipelines) != 0 || b.hasTopology || b.hasBlendConstant ||
		len(b.Viewports) != 0 || len(b.Scissors) != 0 {
		return false
	}
	for _, s := range b.Stages {
		if !s.empty() {
			return false
		}
	}
	return true
}

// stage returns the state for the exact stage mask, creating it.
func (b *StateBlock) stage(stages gpucore.ShaderStage) *StageState {
	s, ok := b.Stages[stages]
	if !ok {
		s = &StageState{}
		b.Stages[stages] = s
	}
	return s
}

// lookup returns the state covering a single shader stage. An exact key
// wins over a combined mask containing the stage.
func (b *StateBlock) lookup(stage gpucore.ShaderStage) (*StageState, bool) {
	if s, ok := b.Stages[stage]; ok {
		return s, true
	}
	for _, k := range b.stageKeys() {
		if k.Has(stage) {
			return b.Stages[k], true
		}
	}
	return nil, false
}

// stageKeys returns the stage masks in ascending order.
func (b *StateBlock) stageKeys() []gpucore.ShaderStage {
	keys := make([]gpucore.ShaderStage, 0, len(b.Stages))
	for k := range b.Stages {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// setPipeline records a pipeline bind, replacing an earlier bind of the
// same stage mask in place.
func (b *StateBlock) setPipeline(stages gpucore.PipelineStage, pipeline gpucore.PipelineID) {
	for i := range b.Pipelines {
		if b.Pipelines[i].Stages == stages {
			b.Pipelines[i].Pipeline = pipeline
			return
		}
	}
	b.Pipelines = append(b.Pipelines, BoundPipeline{Stages: stages, Pipeline: pipeline})
}

// Pipeline returns the pipeline last bound for exactly stages.
func (b *StateBlock) Pipeline(stages gpucore.PipelineStage) (gpucore.PipelineID, bool) {
	for _, p := range b.Pipelines {
		if p.Stages == stages {
			return p.Pipeline, true
		}
	}
	return gpucore.InvalidID, false
}

// setLayout switches stages to layout, dropping layout-scoped state on a
// change.
func (b *StateBlock) setLayout(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID) *StageState {
	s := b.stage(stages)
	if s.Layout != layout {
		s.reset(layout)
	}
	return s
}
