package recording

import (
	"slices"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/internal/descriptor"
)

// State is the recording state of a tracked command list.
type State uint8

const (
	// StateEmpty means nothing was tracked since the last reset.
	StateEmpty State = iota

	// StateRecording means at least one bind was tracked.
	StateRecording
)

// String returns the state name.
func (s State) String() string {
	if s == StateRecording {
		return "Recording"
	}
	return "Empty"
}

// TableReader reads layout parameters and bound table contents.
// *descriptor.Tracker satisfies it.
type TableReader interface {
	Param(layout gpucore.PipelineLayoutID, i uint32) (gpucore.LayoutParam, bool)
	TableContents(layout gpucore.PipelineLayoutID, param uint32, table gpucore.DescriptorTableID) []gpucore.Descriptor
}

// Tracker follows the binds of one command list and keeps a StateBlock
// current, so that the state can be captured before injected work and
// read by target resolution.
//
// A Tracker belongs to one command list and, like it, is not safe for
// concurrent use.
type Tracker struct {
	tables TableReader
	state  *StateBlock
	rec    State
}

// NewTracker creates a tracker reading table contents through tables,
// which may be nil when the host has no descriptor tables.
func NewTracker(tables TableReader) *Tracker {
	return &Tracker{tables: tables, state: NewStateBlock()}
}

// Reset drops all tracked state.
func (t *Tracker) Reset() {
	t.state.Clear()
	t.rec = StateEmpty
}

// Recording returns whether any bind was tracked since the last reset.
func (t *Tracker) Recording() State { return t.rec }

// State returns a deep copy of the tracked state.
func (t *Tracker) State() *StateBlock { return t.state.Clone() }

func (t *Tracker) touch() { t.rec = StateRecording }

// BindRenderTargets tracks a render target bind.
func (t *Tracker) BindRenderTargets(rtvs []gpucore.ViewID, dsv gpucore.ViewID) {
	t.touch()
	t.state.RenderTargets = slices.Clone(rtvs)
	t.state.DepthStencil = dsv
}

// BindPipeline tracks a pipeline bind. A layout different from the
// current one of an affected stage drops that stage's tables, pushed
// descriptors and constants. An invalid layout leaves them alone.
func (t *Tracker) BindPipeline(stages gpucore.PipelineStage, pipeline gpucore.PipelineID, layout gpucore.PipelineLayoutID) {
	t.touch()
	t.state.setPipeline(stages, pipeline)
	if layout == gpucore.InvalidID {
		return
	}
	shaders := stages.ShaderStages()
	for k, s := range t.state.Stages {
		if k&shaders != 0 && s.Layout != layout {
			s.reset(layout)
		}
	}
}

// BindPipelineStates tracks dynamic state. Only topology and blend
// constant are kept.
func (t *Tracker) BindPipelineStates(states []gpucore.DynamicState, values []uint32) {
	t.touch()
	for i, st := range states {
		if i >= len(values) {
			break
		}
		switch st {
		case gpucore.DynamicStatePrimitiveTopology:
			t.state.Topology = values[i]
			t.state.hasTopology = true
		case gpucore.DynamicStateBlendConstant:
			t.state.BlendConstant = values[i]
			t.state.hasBlendConstant = true
		}
	}
}

// BindViewports tracks viewports starting at first.
func (t *Tracker) BindViewports(first uint32, viewports []gpucore.Viewport) {
	t.touch()
	if len(viewports) == 0 {
		return
	}
	t.state.Viewports = grow(t.state.Viewports, first+uint32(len(viewports))-1)
	copy(t.state.Viewports[first:], viewports)
}

// BindScissorRects tracks scissor rectangles starting at first.
func (t *Tracker) BindScissorRects(first uint32, rects []gpucore.Rect) {
	t.touch()
	if len(rects) == 0 {
		return
	}
	t.state.Scissors = grow(t.state.Scissors, first+uint32(len(rects))-1)
	copy(t.state.Scissors[first:], rects)
}

// BindDescriptorTables tracks tables bound to consecutive parameters.
func (t *Tracker) BindDescriptorTables(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) {
	t.touch()
	s := t.state.setLayout(stages, layout)
	if len(tables) == 0 {
		return
	}
	s.Tables = grow(s.Tables, first+uint32(len(tables))-1)
	copy(s.Tables[first:], tables)
}

// PushDescriptors tracks descriptors pushed into a parameter.
func (t *Tracker) PushDescriptors(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param uint32, update gpucore.TableUpdate) {
	t.touch()
	s := t.state.setLayout(stages, layout)
	s.Descriptors = grow(s.Descriptors, param)
	start := update.Binding + update.ArrayOffset
	cur := s.Descriptors[param]
	if need := int(start) + len(update.Descriptors); len(cur) < need {
		cur = append(cur, make([]gpucore.Descriptor, need-len(cur))...)
	}
	copy(cur[start:], update.Descriptors)
	s.Descriptors[param] = cur
}

// PushConstants tracks constants pushed into a parameter.
func (t *Tracker) PushConstants(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param, first uint32, values []uint32) {
	t.touch()
	s := t.state.setLayout(stages, layout)
	s.Constants = grow(s.Constants, param)
	cur := s.Constants[param]
	if need := int(first) + len(values); len(cur) < need {
		cur = append(cur, make([]uint32, need-len(cur))...)
	}
	copy(cur[first:], values)
	s.Constants[param] = cur
}

// RenderTargets returns the bound render target views.
func (t *Tracker) RenderTargets() []gpucore.ViewID { return t.state.RenderTargets }

// Layout returns the current pipeline layout of a shader stage.
func (t *Tracker) Layout(stage gpucore.ShaderStage) gpucore.PipelineLayoutID {
	if s, ok := t.state.lookup(stage); ok {
		return s.Layout
	}
	return gpucore.InvalidID
}

// Descriptors returns the descriptor contents visible to a shader stage,
// indexed by layout parameter. Pushed descriptors take precedence over a
// table bound to the same parameter.
func (t *Tracker) Descriptors(stage gpucore.ShaderStage) [][]gpucore.Descriptor {
	s, ok := t.state.lookup(stage)
	if !ok {
		return nil
	}
	n := max(len(s.Tables), len(s.Descriptors))
	out := make([][]gpucore.Descriptor, n)
	for i := range n {
		if i < len(s.Descriptors) && s.Descriptors[i] != nil {
			out[i] = s.Descriptors[i]
			continue
		}
		if i < len(s.Tables) && t.tables != nil {
			out[i] = t.tables.TableContents(s.Layout, uint32(i), s.Tables[i])
		}
	}
	return out
}

// RootTableEntrySizeAt returns the descriptor count of parameter param
// for a stage, or 0 when layout is not the stage's current layout.
func (t *Tracker) RootTableEntrySizeAt(stage gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param uint32) uint32 {
	s, ok := t.state.lookup(stage)
	if !ok || s.Layout != layout || t.tables == nil {
		return 0
	}
	p, ok := t.tables.Param(layout, param)
	if !ok {
		return 0
	}
	return descriptor.TableSize(p)
}
