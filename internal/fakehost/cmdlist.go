package fakehost

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadertoggle/gpucore"
)

// Call records one outbound call on a command list.
type Call struct {
	Op    string
	First uint32
	Count int
}

type paramKey struct {
	Stages gpucore.ShaderStage
	Param  uint32
}

// Bound is the observable binding state of a fake command list.
type Bound struct {
	RTVs      []gpucore.ViewID
	DSV       gpucore.ViewID
	Pipelines map[gpucore.PipelineStage]gpucore.PipelineID
	Dynamic   map[gpucore.DynamicState]uint32
	Viewports []gpucore.Viewport
	Scissors  []gpucore.Rect
	Layouts   map[gpucore.ShaderStage]gpucore.PipelineLayoutID
	Tables    map[paramKey]gpucore.DescriptorTableID
	Pushed    map[paramKey][]gpucore.Descriptor
	Constants map[paramKey][]uint32
}

func newBound() Bound {
	return Bound{
		Pipelines: make(map[gpucore.PipelineStage]gpucore.PipelineID),
		Dynamic:   make(map[gpucore.DynamicState]uint32),
		Layouts:   make(map[gpucore.ShaderStage]gpucore.PipelineLayoutID),
		Tables:    make(map[paramKey]gpucore.DescriptorTableID),
		Pushed:    make(map[paramKey][]gpucore.Descriptor),
		Constants: make(map[paramKey][]uint32),
	}
}

func (b Bound) clone() Bound {
	c := Bound{
		RTVs:      slices.Clone(b.RTVs),
		DSV:       b.DSV,
		Pipelines: maps.Clone(b.Pipelines),
		Dynamic:   maps.Clone(b.Dynamic),
		Viewports: slices.Clone(b.Viewports),
		Scissors:  slices.Clone(b.Scissors),
		Layouts:   maps.Clone(b.Layouts),
		Tables:    maps.Clone(b.Tables),
		Pushed:    make(map[paramKey][]gpucore.Descriptor, len(b.Pushed)),
		Constants: make(map[paramKey][]uint32, len(b.Constants)),
	}
	for k, v := range b.Pushed {
		c.Pushed[k] = slices.Clone(v)
	}
	for k, v := range b.Constants {
		c.Constants[k] = slices.Clone(v)
	}
	return c
}

// Equal reports whether two observable states match.
func (b Bound) Equal(o Bound) bool {
	if !slices.Equal(b.RTVs, o.RTVs) || b.DSV != o.DSV ||
		!maps.Equal(b.Pipelines, o.Pipelines) || !maps.Equal(b.Dynamic, o.Dynamic) ||
		!slices.Equal(b.Viewports, o.Viewports) || !slices.Equal(b.Scissors, o.Scissors) ||
		!maps.Equal(b.Layouts, o.Layouts) || !maps.Equal(b.Tables, o.Tables) {
		return false
	}
	if !maps.EqualFunc(b.Pushed, o.Pushed, slices.Equal[[]gpucore.Descriptor]) {
		return false
	}
	return maps.EqualFunc(b.Constants, o.Constants, slices.Equal[[]uint32])
}

// CommandList is a fake recording stream that applies binds to an
// observable state and records every call.
//
// A CommandList is used by one goroutine at a time, like a real one.
type CommandList struct {
	id    gpucore.CommandListID
	host  *Host
	bound Bound
	calls []Call

	// FailOps makes calls with these op names fail.
	FailOps map[string]bool
}

// NewCommandList creates a command list on h.
func (h *Host) NewCommandList() *CommandList {
	h.mu.Lock()
	id := gpucore.CommandListID(h.id())
	h.mu.Unlock()
	return &CommandList{id: id, host: h, bound: newBound()}
}

// Bound returns a copy of the observable state.
func (c *CommandList) Bound() Bound { return c.bound.clone() }

// Calls returns the recorded calls.
func (c *CommandList) Calls() []Call { return slices.Clone(c.calls) }

// CountOp returns how many calls of op were recorded.
func (c *CommandList) CountOp(op string) int {
	n := 0
	for _, call := range c.calls {
		if call.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (c *CommandList) ResetCalls() { c.calls = nil }

// Clear drops the observable state, as a fresh recording would.
func (c *CommandList) Clear() {
	c.bound = newBound()
	c.calls = nil
}

func (c *CommandList) record(op string, first uint32, count int) error {
	c.calls = append(c.calls, Call{Op: op, First: first, Count: count})
	if c.FailOps[op] {
		return fmt.Errorf("fakehost: %s: forced failure", op)
	}
	return nil
}

// ID implements gpucore.CommandList.
func (c *CommandList) ID() gpucore.CommandListID { return c.id }

// BindRenderTargets implements gpucore.CommandList.
func (c *CommandList) BindRenderTargets(rtvs []gpucore.ViewID, dsv gpucore.ViewID) error {
	if err := c.record("BindRenderTargets", 0, len(rtvs)); err != nil {
		return err
	}
	for _, v := range rtvs {
		if v != gpucore.InvalidID && !c.host.viewAlive(v) {
			return fmt.Errorf("fakehost: bind render target %d: %w", v, ErrInvalidHandle)
		}
	}
	c.bound.RTVs = slices.Clone(rtvs)
	c.bound.DSV = dsv
	return nil
}

// BindPipeline implements gpucore.CommandList.
func (c *CommandList) BindPipeline(stages gpucore.PipelineStage, pipeline gpucore.PipelineID) error {
	if err := c.record("BindPipeline", uint32(stages), 1); err != nil {
		return err
	}
	if pipeline != gpucore.InvalidID && !c.host.pipelineAlive(pipeline) {
		return fmt.Errorf("fakehost: bind pipeline %d: %w", pipeline, ErrInvalidHandle)
	}
	c.bound.Pipelines[stages] = pipeline
	return nil
}

// BindPipelineStates implements gpucore.CommandList.
func (c *CommandList) BindPipelineStates(states []gpucore.DynamicState, values []uint32) error {
	if err := c.record("BindPipelineStates", 0, len(states)); err != nil {
		return err
	}
	for i, s := range states {
		c.bound.Dynamic[s] = values[i]
	}
	return nil
}

// BindViewports implements gpucore.CommandList.
func (c *CommandList) BindViewports(first uint32, viewports []gpucore.Viewport) error {
	if err := c.record("BindViewports", first, len(viewports)); err != nil {
		return err
	}
	if need := int(first) + len(viewports); len(c.bound.Viewports) < need {
		c.bound.Viewports = append(c.bound.Viewports, make([]gpucore.Viewport, need-len(c.bound.Viewports))...)
	}
	copy(c.bound.Viewports[first:], viewports)
	return nil
}

// BindScissorRects implements gpucore.CommandList.
func (c *CommandList) BindScissorRects(first uint32, rects []gpucore.Rect) error {
	if err := c.record("BindScissorRects", first, len(rects)); err != nil {
		return err
	}
	if need := int(first) + len(rects); len(c.bound.Scissors) < need {
		c.bound.Scissors = append(c.bound.Scissors, make([]gpucore.Rect, need-len(c.bound.Scissors))...)
	}
	copy(c.bound.Scissors[first:], rects)
	return nil
}

// BindDescriptorTables implements gpucore.CommandList.
func (c *CommandList) BindDescriptorTables(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) error {
	if err := c.record("BindDescriptorTables", first, len(tables)); err != nil {
		return err
	}
	c.bound.Layouts[stages] = layout
	for i, t := range tables {
		c.bound.Tables[paramKey{stages, first + uint32(i)}] = t
	}
	return nil
}

// PushDescriptors implements gpucore.CommandList.
func (c *CommandList) PushDescriptors(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param uint32, update gpucore.TableUpdate) error {
	if err := c.record("PushDescriptors", param, len(update.Descriptors)); err != nil {
		return err
	}
	c.bound.Layouts[stages] = layout
	key := paramKey{stages, param}
	cur := c.bound.Pushed[key]
	need := int(update.Binding+update.ArrayOffset) + len(update.Descriptors)
	if len(cur) < need {
		cur = append(cur, make([]gpucore.Descriptor, need-len(cur))...)
	}
	copy(cur[update.Binding+update.ArrayOffset:], update.Descriptors)
	c.bound.Pushed[key] = cur
	return nil
}

// PushConstants implements gpucore.CommandList.
func (c *CommandList) PushConstants(stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param, first uint32, values []uint32) error {
	if err := c.record("PushConstants", first, len(values)); err != nil {
		return err
	}
	c.bound.Layouts[stages] = layout
	key := paramKey{stages, param}
	cur := c.bound.Constants[key]
	if need := int(first) + len(values); len(cur) < need {
		cur = append(cur, make([]uint32, need-len(cur))...)
	}
	copy(cur[first:], values)
	c.bound.Constants[key] = cur
	return nil
}

// Draw implements gpucore.CommandList.
func (c *CommandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	return c.record("Draw", firstVertex, int(vertexCount*instanceCount))
}

// CopyResource implements gpucore.CommandList.
func (c *CommandList) CopyResource(src, dst gpucore.ResourceID) error {
	if err := c.record("CopyResource", 0, 1); err != nil {
		return err
	}
	return c.host.copyResource(src, dst)
}

// ClearRenderTargetView implements gpucore.CommandList.
func (c *CommandList) ClearRenderTargetView(view gpucore.ViewID, _ gputypes.Color) error {
	if err := c.record("ClearRenderTargetView", 0, 1); err != nil {
		return err
	}
	if !c.host.viewAlive(view) {
		return fmt.Errorf("fakehost: clear view %d: %w", view, ErrInvalidHandle)
	}
	return nil
}

// LegacyCommandList adds a device state block primitive to CommandList.
type LegacyCommandList struct {
	*CommandList

	blocks map[gpucore.StateBlockID]Bound
	next   gpucore.StateBlockID
}

// NewLegacyCommandList creates a command list supporting state blocks.
func (h *Host) NewLegacyCommandList() *LegacyCommandList {
	return &LegacyCommandList{
		CommandList: h.NewCommandList(),
		blocks:      make(map[gpucore.StateBlockID]Bound),
		next:        1,
	}
}

// CaptureStateBlock implements gpucore.StateBlockCommandList.
func (c *LegacyCommandList) CaptureStateBlock() (gpucore.StateBlockID, error) {
	if err := c.record("CaptureStateBlock", 0, 1); err != nil {
		return gpucore.InvalidID, err
	}
	id := c.next
	c.next++
	c.blocks[id] = c.bound.clone()
	return id, nil
}

// ApplyStateBlock implements gpucore.StateBlockCommandList.
func (c *LegacyCommandList) ApplyStateBlock(block gpucore.StateBlockID) error {
	if err := c.record("ApplyStateBlock", 0, 1); err != nil {
		return err
	}
	b, ok := c.blocks[block]
	if !ok {
		return fmt.Errorf("fakehost: apply state block %d: %w", block, ErrInvalidHandle)
	}
	c.bound = b.clone()
	return nil
}

// DestroyStateBlock implements gpucore.StateBlockCommandList.
func (c *LegacyCommandList) DestroyStateBlock(block gpucore.StateBlockID) {
	delete(c.blocks, block)
}

// Blocks returns the number of live state blocks.
func (c *LegacyCommandList) Blocks() int { return len(c.blocks) }

var (
	_ gpucore.CommandList           = (*CommandList)(nil)
	_ gpucore.StateBlockCommandList = (*LegacyCommandList)(nil)
	_ gpucore.Device                = (*Host)(nil)
	_ gpucore.ViewProvider          = (*Host)(nil)
	_ gpucore.EffectRuntime         = (*Host)(nil)
)
