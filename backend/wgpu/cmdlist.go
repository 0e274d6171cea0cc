// Package wgpu provides a gpucore.CommandList over a gogpu/wgpu render
// pass, for hosts whose renderer is built on gogpu/wgpu.
//
// Handles are engine-side IDs mapped to hal objects. Pipelines and bind
// groups are registered once and referenced by ID afterwards:
//
//	cl := wgpu.NewPassCommandList()
//	pid := cl.RegisterPipeline(pipeline)
//	tid := cl.RegisterBindGroup(group)
//
//	cl.Begin(pass)
//	_ = cl.BindPipeline(gpucore.PipelineStageAllGraphics, pid)
//	_ = cl.BindDescriptorTables(gpucore.ShaderStageAllGraphics, 0, 0, []gpucore.DescriptorTableID{tid})
//	_ = cl.Draw(3, 1, 0, 0)
//	cl.End()
//
// Calls with no render pass equivalent return ErrUnsupported. State
// restores are best effort, so an unsupported bind only leaves that piece
// of state as it was.
package wgpu

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
)

var (
	// ErrUnsupported is returned for calls a render pass cannot express.
	ErrUnsupported = backend.ErrUnsupported

	// ErrNoPass is returned when a call needs a render pass and none is
	// active.
	ErrNoPass = errors.New("wgpu: no active render pass")

	// ErrUnknownHandle is returned for IDs that were never registered.
	ErrUnknownHandle = errors.New("wgpu: unknown handle")
)

// Pass is the part of a gogpu/wgpu render pass encoder the command list
// drives. hal.RenderPassEncoder satisfies it.
type Pass interface {
	SetPipeline(pipeline hal.RenderPipeline)
	SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32)
	SetViewport(x, y, width, height, minDepth, maxDepth float32)
	SetScissorRect(x, y, width, height uint32)
	SetBlendConstant(color *gputypes.Color)
	SetStencilReference(reference uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

var nextListID atomic.Uint64

// PassCommandList implements gpucore.CommandList on a render pass.
//
// Thread Safety: registration is safe for concurrent use. Recording calls
// follow the render pass and must come from one goroutine.
type PassCommandList struct {
	id gpucore.CommandListID

	mu        sync.RWMutex
	nextID    atomic.Uint64
	pipelines map[gpucore.PipelineID]hal.RenderPipeline
	groups    map[gpucore.DescriptorTableID]hal.BindGroup

	pass Pass
}

// NewPassCommandList creates a command list with no active pass.
func NewPassCommandList() *PassCommandList {
	c := &PassCommandList{
		id:        gpucore.CommandListID(nextListID.Add(1)),
		pipelines: make(map[gpucore.PipelineID]hal.RenderPipeline),
		groups:    make(map[gpucore.DescriptorTableID]hal.BindGroup),
	}
	// Start ID generation at 1 (0 is invalid)
	c.nextID.Store(1)
	return c
}

func (c *PassCommandList) newID() uint64 {
	return c.nextID.Add(1) - 1
}

// RegisterPipeline maps a hal pipeline to a new pipeline ID.
func (c *PassCommandList) RegisterPipeline(p hal.RenderPipeline) gpucore.PipelineID {
	id := gpucore.PipelineID(c.newID())
	c.mu.Lock()
	c.pipelines[id] = p
	c.mu.Unlock()
	return id
}

// UnregisterPipeline forgets a pipeline ID.
func (c *PassCommandList) UnregisterPipeline(id gpucore.PipelineID) {
	c.mu.Lock()
	delete(c.pipelines, id)
	c.mu.Unlock()
}

// RegisterBindGroup maps a hal bind group to a new descriptor table ID.
func (c *PassCommandList) RegisterBindGroup(g hal.BindGroup) gpucore.DescriptorTableID {
	id := gpucore.DescriptorTableID(c.newID())
	c.mu.Lock()
	c.groups[id] = g
	c.mu.Unlock()
	return id
}

// UnregisterBindGroup forgets a descriptor table ID.
func (c *PassCommandList) UnregisterBindGroup(id gpucore.DescriptorTableID) {
	c.mu.Lock()
	delete(c.groups, id)
	c.mu.Unlock()
}

// Begin makes pass the target of recording calls.
func (c *PassCommandList) Begin(pass Pass) { c.pass = pass }

// End detaches the active pass. It does not end the pass itself.
func (c *PassCommandList) End() { c.pass = nil }

// ID implements gpucore.CommandList.
func (c *PassCommandList) ID() gpucore.CommandListID { return c.id }

// BindRenderTargets implements gpucore.CommandList. Attachments are fixed
// for the lifetime of a render pass.
func (c *PassCommandList) BindRenderTargets([]gpucore.ViewID, gpucore.ViewID) error {
	return fmt.Errorf("wgpu: bind render targets: %w", ErrUnsupported)
}

// BindPipeline implements gpucore.CommandList.
func (c *PassCommandList) BindPipeline(stages gpucore.PipelineStage, pipeline gpucore.PipelineID) error {
	if c.pass == nil {
		return ErrNoPass
	}
	if !stages.Has(gpucore.PipelineStageAllGraphics) {
		return fmt.Errorf("wgpu: bind pipeline for stages %#x: %w", uint32(stages), ErrUnsupported)
	}
	c.mu.RLock()
	p, ok := c.pipelines[pipeline]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("wgpu: pipeline %d: %w", pipeline, ErrUnknownHandle)
	}
	c.pass.SetPipeline(p)
	return nil
}

// BindPipelineStates implements gpucore.CommandList. The blend constant is
// unpacked from RGBA8 and stencil references are forwarded; topology is
// baked into wgpu pipelines and reported as unsupported.
func (c *PassCommandList) BindPipelineStates(states []gpucore.DynamicState, values []uint32) error {
	if c.pass == nil {
		return ErrNoPass
	}
	var errs []error
	for i, s := range states {
		if i >= len(values) {
			break
		}
		switch s {
		case gpucore.DynamicStateBlendConstant:
			color := unpackRGBA8(values[i])
			c.pass.SetBlendConstant(&color)
		case gpucore.DynamicStateFrontStencilReference, gpucore.DynamicStateBackStencilReference:
			c.pass.SetStencilReference(values[i])
		default:
			errs = append(errs, fmt.Errorf("wgpu: dynamic state %d: %w", s, ErrUnsupported))
		}
	}
	return errors.Join(errs...)
}

// unpackRGBA8 converts a packed 0xAABBGGRR value into a color.
func unpackRGBA8(v uint32) gputypes.Color {
	return gputypes.Color{
		R: float64(v&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v>>16&0xff) / 255,
		A: float64(v>>24&0xff) / 255,
	}
}

// BindViewports implements gpucore.CommandList. A render pass has one
// viewport, so only index 0 is honored.
func (c *PassCommandList) BindViewports(first uint32, viewports []gpucore.Viewport) error {
	if c.pass == nil {
		return ErrNoPass
	}
	if first != 0 || len(viewports) == 0 {
		return fmt.Errorf("wgpu: viewport %d: %w", first, ErrUnsupported)
	}
	v := viewports[0]
	c.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
	return nil
}

// BindScissorRects implements gpucore.CommandList. Only index 0 is honored.
func (c *PassCommandList) BindScissorRects(first uint32, rects []gpucore.Rect) error {
	if c.pass == nil {
		return ErrNoPass
	}
	if first != 0 || len(rects) == 0 {
		return fmt.Errorf("wgpu: scissor %d: %w", first, ErrUnsupported)
	}
	r := rects[0]
	if r.Right < r.Left || r.Bottom < r.Top || r.Left < 0 || r.Top < 0 {
		return fmt.Errorf("wgpu: scissor %+v: %w", r, ErrUnsupported)
	}
	c.pass.SetScissorRect(uint32(r.Left), uint32(r.Top), uint32(r.Right-r.Left), uint32(r.Bottom-r.Top))
	return nil
}

// BindDescriptorTables implements gpucore.CommandList. Each table is a
// bind group set at its parameter index. Null tables are skipped.
func (c *PassCommandList) BindDescriptorTables(_ gpucore.ShaderStage, _ gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) error {
	if c.pass == nil {
		return ErrNoPass
	}
	c.mu.RLock()
	resolved := make([]hal.BindGroup, len(tables))
	var missing []gpucore.DescriptorTableID
	for i, t := range tables {
		if t == gpucore.InvalidID {
			continue
		}
		g, ok := c.groups[t]
		if !ok {
			missing = append(missing, t)
			continue
		}
		resolved[i] = g
	}
	c.mu.RUnlock()

	for i, g := range resolved {
		if g != nil {
			c.pass.SetBindGroup(first+uint32(i), g, nil)
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("wgpu: bind groups %v: %w", slices.Compact(missing), ErrUnknownHandle)
	}
	return nil
}

// PushDescriptors implements gpucore.CommandList.
func (c *PassCommandList) PushDescriptors(gpucore.ShaderStage, gpucore.PipelineLayoutID, uint32, gpucore.TableUpdate) error {
	return fmt.Errorf("wgpu: push descriptors: %w", ErrUnsupported)
}

// PushConstants implements gpucore.CommandList.
func (c *PassCommandList) PushConstants(gpucore.ShaderStage, gpucore.PipelineLayoutID, uint32, uint32, []uint32) error {
	return fmt.Errorf("wgpu: push constants: %w", ErrUnsupported)
}

// Draw implements gpucore.CommandList.
func (c *PassCommandList) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if c.pass == nil {
		return ErrNoPass
	}
	c.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

// CopyResource implements gpucore.CommandList. Copies are encoder-level
// operations and cannot be recorded inside a pass.
func (c *PassCommandList) CopyResource(gpucore.ResourceID, gpucore.ResourceID) error {
	return fmt.Errorf("wgpu: copy resource: %w", ErrUnsupported)
}

// ClearRenderTargetView implements gpucore.CommandList. Clears are load
// operations of the pass.
func (c *PassCommandList) ClearRenderTargetView(view gpucore.ViewID, _ gputypes.Color) error {
	slogger().Debug("wgpu: clear inside pass ignored", "view", view)
	return fmt.Errorf("wgpu: clear view %d: %w", view, ErrUnsupported)
}

var _ gpucore.CommandList = (*PassCommandList)(nil)
