package wgpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/shadertoggle/gpucore"
)

// stubPipeline and stubGroup satisfy the hal interfaces; their methods
// are never called.
type stubPipeline struct{ hal.RenderPipeline }

type stubGroup struct {
	hal.BindGroup
	name string
}

type recordingPass struct {
	pipelines []hal.RenderPipeline
	groups    map[uint32]hal.BindGroup
	viewports int
	scissors  [][4]uint32
	blend     *gputypes.Color
	stencil   uint32
	draws     int
}

func newRecordingPass() *recordingPass {
	return &recordingPass{groups: make(map[uint32]hal.BindGroup)}
}

func (p *recordingPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.pipelines = append(p.pipelines, pipeline)
}

func (p *recordingPass) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	p.groups[index] = group
}

func (p *recordingPass) SetViewport(_, _, _, _, _, _ float32) { p.viewports++ }

func (p *recordingPass) SetScissorRect(x, y, w, h uint32) {
	p.scissors = append(p.scissors, [4]uint32{x, y, w, h})
}

func (p *recordingPass) SetBlendConstant(color *gputypes.Color) { p.blend = color }

func (p *recordingPass) SetStencilReference(reference uint32) { p.stencil = reference }

func (p *recordingPass) Draw(_, _, _, _ uint32) { p.draws++ }

func TestNoPass(t *testing.T) {
	c := NewPassCommandList()
	if err := c.Draw(3, 1, 0, 0); !errors.Is(err, ErrNoPass) {
		t.Errorf("Draw error = %v, want ErrNoPass", err)
	}
	if err := c.BindPipeline(gpucore.PipelineStageAllGraphics, 1); !errors.Is(err, ErrNoPass) {
		t.Errorf("BindPipeline error = %v, want ErrNoPass", err)
	}
}

func TestUnsupported(t *testing.T) {
	c := NewPassCommandList()
	c.Begin(newRecordingPass())

	calls := map[string]error{
		"BindRenderTargets": c.BindRenderTargets(nil, 0),
		"PushDescriptors":   c.PushDescriptors(gpucore.ShaderStagePixel, 1, 0, gpucore.TableUpdate{}),
		"PushConstants":     c.PushConstants(gpucore.ShaderStagePixel, 1, 0, 0, []uint32{1}),
		"CopyResource":      c.CopyResource(1, 2),
		"Clear":             c.ClearRenderTargetView(1, gputypes.Color{}),
		"ComputePipeline":   c.BindPipeline(gpucore.PipelineStageComputeShader, 1),
		"Topology":          c.BindPipelineStates([]gpucore.DynamicState{gpucore.DynamicStatePrimitiveTopology}, []uint32{4}),
		"SecondViewport":    c.BindViewports(1, []gpucore.Viewport{{}}),
	}
	for name, err := range calls {
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s error = %v, want ErrUnsupported", name, err)
		}
	}
}

func TestRecordOnPass(t *testing.T) {
	c := NewPassCommandList()
	pass := newRecordingPass()
	c.Begin(pass)

	pipe := stubPipeline{}
	pid := c.RegisterPipeline(pipe)
	g0, g1 := stubGroup{name: "g0"}, stubGroup{name: "g1"}
	t0, t1 := c.RegisterBindGroup(g0), c.RegisterBindGroup(g1)
	if uint64(pid) == uint64(t0) || t0 == gpucore.InvalidID {
		t.Fatalf("IDs not unique: pipeline %d, table %d", pid, t0)
	}

	if err := c.BindPipeline(gpucore.PipelineStageAllGraphics, pid); err != nil {
		t.Fatal(err)
	}
	if err := c.BindDescriptorTables(gpucore.ShaderStageAllGraphics, 0, 1, []gpucore.DescriptorTableID{t0, gpucore.InvalidID, t1}); err != nil {
		t.Fatal(err)
	}
	if err := c.BindViewports(0, []gpucore.Viewport{{Width: 10, Height: 10}}); err != nil {
		t.Fatal(err)
	}
	if err := c.BindScissorRects(0, []gpucore.Rect{{Left: 2, Top: 3, Right: 12, Bottom: 8}}); err != nil {
		t.Fatal(err)
	}
	if err := c.BindPipelineStates(
		[]gpucore.DynamicState{gpucore.DynamicStateBlendConstant, gpucore.DynamicStateFrontStencilReference},
		[]uint32{0xff0000ff, 7},
	); err != nil {
		t.Fatal(err)
	}
	if err := c.Draw(3, 1, 0, 0); err != nil {
		t.Fatal(err)
	}

	if len(pass.pipelines) != 1 {
		t.Errorf("SetPipeline calls = %d, want 1", len(pass.pipelines))
	}
	if pass.groups[1] != hal.BindGroup(g0) || pass.groups[3] != hal.BindGroup(g1) {
		t.Errorf("bind groups = %v", pass.groups)
	}
	if _, ok := pass.groups[2]; ok {
		t.Error("null table was bound")
	}
	if pass.viewports != 1 || pass.draws != 1 {
		t.Errorf("viewports = %d, draws = %d", pass.viewports, pass.draws)
	}
	if len(pass.scissors) != 1 || pass.scissors[0] != [4]uint32{2, 3, 10, 5} {
		t.Errorf("scissors = %v", pass.scissors)
	}
	if pass.blend == nil || pass.blend.R != 1 || pass.blend.G != 0 || pass.blend.A != 1 {
		t.Errorf("blend = %+v", pass.blend)
	}
	if pass.stencil != 7 {
		t.Errorf("stencil = %d, want 7", pass.stencil)
	}

	c.End()
	if err := c.Draw(3, 1, 0, 0); !errors.Is(err, ErrNoPass) {
		t.Errorf("Draw after End = %v, want ErrNoPass", err)
	}
}

func TestUnknownHandles(t *testing.T) {
	c := NewPassCommandList()
	pass := newRecordingPass()
	c.Begin(pass)

	if err := c.BindPipeline(gpucore.PipelineStageAllGraphics, 99); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("BindPipeline error = %v, want ErrUnknownHandle", err)
	}

	good := c.RegisterBindGroup(stubGroup{name: "good"})
	err := c.BindDescriptorTables(gpucore.ShaderStagePixel, 0, 0, []gpucore.DescriptorTableID{77, good})
	if !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("BindDescriptorTables error = %v, want ErrUnknownHandle", err)
	}
	if _, ok := pass.groups[1]; !ok {
		t.Error("known group after an unknown one was not bound")
	}

	c.UnregisterBindGroup(good)
	if err := c.BindDescriptorTables(gpucore.ShaderStagePixel, 0, 0, []gpucore.DescriptorTableID{good}); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("after unregister error = %v, want ErrUnknownHandle", err)
	}
}

func TestListIDsDistinct(t *testing.T) {
	a, b := NewPassCommandList(), NewPassCommandList()
	if a.ID() == b.ID() {
		t.Errorf("IDs collide: %d", a.ID())
	}
}
