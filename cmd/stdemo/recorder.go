package main

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/shadertoggle/backend/wgpu"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/internal/fakehost"
	"github.com/gogpu/shadertoggle/shaderhash"
)

// recorder is the command list a frame is recorded into, plus the
// host-side calls with no gpucore equivalent.
type recorder interface {
	gpucore.CommandList

	// newPipeline creates a pipeline from a SPIR-V pixel shader.
	newPipeline(label string, spirv []byte) (gpucore.PipelineID, error)

	begin() error
	bindTargets(rtvs []gpucore.ViewID) error
	end() error
}

// fakeRecorder records into the in-memory host.
type fakeRecorder struct {
	*fakehost.CommandList
	host *fakehost.Host
}

func newFakeRecorder(host *fakehost.Host) *fakeRecorder {
	return &fakeRecorder{CommandList: host.NewCommandList(), host: host}
}

func (r *fakeRecorder) newPipeline(string, []byte) (gpucore.PipelineID, error) {
	return r.host.NewPipeline(), nil
}

func (r *fakeRecorder) begin() error {
	r.Clear()
	return nil
}

func (r *fakeRecorder) bindTargets(rtvs []gpucore.ViewID) error {
	return r.BindRenderTargets(rtvs, gpucore.InvalidID)
}

func (r *fakeRecorder) end() error { return nil }

// passRecorder records into gogpu/wgpu render passes on the noop HAL
// device. A render target bind ends the current pass and begins the next.
type passRecorder struct {
	*wgpu.PassCommandList
	device *noop.Device

	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	passes  int
}

func newPassRecorder() *passRecorder {
	return &passRecorder{PassCommandList: wgpu.NewPassCommandList(), device: &noop.Device{}}
}

func (r *passRecorder) newPipeline(label string, spirv []byte) (gpucore.PipelineID, error) {
	module, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: shaderhash.Words(spirv)},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("shader module %s: %w", label, err)
	}
	p, err := r.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Vertex: hal.VertexState{Module: module, EntryPoint: "vs_main"},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    gputypes.TextureFormatRGBA8Unorm,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("render pipeline %s: %w", label, err)
	}
	return r.RegisterPipeline(p), nil
}

func (r *passRecorder) begin() error {
	enc, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "stdemo frame"})
	if err != nil {
		return err
	}
	if err := enc.BeginEncoding("stdemo frame"); err != nil {
		return err
	}
	r.encoder = enc
	return nil
}

func (r *passRecorder) endPass() {
	if r.pass == nil {
		return
	}
	r.pass.End()
	r.End()
	r.pass = nil
}

func (r *passRecorder) bindTargets(rtvs []gpucore.ViewID) error {
	r.endPass()
	if len(rtvs) == 0 {
		return nil
	}
	if r.encoder == nil {
		return wgpu.ErrNoPass
	}
	attachments := make([]hal.RenderPassColorAttachment, len(rtvs))
	for i := range attachments {
		attachments[i] = hal.RenderPassColorAttachment{LoadOp: gputypes.LoadOpLoad, StoreOp: gputypes.StoreOpStore}
	}
	r.pass = r.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            fmt.Sprintf("stdemo pass %d", r.passes),
		ColorAttachments: attachments,
	})
	r.Begin(r.pass)
	r.passes++
	return nil
}

func (r *passRecorder) end() error {
	r.endPass()
	if r.encoder == nil {
		return nil
	}
	_, err := r.encoder.EndEncoding()
	r.encoder = nil
	return err
}
