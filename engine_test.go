package shadertoggle

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/internal/fakehost"
	"github.com/gogpu/shadertoggle/shaderhash"
	"github.com/gogpu/shadertoggle/techniques"
)

const (
	techA = "A [a.fx]"
	techB = "B [b.fx]"
)

var psCode = []byte("pixel shader bytecode")

// harness forwards every call to the fake command list after the engine
// hook, the way an interception layer does.
type harness struct {
	t        *testing.T
	host     *fakehost.Host
	cmd      *fakehost.CommandList
	e        *Engine
	pipeline gpucore.PipelineID
	hash     uint32
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	host := fakehost.New(64, 64)
	base := []Option{
		WithAPI(gpucore.APID3D12),
		WithDevice(host),
		WithEffectRuntime(host),
		WithViewProvider(host),
		WithConstantSource(host),
	}
	e, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := &harness{t: t, host: host, cmd: host.NewCommandList(), e: e}
	h.pipeline = host.NewPipeline()
	h.hash = e.OnInitPipeline(h.pipeline, 0, gpucore.ShaderStagePixel, psCode)
	e.OnCommandListCreated(h.cmd)

	e.SetTechniques([]string{techA, techB})
	for _, name := range []string{techA, techB} {
		if err := e.SetTechniqueEnabled(name, true); err != nil {
			t.Fatal(err)
		}
	}
	return h
}

// addGroup adds an active group matching the harness pipeline.
func (h *harness) addGroup(id uint32, configure func(g *group.Group)) *group.Group {
	h.t.Helper()
	g := group.New(id, "group")
	g.Active = true
	g.AddHash(gpucore.ShaderStagePixel, h.hash)
	if configure != nil {
		configure(g)
	}
	if err := h.e.AddGroup(g); err != nil {
		h.t.Fatal(err)
	}
	return g
}

func (h *harness) bindTargets(rtvs ...gpucore.ViewID) {
	h.t.Helper()
	h.e.OnBindRenderTargets(h.cmd, rtvs, gpucore.InvalidID)
	if err := h.cmd.BindRenderTargets(rtvs, gpucore.InvalidID); err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) bindPipeline(p gpucore.PipelineID) {
	h.t.Helper()
	h.e.OnBindPipeline(h.cmd, gpucore.PipelineStagePixelShader, p)
	if err := h.cmd.BindPipeline(gpucore.PipelineStagePixelShader, p); err != nil {
		h.t.Fatal(err)
	}
}

// draw reports whether the draw was blocked.
func (h *harness) draw() bool {
	h.t.Helper()
	if h.e.OnDraw(h.cmd) {
		return true
	}
	if err := h.cmd.Draw(3, 1, 0, 0); err != nil {
		h.t.Fatal(err)
	}
	return false
}

func (h *harness) checkConsistent() {
	h.t.Helper()
	l := h.e.list(h.cmd)
	if err := l.ctx.State.Consistent(); err != nil {
		h.t.Error(err)
	}
}

func (h *harness) queued() int {
	return h.e.list(h.cmd).ctx.State.Total()
}

func techniquesRendered(host *fakehost.Host) []string {
	var out []string
	for _, r := range host.Renders() {
		out = append(out, r.Technique)
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	host := fakehost.New(8, 8)
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"no device", []Option{WithEffectRuntime(host), WithViewProvider(host)}, ErrNoDevice},
		{"no runtime", []Option{WithDevice(host), WithViewProvider(host)}, ErrNoRuntime},
		{"no views", []Option{WithDevice(host), WithEffectRuntime(host)}, ErrNoViewProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewSelectsAdapter(t *testing.T) {
	host := fakehost.New(8, 8)
	required := []Option{WithDevice(host), WithEffectRuntime(host), WithViewProvider(host)}

	tests := []struct {
		name    string
		opts    []Option
		want    string
		wantErr bool
	}{
		{"d3d9", []Option{WithAPI(gpucore.APID3D9)}, backend.NameLegacy, false},
		{"d3d12", []Option{WithAPI(gpucore.APID3D12)}, backend.NameExplicit, false},
		{"vulkan", []Option{WithAPI(gpucore.APIVulkan)}, backend.NameExplicit, false},
		{"forced", []Option{WithAPI(gpucore.APIVulkan), WithBackend(backend.NameLegacy)}, backend.NameLegacy, false},
		{"unknown", []Option{WithBackend("metal")}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(append(required, tt.opts...)...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("New() succeeded, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := e.Adapter().Name(); got != tt.want {
				t.Errorf("adapter = %q, want %q", got, tt.want)
			}
		})
	}
}

// mockProvider implements gpucontext.DeviceProvider.
type mockProvider struct {
	format gputypes.TextureFormat
}

func (m *mockProvider) Device() gpucontext.Device             { return nil }
func (m *mockProvider) Queue() gpucontext.Queue               { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return m.format }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

type idleProvider struct {
	mockProvider
	waits int
}

func (p *idleProvider) WaitIdle() { p.waits++ }

func TestPreviewFormat(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want gpucore.Format
	}{
		{"default", nil, gpucore.FormatR8G8B8A8Unorm},
		{"surface", []Option{WithDeviceProvider(&mockProvider{format: gputypes.TextureFormatBGRA8Unorm})}, gpucore.FormatB8G8R8A8Unorm},
		{"undefined surface", []Option{WithDeviceProvider(&mockProvider{})}, gpucore.FormatR8G8B8A8Unorm},
		{"explicit wins", []Option{
			WithPreviewFormat(gpucore.FormatR16G16B16A16Float),
			WithDeviceProvider(&mockProvider{format: gputypes.TextureFormatBGRA8Unorm}),
		}, gpucore.FormatR16G16B16A16Float},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.opts...)
			if h.e.previewFormat != tt.want {
				t.Errorf("preview format = %v, want %v", h.e.previewFormat, tt.want)
			}
		})
	}
}

func TestRetryLimitOption(t *testing.T) {
	tests := []struct {
		frames int
		want   int
	}{
		{0, 0},
		{5, 5},
		{-1, 3},
	}
	for _, tt := range tests {
		h := newHarness(t, WithRetryLimit(tt.frames))
		if got := h.e.Session().RetryLimit(); got != tt.want {
			t.Errorf("WithRetryLimit(%d): limit = %d, want %d", tt.frames, got, tt.want)
		}
	}
}

func TestOnInitPipeline(t *testing.T) {
	h := newHarness(t)
	if h.hash != shaderhash.Hash(psCode) {
		t.Errorf("hash = %#08x, want %#08x", h.hash, shaderhash.Hash(psCode))
	}
	p := h.host.NewPipeline()
	if got := h.e.OnInitPipeline(p, 0, gpucore.ShaderStageVertex, nil); got != 0 {
		t.Errorf("empty binary hash = %#x, want 0", got)
	}
	if got := h.e.Stats().Pipelines; got != 1 {
		t.Errorf("Pipelines = %d, want 1", got)
	}
	h.e.OnDestroyPipeline(h.pipeline)
	if got := h.e.Stats().Pipelines; got != 0 {
		t.Errorf("Pipelines after destroy = %d, want 0", got)
	}
}

func TestEngineRendersIntoClampedTarget(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) {
		g.PreferredTechniques = []string{techA}
		g.RenderTargetIndex = 2
	})
	_, rtv0 := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	res1, rtv1 := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv0, rtv1)
	h.bindPipeline(h.pipeline)
	h.checkConsistent()
	if h.queued() == 0 {
		t.Fatal("nothing queued on pipeline bind")
	}

	before := h.cmd.Bound()
	if h.draw() {
		t.Fatal("draw blocked")
	}
	if !h.cmd.Bound().Equal(before) {
		t.Error("bound state not restored after effects")
	}

	views, _ := h.host.RenderTargetViews(res1)
	renders := h.host.Renders()
	if len(renders) != 1 || renders[0].Technique != techA || renders[0].RTV != views.Linear {
		t.Fatalf("renders = %+v, want %s into %d", renders, techA, views.Linear)
	}
	if h.queued() != 0 {
		t.Errorf("queued = %d after draw, want 0", h.queued())
	}
	h.checkConsistent()
	if got := h.e.Stats().EffectsRendered; got != 1 {
		t.Errorf("EffectsRendered = %d, want 1", got)
	}

	// Rendered once per frame.
	h.bindPipeline(h.pipeline)
	h.draw()
	if got := len(h.host.Renders()); got != 1 {
		t.Errorf("renders = %d in one frame, want 1", got)
	}
}

func TestEngineDeferredToPipelineBind(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) {
		g.PreferredTechniques = []string{techA}
		g.Invocation = group.LocationBindPipeline
	})
	_, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()
	if n := len(h.host.Renders()); n != 0 {
		t.Fatalf("renders = %d at draw, want 0", n)
	}
	h.checkConsistent()

	h.bindPipeline(h.host.NewPipeline())
	if got := techniquesRendered(h.host); len(got) != 1 || got[0] != techA {
		t.Errorf("renders = %v, want [%s]", got, techA)
	}
	if h.queued() != 0 {
		t.Errorf("queued = %d, want 0", h.queued())
	}
	h.checkConsistent()
}

func TestEngineRenderTargetInvocation(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) {
		g.PreferredTechniques = []string{techB}
		g.Invocation = group.LocationBindRenderTarget
	})
	res, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()
	if n := len(h.host.Renders()); n != 0 {
		t.Fatalf("renders = %d at draw, want 0", n)
	}

	_, next := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(next)
	views, _ := h.host.RenderTargetViews(res)
	renders := h.host.Renders()
	if len(renders) != 1 || renders[0].RTV != views.Linear {
		t.Errorf("renders = %+v, want one into the outgoing target", renders)
	}
	h.checkConsistent()
}

func TestEngineHidesMatchingDraws(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) { g.HideDraws = true })
	h.bindPipeline(h.pipeline)

	if !h.draw() {
		t.Error("draw not blocked")
	}
	if !h.e.OnDrawOrDispatchIndirect(h.cmd, IndirectDraw) {
		t.Error("indirect draw not blocked")
	}
	if h.e.OnDrawOrDispatchIndirect(h.cmd, IndirectDispatchRays) {
		t.Error("ray dispatch blocked")
	}
	if got := h.e.Stats().DrawsBlocked; got != 2 {
		t.Errorf("DrawsBlocked = %d, want 2", got)
	}

	if err := h.e.SetGroupActive(1, false); err != nil {
		t.Fatal(err)
	}
	h.bindPipeline(h.pipeline)
	if h.draw() {
		t.Error("draw blocked by an inactive group")
	}

	h.bindPipeline(h.host.NewPipeline())
	if h.draw() {
		t.Error("draw of an unknown pipeline blocked")
	}
}

func TestEngineRemoveGroupDropsTasks(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) { g.PreferredTechniques = []string{techA} })
	_, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)

	if err := h.e.RemoveGroup(1); err != nil {
		t.Fatal(err)
	}
	if err := h.e.RemoveGroup(1); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("second RemoveGroup() error = %v, want ErrUnknownGroup", err)
	}
	h.draw()
	if n := len(h.host.Renders()); n != 0 {
		t.Errorf("renders = %d for a removed group, want 0", n)
	}
	if h.queued() != 0 {
		t.Errorf("queued = %d, want 0", h.queued())
	}
	h.checkConsistent()
}

func TestEngineCommandListReset(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) {
		g.PreferredTechniques = []string{techA}
		g.HideDraws = true
	})
	_, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)

	h.e.OnCommandListReset(h.cmd)
	l := h.e.list(h.cmd)
	if l.ctx.State.Mask != 0 || h.queued() != 0 {
		t.Errorf("state after reset: mask %v, %d queued", l.ctx.State.Mask, h.queued())
	}
	if h.e.OnDraw(h.cmd) {
		t.Error("draw blocked after reset")
	}
	if n := len(h.host.Renders()); n != 0 {
		t.Errorf("renders = %d after reset, want 0", n)
	}

	h.e.OnCommandListDestroyed(h.cmd)
	if got := h.e.Stats().CommandLists; got != 0 {
		t.Errorf("CommandLists = %d after destroy, want 0", got)
	}
}

func TestEnginePresentEndsFrame(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) { g.PreferredTechniques = []string{techA} })
	res, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()

	back, _ := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.e.OnPresent(h.cmd, back)

	// techB had no group and renders into the back buffer.
	renders := h.host.Renders()
	backViews, _ := h.host.RenderTargetViews(back)
	if len(renders) != 2 || renders[1].Technique != techB || renders[1].RTV != backViews.Linear {
		t.Fatalf("renders = %+v, want %s into the back buffer last", renders, techB)
	}
	st := h.e.Stats()
	if st.Frame != 1 {
		t.Errorf("Frame = %d, want 1", st.Frame)
	}
	techs := h.e.Session().Techniques()
	if techs.Rendered(techA) || techs.Rendered(techB) {
		t.Error("rendered flags survived present")
	}

	// A new frame renders again.
	h.host.ResetCalls()
	h.e.OnCommandListReset(h.cmd)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()
	views, _ := h.host.RenderTargetViews(res)
	if renders := h.host.Renders(); len(renders) != 1 || renders[0].RTV != views.Linear {
		t.Errorf("second frame renders = %+v", renders)
	}
}

func TestEngineBindingReference(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) { g.TextureBindingName = "Scene" })
	res, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()

	b, ok := h.e.Binding("Scene")
	if !ok || b.Resource != res || b.Owned {
		t.Fatalf("binding = %+v, %v; want reference to %d", b, ok, res)
	}
	srv, _ := h.host.ShaderResourceViews(res)
	updates := h.host.BindingUpdates()
	if len(updates) != 1 || updates[0].Name != "Scene" || updates[0].SRV != srv.Linear {
		t.Errorf("binding updates = %+v", updates)
	}
	h.checkConsistent()
}

func TestEngineClearsUnmatchedBinding(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) {
		g.TextureBindingName = "Scene"
		g.ClearBindingOnMiss = true
	})
	_, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()
	h.e.OnPresent(h.cmd, gpucore.InvalidID)
	if b, _ := h.e.Binding("Scene"); b.Cleared {
		t.Fatal("binding cleared on a frame where it matched")
	}

	// Next frame the pipeline is never bound.
	h.e.OnCommandListReset(h.cmd)
	h.e.OnPresent(h.cmd, gpucore.InvalidID)
	b, _ := h.e.Binding("Scene")
	if !b.Cleared || b.Resource != gpucore.InvalidID {
		t.Errorf("binding = %+v, want cleared", b)
	}
	updates := h.host.BindingUpdates()
	if last := updates[len(updates)-1]; last.SRV != gpucore.InvalidID {
		t.Errorf("last binding update = %+v, want reset", last)
	}
}

func TestEngineConstants(t *testing.T) {
	h := newHarness(t)
	g := h.addGroup(1, func(g *group.Group) { g.ExtractConstants = true })
	if _, ok := h.e.ConstantData(g.ID); ok {
		t.Fatal("constants before extraction")
	}
	h.bindPipeline(h.pipeline)
	h.draw()
	// Nothing bound on the constant slot: the task is dropped.
	if _, ok := h.e.ConstantData(g.ID); ok {
		t.Error("constants extracted without a bound buffer")
	}
	h.checkConsistent()
	if _, ok := h.e.ConstantData(99); ok {
		t.Error("constants for an unknown group")
	}
}

func TestEnginePreview(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, nil)
	if err := h.e.SetPreviewGroup(7); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("SetPreviewGroup(7) error = %v, want ErrUnknownGroup", err)
	}
	if err := h.e.SetPreviewGroup(1); err != nil {
		t.Fatal(err)
	}
	p := h.e.Preview()
	if p.Resource == gpucore.InvalidID || p.Desc.Size.Width != 64 || p.Desc.Format != gpucore.FormatR8G8B8A8Unorm {
		t.Fatalf("preview = %+v, want a 64x64 texture", p)
	}
	first := p.Resource

	_, rtv := h.host.NewTexture(32, 32, gpucore.FormatR8G8B8A8Unorm)
	h.bindTargets(rtv)
	h.bindPipeline(h.pipeline)
	h.draw()
	if !h.e.Preview().Recreate {
		t.Fatal("incompatible target did not request recreation")
	}

	h.e.OnPresent(h.cmd, gpucore.InvalidID)
	p = h.e.Preview()
	if p.Resource == first || p.Desc.Size.Width != 32 || p.Recreate || p.Matched {
		t.Errorf("preview after present = %+v", p)
	}
	if h.host.Exists(first) {
		t.Error("old preview texture not destroyed")
	}

	h.e.ClearPreviewGroup()
	if p := h.e.Preview(); p.Group != nil || p.Resource != gpucore.InvalidID {
		t.Errorf("preview after clear = %+v", p)
	}
}

func TestEngineWaitsIdleBeforeDestroy(t *testing.T) {
	prov := &idleProvider{}
	h := newHarness(t, WithDeviceProvider(prov))
	h.addGroup(1, nil)
	if err := h.e.SetPreviewGroup(1); err != nil {
		t.Fatal(err)
	}
	if prov.waits != 0 {
		t.Fatalf("waited %d times creating the first preview", prov.waits)
	}
	h.e.ClearPreviewGroup()
	if prov.waits != 1 {
		t.Errorf("waits = %d, want 1", prov.waits)
	}
}

func TestEngineConfigurationErrors(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, nil)
	if err := h.e.AddGroup(group.New(1, "dup")); !errors.Is(err, group.ErrDuplicateID) {
		t.Errorf("AddGroup(dup) error = %v, want ErrDuplicateID", err)
	}
	if err := h.e.SetGroupActive(5, true); !errors.Is(err, ErrUnknownGroup) {
		t.Errorf("SetGroupActive(5) error = %v", err)
	}
	if err := h.e.SetTechniqueEnabled("missing [x.fx]", true); err == nil {
		t.Error("enabled an unknown technique")
	}
	if err := h.e.UpdateGroup(1, func(g *group.Group) { g.Name = "renamed" }); err != nil {
		t.Fatal(err)
	}
	if g, _ := h.e.Session().Groups().Get(1); g.Name != "renamed" {
		t.Errorf("name = %q after UpdateGroup", g.Name)
	}
	if got := h.e.Stats().Groups; got != 1 {
		t.Errorf("Groups = %d, want 1", got)
	}
}

func TestEngineMaskConsistencyAcrossFrame(t *testing.T) {
	h := newHarness(t)
	h.addGroup(1, func(g *group.Group) {
		g.PreferredTechniques = []string{techA}
		g.TextureBindingName = "Scene"
		g.Invocation = group.LocationBindPipeline
	})
	h.addGroup(2, func(g *group.Group) {
		g.PreferredTechniques = []string{techB}
		g.Retry = true
		g.SwapchainMatch = group.MatchResolution
	})
	_, smallRTV := h.host.NewTexture(16, 16, gpucore.FormatR8G8B8A8Unorm)
	_, fullRTV := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)

	steps := []func(){
		func() { h.bindTargets(smallRTV) },
		func() { h.bindPipeline(h.pipeline) },
		func() { h.draw() },
		func() { h.bindTargets(fullRTV) },
		func() { h.draw() },
		func() { h.bindPipeline(h.host.NewPipeline()) },
		func() { h.draw() },
		func() { h.e.OnPresent(h.cmd, gpucore.InvalidID) },
	}
	for i, step := range steps {
		step()
		if err := h.e.list(h.cmd).ctx.State.Consistent(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestEngineRetryRenderTarget(t *testing.T) {
	type step int
	const (
		bindTwo step = iota
		bindThree
		bindMismatch
		bindPipeline
		draw
		present
		expectQueued
	)
	tests := []struct {
		name     string
		retry    bool
		steps    []step
		rendered bool
	}{
		{"third target bound before draw", true,
			[]step{bindTwo, bindPipeline, bindThree, draw}, true},
		{"survives a failed draw and rebinds", true,
			[]step{bindTwo, bindPipeline, bindMismatch, draw, expectQueued, bindPipeline, expectQueued, bindThree, expectQueued, draw}, true},
		{"survives presents within the limit", true,
			[]step{bindMismatch, bindPipeline, draw, present, draw, present, expectQueued, bindThree, draw}, true},
		{"dropped after the retry limit", true,
			[]step{bindMismatch, bindPipeline, draw, present, draw, present, draw, present, draw, bindThree, draw}, false},
		{"dropped without retry", false,
			[]step{bindTwo, bindPipeline, bindMismatch, draw, bindThree, draw}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.addGroup(1, func(g *group.Group) {
				g.PreferredTechniques = []string{techA}
				g.RenderTargetIndex = 2
				g.Retry = tt.retry
				g.SwapchainMatch = group.MatchResolution
			})
			_, rtv0 := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
			_, rtv1 := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
			res2, rtv2 := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
			_, small := h.host.NewTexture(16, 16, gpucore.FormatR8G8B8A8Unorm)

			for i, s := range tt.steps {
				switch s {
				case bindTwo:
					h.bindTargets(rtv0, rtv1)
				case bindThree:
					h.bindTargets(rtv0, rtv1, rtv2)
				case bindMismatch:
					h.bindTargets(rtv0, rtv1, small)
				case bindPipeline:
					h.bindPipeline(h.pipeline)
				case draw:
					h.draw()
				case present:
					h.e.OnPresent(h.cmd, gpucore.InvalidID)
				case expectQueued:
					if h.queued() != 1 {
						t.Fatalf("step %d: queued = %d, want the retry entry", i, h.queued())
					}
				}
				h.checkConsistent()
			}

			renders := h.host.Renders()
			if !tt.rendered {
				if len(renders) != 0 {
					t.Errorf("renders = %+v, want none", renders)
				}
				if h.queued() != 0 {
					t.Errorf("queued = %d, want 0", h.queued())
				}
				return
			}
			views, _ := h.host.RenderTargetViews(res2)
			if len(renders) != 1 || renders[0].Technique != techA || renders[0].RTV != views.Linear {
				t.Fatalf("renders = %+v, want %s into target 2 (%d)", renders, techA, views.Linear)
			}
			if h.queued() != 0 {
				t.Errorf("queued = %d after render, want 0", h.queued())
			}
		})
	}
}

func TestEngineRenderRemainingNeedsFrameEffect(t *testing.T) {
	tests := []struct {
		name    string
		matched bool
		want    []string
	}{
		{"group rendered this frame", true, []string{techA, techB}},
		{"nothing rendered this frame", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.addGroup(1, func(g *group.Group) { g.PreferredTechniques = []string{techA} })
			_, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
			h.bindTargets(rtv)
			if tt.matched {
				h.bindPipeline(h.pipeline)
			} else {
				h.bindPipeline(h.host.NewPipeline())
			}
			h.draw()

			back, _ := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
			h.e.OnPresent(h.cmd, back)
			if got := techniquesRendered(h.host); !slices.Equal(got, tt.want) {
				t.Errorf("rendered %v, want %v", got, tt.want)
			}
			if h.e.Session().EffectsRendered() {
				t.Error("effects rendered flag survived present")
			}
		})
	}
}

func TestEnginePreserveAlpha(t *testing.T) {
	h := newHarness(t)
	h.e.SetTechniques([]string{techA, techB, techniques.RestoreAlpha})
	if err := h.e.SetTechniqueEnabled(techA, true); err != nil {
		t.Fatal(err)
	}
	g := h.addGroup(1, func(g *group.Group) {
		g.PreferredTechniques = []string{techA}
		g.PreserveAlpha = true
	})
	_, rtv := h.host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)

	frames := []struct {
		want    []string
		buffers int
	}{
		{[]string{techA}, 1},
		{[]string{techA, techniques.RestoreAlpha}, 1},
	}
	for i, f := range frames {
		h.host.ResetCalls()
		h.e.OnCommandListReset(h.cmd)
		h.bindTargets(rtv)
		h.bindPipeline(h.pipeline)
		h.draw()
		if got := techniquesRendered(h.host); !slices.Equal(got, f.want) {
			t.Errorf("frame %d: rendered %v, want %v", i, got, f.want)
		}
		h.e.OnPresent(h.cmd, gpucore.InvalidID)
		if got := h.e.Stats().GroupBuffers; got != f.buffers {
			t.Errorf("frame %d: GroupBuffers = %d, want %d", i, got, f.buffers)
		}
	}

	buf, _, ok := h.e.buffers.Resource(g)
	if !ok {
		t.Fatal("no group buffer")
	}
	if err := h.e.RemoveGroup(1); err != nil {
		t.Fatal(err)
	}
	if h.host.Exists(buf) || h.e.Stats().GroupBuffers != 0 {
		t.Error("group buffer survived RemoveGroup")
	}
}

func TestEngineNames(t *testing.T) {
	h := newHarness(t)
	for i, name := range []string{"beta", "Alpha", "gamma"} {
		if err := h.e.AddGroup(group.New(uint32(i+1), name)); err != nil {
			t.Fatal(err)
		}
	}
	if got, want := h.e.GroupNames(), []string{"Alpha", "beta", "gamma"}; !slices.Equal(got, want) {
		t.Errorf("GroupNames() = %v, want %v", got, want)
	}

	h.e.SetTechniques([]string{"b [x.fx]", techniques.TonemapToSDR, "A [y.fx]"})
	if got, want := h.e.TechniqueNames(), []string{"A [y.fx]", "b [x.fx]"}; !slices.Equal(got, want) {
		t.Errorf("TechniqueNames() = %v, want %v", got, want)
	}
}
