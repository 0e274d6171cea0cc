// Package fakehost provides an in-memory host runtime for tests and the
// demo driver. It implements the outbound interfaces of gpucore and keeps
// the observable binding state of every command list so that restores can
// be compared against captures.
package fakehost

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadertoggle/gpucore"
)

var (
	// ErrInvalidHandle is returned when a call references a destroyed or
	// unknown object.
	ErrInvalidHandle = errors.New("fakehost: invalid handle")

	// ErrShapeMismatch is returned by CopyResource for incompatible resources.
	ErrShapeMismatch = errors.New("fakehost: copy between different shapes")
)

// Resource is a fake texture or buffer.
type Resource struct {
	Desc   gpucore.ResourceDesc
	Pixels *image.RGBA
	Data   []byte
}

// RenderCall records one RenderTechnique call.
type RenderCall struct {
	CommandList gpucore.CommandListID
	Technique   string
	RTV         gpucore.ViewID
	RTVSRGB     gpucore.ViewID
}

// BindingUpdate records one UpdateTextureBinding call.
type BindingUpdate struct {
	Name string
	SRV  gpucore.ViewID
	SRGB gpucore.ViewID
}

type tableLoc struct {
	heap   gpucore.DescriptorHeapID
	offset uint32
}

// Host is a fake device, view provider, effect runtime and constant source.
//
// Host is safe for concurrent use.
type Host struct {
	mu sync.Mutex

	nextID    uint64
	resources map[gpucore.ResourceID]*Resource
	views     map[gpucore.ViewID]gpucore.ResourceID
	rtvCache  map[gpucore.ResourceID]gpucore.ViewPair
	srvCache  map[gpucore.ResourceID]gpucore.ViewPair
	tables    map[gpucore.DescriptorTableID]tableLoc
	pipelines map[gpucore.PipelineID]bool

	width, height uint32

	renders  []RenderCall
	bindings []BindingUpdate

	// FailRender makes RenderTechnique fail.
	FailRender bool
}

// New creates a host with a width x height back buffer.
func New(width, height uint32) *Host {
	return &Host{
		nextID:    1,
		resources: make(map[gpucore.ResourceID]*Resource),
		views:     make(map[gpucore.ViewID]gpucore.ResourceID),
		rtvCache:  make(map[gpucore.ResourceID]gpucore.ViewPair),
		srvCache:  make(map[gpucore.ResourceID]gpucore.ViewPair),
		tables:    make(map[gpucore.DescriptorTableID]tableLoc),
		pipelines: make(map[gpucore.PipelineID]bool),
		width:     width,
		height:    height,
	}
}

func (h *Host) id() uint64 {
	id := h.nextID
	h.nextID++
	return id
}

// NewTexture creates a texture and one view of it.
func (h *Host) NewTexture(width, height uint32, format gpucore.Format) (gpucore.ResourceID, gpucore.ViewID) {
	res, _ := h.CreateTexture(gpucore.ResourceDesc{
		Size:   gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		Levels: 1,
		Format: format,
	})
	return res, h.NewView(res)
}

// NewView creates another view of res.
func (h *Host) NewView(res gpucore.ResourceID) gpucore.ViewID {
	h.mu.Lock()
	defer h.mu.Unlock()
	v := gpucore.ViewID(h.id())
	h.views[v] = res
	return v
}

// NewBuffer creates a buffer holding data.
func (h *Host) NewBuffer(data []byte) gpucore.ResourceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	res := gpucore.ResourceID(h.id())
	h.resources[res] = &Resource{Data: append([]byte(nil), data...)}
	return res
}

// NewPipeline registers a pipeline handle.
func (h *Host) NewPipeline() gpucore.PipelineID {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := gpucore.PipelineID(h.id())
	h.pipelines[p] = true
	return p
}

// DestroyPipeline invalidates a pipeline handle.
func (h *Host) DestroyPipeline(p gpucore.PipelineID) {
	h.mu.Lock()
	delete(h.pipelines, p)
	h.mu.Unlock()
}

// NewTable allocates a descriptor table located at offset in heap.
func (h *Host) NewTable(heap gpucore.DescriptorHeapID, offset uint32) gpucore.DescriptorTableID {
	h.mu.Lock()
	defer h.mu.Unlock()
	t := gpucore.DescriptorTableID(h.id())
	h.tables[t] = tableLoc{heap: heap, offset: offset}
	return t
}

// Fill sets every pixel of res to c.
func (h *Host) Fill(res gpucore.ResourceID, c color.RGBA) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.resources[res]; ok && r.Pixels != nil {
		for i := 0; i < len(r.Pixels.Pix); i += 4 {
			r.Pixels.Pix[i], r.Pixels.Pix[i+1], r.Pixels.Pix[i+2], r.Pixels.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

// Image returns a copy of the pixels of res.
func (h *Host) Image(res gpucore.ResourceID) (*image.RGBA, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.resources[res]
	if !ok || r.Pixels == nil {
		return nil, false
	}
	img := image.NewRGBA(r.Pixels.Rect)
	copy(img.Pix, r.Pixels.Pix)
	return img, true
}

// Exists reports whether res is alive.
func (h *Host) Exists(res gpucore.ResourceID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.resources[res]
	return ok
}

// Renders returns the recorded RenderTechnique calls.
func (h *Host) Renders() []RenderCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]RenderCall(nil), h.renders...)
}

// BindingUpdates returns the recorded UpdateTextureBinding calls.
func (h *Host) BindingUpdates() []BindingUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]BindingUpdate(nil), h.bindings...)
}

// ResetCalls forgets recorded render and binding calls.
func (h *Host) ResetCalls() {
	h.mu.Lock()
	h.renders = nil
	h.bindings = nil
	h.mu.Unlock()
}

// Resize changes the back buffer size.
func (h *Host) Resize(width, height uint32) {
	h.mu.Lock()
	h.width, h.height = width, height
	h.mu.Unlock()
}

// === gpucore.Device ===

// ResourceFromView implements gpucore.Device.
func (h *Host) ResourceFromView(view gpucore.ViewID) gpucore.ResourceID {
	h.mu.Lock()
	defer h.mu.Unlock()
	res, ok := h.views[view]
	if !ok {
		return gpucore.InvalidID
	}
	if _, alive := h.resources[res]; !alive {
		return gpucore.InvalidID
	}
	return res
}

// ResourceDesc implements gpucore.Device.
func (h *Host) ResourceDesc(res gpucore.ResourceID) (gpucore.ResourceDesc, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.resources[res]
	if !ok {
		return gpucore.ResourceDesc{}, false
	}
	return r.Desc, true
}

// DescriptorHeapOffset implements gpucore.Device.
func (h *Host) DescriptorHeapOffset(table gpucore.DescriptorTableID, binding uint32) (gpucore.DescriptorHeapID, uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	loc, ok := h.tables[table]
	if !ok {
		return gpucore.InvalidID, 0, false
	}
	return loc.heap, loc.offset + binding, true
}

// CreateTexture implements gpucore.Device.
func (h *Host) CreateTexture(desc gpucore.ResourceDesc) (gpucore.ResourceID, error) {
	if desc.Size.Width == 0 || desc.Size.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("fakehost: create texture %dx%d: %w", desc.Size.Width, desc.Size.Height, ErrInvalidHandle)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	res := gpucore.ResourceID(h.id())
	r := &Resource{Desc: desc}
	if desc.Format.IsColor() {
		r.Pixels = image.NewRGBA(image.Rect(0, 0, int(desc.Size.Width), int(desc.Size.Height)))
	}
	h.resources[res] = r
	return res, nil
}

// DestroyResource implements gpucore.Device.
func (h *Host) DestroyResource(res gpucore.ResourceID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.resources, res)
	delete(h.rtvCache, res)
	delete(h.srvCache, res)
}

// === gpucore.ViewProvider ===

func (h *Host) viewPair(cache map[gpucore.ResourceID]gpucore.ViewPair, res gpucore.ResourceID) (gpucore.ViewPair, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.resources[res]
	if !ok {
		return gpucore.ViewPair{}, fmt.Errorf("fakehost: views of resource %d: %w", res, ErrInvalidHandle)
	}
	if p, ok := cache[res]; ok {
		return p, nil
	}
	p := gpucore.ViewPair{Linear: gpucore.ViewID(h.id())}
	h.views[p.Linear] = res
	p.SRGB = p.Linear
	if r.Desc.Format.SRGB() != r.Desc.Format.Linear() {
		p.SRGB = gpucore.ViewID(h.id())
		h.views[p.SRGB] = res
	}
	cache[res] = p
	return p, nil
}

// RenderTargetViews implements gpucore.ViewProvider.
func (h *Host) RenderTargetViews(res gpucore.ResourceID) (gpucore.ViewPair, error) {
	return h.viewPair(h.rtvCache, res)
}

// ShaderResourceViews implements gpucore.ViewProvider.
func (h *Host) ShaderResourceViews(res gpucore.ResourceID) (gpucore.ViewPair, error) {
	return h.viewPair(h.srvCache, res)
}

// Release implements gpucore.ViewProvider.
func (h *Host) Release(res gpucore.ResourceID) {
	h.mu.Lock()
	delete(h.rtvCache, res)
	delete(h.srvCache, res)
	h.mu.Unlock()
}

// === gpucore.EffectRuntime ===

// RenderTechnique implements gpucore.EffectRuntime. It inverts the color
// channels of the target so renders are visible in images.
func (h *Host) RenderTechnique(cmd gpucore.CommandList, technique string, rtv, rtvSRGB gpucore.ViewID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailRender {
		return fmt.Errorf("fakehost: render %q: forced failure", technique)
	}
	res, ok := h.views[rtv]
	if !ok {
		return fmt.Errorf("fakehost: render %q into view %d: %w", technique, rtv, ErrInvalidHandle)
	}
	if r, ok := h.resources[res]; ok && r.Pixels != nil {
		for i := 0; i < len(r.Pixels.Pix); i += 4 {
			r.Pixels.Pix[i] = 255 - r.Pixels.Pix[i]
			r.Pixels.Pix[i+1] = 255 - r.Pixels.Pix[i+1]
			r.Pixels.Pix[i+2] = 255 - r.Pixels.Pix[i+2]
		}
	}
	h.renders = append(h.renders, RenderCall{CommandList: cmd.ID(), Technique: technique, RTV: rtv, RTVSRGB: rtvSRGB})
	return nil
}

// UpdateTextureBinding implements gpucore.EffectRuntime.
func (h *Host) UpdateTextureBinding(name string, srv, srvSRGB gpucore.ViewID) error {
	h.mu.Lock()
	h.bindings = append(h.bindings, BindingUpdate{Name: name, SRV: srv, SRGB: srvSRGB})
	h.mu.Unlock()
	return nil
}

// ScreenshotSize implements gpucore.EffectRuntime.
func (h *Host) ScreenshotSize() (uint32, uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

// === constant source ===

// ReadConstants returns a copy of the buffer range's bytes.
func (h *Host) ReadConstants(_ gpucore.CommandList, buf gpucore.BufferRange) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.resources[buf.Buffer]
	if !ok || r.Data == nil {
		return nil, fmt.Errorf("fakehost: read constants from %d: %w", buf.Buffer, ErrInvalidHandle)
	}
	start := min(buf.Offset, uint64(len(r.Data)))
	end := uint64(len(r.Data))
	if buf.Size > 0 {
		end = min(start+buf.Size, end)
	}
	return append([]byte(nil), r.Data[start:end]...), nil
}

// copyResource copies src into dst.
func (h *Host) copyResource(src, dst gpucore.ResourceID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.resources[src]
	d, ok2 := h.resources[dst]
	if !ok || !ok2 {
		return fmt.Errorf("fakehost: copy %d -> %d: %w", src, dst, ErrInvalidHandle)
	}
	if s.Desc.Size != d.Desc.Size || !d.Desc.Format.CopyCompatible(s.Desc.Format) {
		return ErrShapeMismatch
	}
	if s.Pixels != nil && d.Pixels != nil {
		copy(d.Pixels.Pix, s.Pixels.Pix)
	}
	if s.Data != nil {
		d.Data = append(d.Data[:0], s.Data...)
	}
	return nil
}

func (h *Host) viewAlive(v gpucore.ViewID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	res, ok := h.views[v]
	if !ok {
		return false
	}
	_, ok = h.resources[res]
	return ok
}

func (h *Host) pipelineAlive(p gpucore.PipelineID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pipelines[p]
}
