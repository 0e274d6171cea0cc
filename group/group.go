package group

import (
	"slices"
	"sync"

	"github.com/gogpu/shadertoggle/gpucore"
)

// Location is the call-site at which a group's deferred work fires.
type Location uint8

// Invocation locations. The values match the scheduler's call-site ids.
const (
	// LocationDraw fires at the draw that used the matched pipeline.
	LocationDraw Location = iota

	// LocationBindPipeline fires when the next pipeline is bound on the stage.
	LocationBindPipeline

	// LocationBindRenderTarget fires when the render targets change.
	LocationBindRenderTarget
)

// MatchMode selects how strictly a target must match the swapchain.
type MatchMode uint8

// Swapchain match modes, ordered from strictest to none.
const (
	// MatchResolution requires the exact swapchain size.
	MatchResolution MatchMode = iota

	// MatchAspectRatio requires a similar, common aspect ratio.
	MatchAspectRatio

	// MatchExtendedAspectRatio also accepts integer-multiple aspect ratios.
	MatchExtendedAspectRatio

	// MatchNone accepts any size.
	MatchNone
)

// CycleDirection is an interactive request to move the descriptor cursor.
type CycleDirection int8

// Cycle directions.
const (
	CycleDown CycleDirection = -1
	CycleNone CycleDirection = 0
	CycleUp   CycleDirection = 1
)

// DescriptorSelector picks one descriptor slot on a shader stage.
type DescriptorSelector struct {
	Stage gpucore.ShaderStage
	Slot  uint32
	Index uint32
}

// Group is one toggle group: a set of shader hashes plus the policy that
// decides which auxiliary work runs when a matching pipeline is bound.
//
// Thread Safety:
// Policy fields are written only while the owning engine holds its
// configuration write lock and are read under the read lock. The
// descriptor cursor is the only state mutated during recording and has
// its own lock.
type Group struct {
	ID   uint32
	Name string

	// Active enables the group. Inactive groups neither block draws nor
	// schedule work.
	Active bool

	// HideDraws blocks draws of matching pipelines while the group is active.
	HideDraws bool

	// Invocation is where effects and the preview copy fire.
	Invocation Location

	// RenderTargetIndex selects the render target effects draw into.
	RenderTargetIndex uint32

	// SwapchainMatch constrains the effect target size.
	SwapchainMatch MatchMode

	// Retry keeps unresolved tasks queued instead of dropping them.
	Retry bool

	// ToneMap wraps effect rendering in SDR/HDR conversion techniques.
	ToneMap bool

	// PreserveAlpha restores the target's alpha channel after effects.
	PreserveAlpha bool

	AllowAllTechniques     bool
	HasTechniqueExceptions bool
	PreferredTechniques    []string

	// TextureBindingName names the effect runtime texture this group feeds.
	// Empty disables texture binding.
	TextureBindingName string

	// CopyTextureBinding copies the target into an engine-owned texture
	// instead of referencing the game's view.
	CopyTextureBinding bool

	// ExtractResourceViews sources the binding from a bound shader
	// resource descriptor instead of a render target.
	ExtractResourceViews bool

	// BindingInvocation is where a copied binding fires. References and
	// extracted descriptors always resolve at the draw.
	BindingInvocation Location

	// BindingRenderTargetIndex selects the render target a binding reads.
	BindingRenderTargetIndex uint32

	BindingSwapchainMatch MatchMode

	// ClearBindingOnMiss resets the binding on frames where it was not
	// updated.
	ClearBindingOnMiss bool

	// FlipBinding renders the flip technique over a copied binding.
	FlipBinding bool

	// ExtractConstants copies the constant buffer at Constants each frame.
	ExtractConstants bool
	Constants        DescriptorSelector

	hashes map[gpucore.ShaderStage]map[uint32]struct{}

	mu      sync.Mutex
	binding DescriptorSelector
	cycle   CycleDirection
}

// New creates a group with the given identity and default policy.
func New(id uint32, name string) *Group {
	return &Group{
		ID:             id,
		Name:           name,
		SwapchainMatch: MatchNone,
		binding:        DescriptorSelector{Stage: gpucore.ShaderStagePixel},
		Constants:      DescriptorSelector{Stage: gpucore.ShaderStagePixel},
		hashes:         make(map[gpucore.ShaderStage]map[uint32]struct{}),

		BindingSwapchainMatch: MatchNone,
	}
}

// AddHash adds a shader hash on one stage to the group's matching rule.
func (g *Group) AddHash(stage gpucore.ShaderStage, hash uint32) {
	if g.hashes == nil {
		g.hashes = make(map[gpucore.ShaderStage]map[uint32]struct{})
	}
	set, ok := g.hashes[stage]
	if !ok {
		set = make(map[uint32]struct{})
		g.hashes[stage] = set
	}
	set[hash] = struct{}{}
}

// RemoveHash removes a shader hash from the matching rule.
func (g *Group) RemoveHash(stage gpucore.ShaderStage, hash uint32) {
	delete(g.hashes[stage], hash)
}

// Matches reports whether the group's rule contains hash on stage.
func (g *Group) Matches(stage gpucore.ShaderStage, hash uint32) bool {
	_, ok := g.hashes[stage][hash]
	return ok
}

// HashCount returns the number of hashes on stage.
func (g *Group) HashCount(stage gpucore.ShaderStage) int {
	return len(g.hashes[stage])
}

// ProvidesBinding reports whether the group feeds a texture binding.
func (g *Group) ProvidesBinding() bool {
	return g.TextureBindingName != ""
}

// IsTechniqueExcepted reports whether name is excluded from allow-all mode.
func (g *Group) IsTechniqueExcepted(name string) bool {
	return g.HasTechniqueExceptions && slices.Contains(g.PreferredTechniques, name)
}

// Binding returns the descriptor the group extracts its binding from.
func (g *Group) Binding() DescriptorSelector {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.binding
}

// SetBinding replaces the binding descriptor selector.
func (g *Group) SetBinding(sel DescriptorSelector) {
	g.mu.Lock()
	g.binding = sel
	g.mu.Unlock()
}

// RequestCycle records an interactive request to move the binding
// descriptor cursor. It is consumed by the next binding resolution.
func (g *Group) RequestCycle(dir CycleDirection) {
	g.mu.Lock()
	g.cycle = dir
	g.mu.Unlock()
}

// TakeCycle returns and clears the pending cycle request.
func (g *Group) TakeCycle() CycleDirection {
	g.mu.Lock()
	defer g.mu.Unlock()
	dir := g.cycle
	g.cycle = CycleNone
	return dir
}

// CommitDescriptorIndex moves the binding cursor to index.
func (g *Group) CommitDescriptorIndex(index uint32) {
	g.mu.Lock()
	g.binding.Index = index
	g.mu.Unlock()
}
