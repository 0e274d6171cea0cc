// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package session

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/techniques"
)

// DefaultRetryLimit is the number of presented frames an unresolved
// retry task may stay queued.
const DefaultRetryLimit = 3

// Binding is the engine-side state of one effect texture binding.
type Binding struct {
	Name string

	// Resource is the engine-owned copy target in copy mode, or the
	// game's resource in reference mode.
	Resource gpucore.ResourceID
	Desc     gpucore.ResourceDesc
	Views    gpucore.ViewPair

	// Targets are render target views of an owned copy, used to flip it.
	Targets gpucore.ViewPair

	// Owned is true when Resource was created by the engine.
	Owned bool

	// Cleared is set once the binding was reset to the runtime default
	// and stays set until the next update.
	Cleared bool
}

// Preview holds the interactive preview of the group being edited.
type Preview struct {
	Group *group.Group

	// Matched is set once the preview copied a target this frame.
	Matched bool

	// Target is the game resource resolved at draw for the edited group.
	Target     gpucore.ResourceID
	TargetDesc gpucore.ResourceDesc

	// Resource is the engine-owned preview copy.
	Resource gpucore.ResourceID
	Desc     gpucore.ResourceDesc

	// Recreate asks the present hook to recreate Resource to TargetDesc.
	Recreate bool
}

// Session is the device-wide state shared by every recording thread: the
// configured groups, the technique table, and the sets recording which
// work already ran this frame.
//
// Thread Safety:
// Two reader/writer locks guard the session. The render lock guards the
// groups, the preview and the constant data; the binding lock guards the
// bindings. Scheduling and resolution hold the read locks. Configuration
// changes hold the write locks. Executors call the Mark methods, which
// take the write lock only for the insert; callers must not hold the
// matching read lock when calling them.
//
// Lifecycle:
// The "updated" sets live for one frame. [Session.EndFrame] clears them
// and advances the frame counter.
type Session struct {
	renderMu  sync.RWMutex
	bindingMu sync.RWMutex

	groups     *group.Set
	techniques *techniques.Table

	constantsUpdated map[*group.Group]struct{}
	constants        map[*group.Group][]byte
	preview          Preview

	bindings        map[string]*Binding
	bindingsUpdated map[string]struct{}

	// effectsRendered is set once an effect rendered in the current frame.
	effectsRendered atomic.Bool

	frame      atomic.Uint64
	retryLimit int
}

// New creates an empty session. A retryLimit of zero keeps unresolved
// retry tasks queued indefinitely.
func New(retryLimit int) *Session {
	return &Session{
		groups:           group.NewSet(),
		techniques:       techniques.NewTable(),
		constantsUpdated: make(map[*group.Group]struct{}),
		constants:        make(map[*group.Group][]byte),
		bindings:         make(map[string]*Binding),
		bindingsUpdated:  make(map[string]struct{}),
		retryLimit:       retryLimit,
	}
}

// RLock acquires the render read lock.
func (s *Session) RLock() { s.renderMu.RLock() }

// RUnlock releases the render read lock.
func (s *Session) RUnlock() { s.renderMu.RUnlock() }

// Lock acquires the render write lock.
func (s *Session) Lock() { s.renderMu.Lock() }

// Unlock releases the render write lock.
func (s *Session) Unlock() { s.renderMu.Unlock() }

// RLockBindings acquires the binding read lock.
func (s *Session) RLockBindings() { s.bindingMu.RLock() }

// RUnlockBindings releases the binding read lock.
func (s *Session) RUnlockBindings() { s.bindingMu.RUnlock() }

// LockBindings acquires the binding write lock.
func (s *Session) LockBindings() { s.bindingMu.Lock() }

// UnlockBindings releases the binding write lock.
func (s *Session) UnlockBindings() { s.bindingMu.Unlock() }

// Groups returns the group set. The caller holds the render lock.
func (s *Session) Groups() *group.Set { return s.groups }

// Techniques returns the technique table. The table locks itself.
func (s *Session) Techniques() *techniques.Table { return s.techniques }

// Frame returns the number of frames presented so far.
func (s *Session) Frame() uint64 { return s.frame.Load() }

// RetryLimit returns the retry cap in frames; zero means unbounded.
func (s *Session) RetryLimit() int { return s.retryLimit }

// IsLive reports whether g is configured and active.
// The caller holds the render lock.
func (s *Session) IsLive(g *group.Group) bool { return s.groups.IsLive(g) }

// ConstantUpdated reports whether g's constants were extracted this frame.
// The caller holds the render lock.
func (s *Session) ConstantUpdated(g *group.Group) bool {
	_, ok := s.constantsUpdated[g]
	return ok
}

// MarkConstantUpdated stores the extracted constants of g.
func (s *Session) MarkConstantUpdated(g *group.Group, data []byte) {
	s.renderMu.Lock()
	s.constantsUpdated[g] = struct{}{}
	s.constants[g] = data
	s.renderMu.Unlock()
}

// Constants returns the last extracted constants of g.
func (s *Session) Constants(g *group.Group) ([]byte, bool) {
	s.renderMu.RLock()
	defer s.renderMu.RUnlock()
	data, ok := s.constants[g]
	return data, ok
}

// MarkEffectsRendered records that an effect technique rendered this frame.
func (s *Session) MarkEffectsRendered() { s.effectsRendered.Store(true) }

// EffectsRendered reports whether any effect technique rendered this frame.
func (s *Session) EffectsRendered() bool { return s.effectsRendered.Load() }

// BindingUpdated reports whether the named binding was updated this frame.
// The caller holds the binding lock.
func (s *Session) BindingUpdated(name string) bool {
	_, ok := s.bindingsUpdated[name]
	return ok
}

// MarkBindingUpdated records that the named binding was updated this frame.
func (s *Session) MarkBindingUpdated(name string) {
	s.bindingMu.Lock()
	s.bindingsUpdated[name] = struct{}{}
	s.bindingMu.Unlock()
}

// Binding returns the named binding, creating it on first use.
// The caller holds the binding write lock.
func (s *Session) Binding(name string) *Binding {
	b, ok := s.bindings[name]
	if !ok {
		b = &Binding{Name: name}
		s.bindings[name] = b
	}
	return b
}

// LookupBinding returns a copy of the named binding.
func (s *Session) LookupBinding(name string) (Binding, bool) {
	s.bindingMu.RLock()
	defer s.bindingMu.RUnlock()
	b, ok := s.bindings[name]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// Bindings returns the names of all known bindings.
// The caller holds the binding lock.
func (s *Session) Bindings() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	return names
}

// PreviewPending reports whether g is the group being previewed and no
// preview matched yet this frame. The caller holds the render lock.
func (s *Session) PreviewPending(g *group.Group) bool {
	return s.preview.Group == g && g != nil && !s.preview.Matched
}

// Preview returns a copy of the preview state.
func (s *Session) Preview() Preview {
	s.renderMu.RLock()
	defer s.renderMu.RUnlock()
	return s.preview
}

// UpdatePreview applies fn to the preview state under the write lock.
func (s *Session) UpdatePreview(fn func(p *Preview)) {
	s.renderMu.Lock()
	fn(&s.preview)
	s.renderMu.Unlock()
}

// SetPreviewGroup selects the group being previewed, or none with nil.
// The caller holds the render write lock.
func (s *Session) SetPreviewGroup(g *group.Group) {
	if s.preview.Group != g {
		s.preview.Target = gpucore.InvalidID
		s.preview.Matched = false
	}
	s.preview.Group = g
}

// ForgetGroup drops per-group data of a removed group.
// The caller holds the render write lock.
func (s *Session) ForgetGroup(g *group.Group) {
	delete(s.constantsUpdated, g)
	delete(s.constants, g)
	if s.preview.Group == g {
		s.preview.Group = nil
		s.preview.Matched = false
		s.preview.Target = gpucore.InvalidID
	}
}

// EndFrame clears the per-frame sets, resets the technique and effect
// rendered flags and advances the frame counter.
func (s *Session) EndFrame() {
	s.renderMu.Lock()
	clear(s.constantsUpdated)
	s.preview.Matched = false
	s.renderMu.Unlock()

	s.bindingMu.Lock()
	clear(s.bindingsUpdated)
	s.bindingMu.Unlock()

	s.techniques.ResetFrame()
	s.effectsRendered.Store(false)
	s.frame.Add(1)
}
