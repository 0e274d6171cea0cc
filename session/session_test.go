// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package session

import (
	"sync"
	"testing"

	"github.com/gogpu/shadertoggle/group"
)

func TestEndFrameClearsUpdatedSets(t *testing.T) {
	s := New(DefaultRetryLimit)
	g := group.New(1, "g")

	s.MarkConstantUpdated(g, []byte{1, 2})
	s.MarkBindingUpdated("tex")
	s.Techniques().Load([]string{"A [a.fx]"})
	_ = s.Techniques().SetEnabled("A [a.fx]", true)
	s.Techniques().MarkRendered("A [a.fx]")
	s.MarkEffectsRendered()

	s.RLock()
	if !s.ConstantUpdated(g) {
		t.Error("constant should be marked updated")
	}
	s.RUnlock()
	s.RLockBindings()
	if !s.BindingUpdated("tex") {
		t.Error("binding should be marked updated")
	}
	s.RUnlockBindings()

	s.EndFrame()

	if s.Frame() != 1 {
		t.Errorf("Frame() = %d, want 1", s.Frame())
	}
	s.RLock()
	if s.ConstantUpdated(g) {
		t.Error("EndFrame should clear constants updated")
	}
	s.RUnlock()
	s.RLockBindings()
	if s.BindingUpdated("tex") {
		t.Error("EndFrame should clear bindings updated")
	}
	s.RUnlockBindings()
	if s.Techniques().Rendered("A [a.fx]") {
		t.Error("EndFrame should reset rendered flags")
	}
	if s.EffectsRendered() {
		t.Error("EndFrame should reset the effects rendered flag")
	}
	if data, ok := s.Constants(g); !ok || len(data) != 2 {
		t.Error("extracted constants should survive the frame")
	}
}

func TestPreviewPending(t *testing.T) {
	s := New(0)
	g := group.New(1, "g")
	other := group.New(2, "o")

	s.Lock()
	s.SetPreviewGroup(g)
	s.Unlock()

	s.RLock()
	pending, otherPending := s.PreviewPending(g), s.PreviewPending(other)
	s.RUnlock()
	if !pending || otherPending {
		t.Fatalf("PreviewPending = %v/%v, want true/false", pending, otherPending)
	}

	s.UpdatePreview(func(p *Preview) { p.Matched = true })
	s.RLock()
	pending = s.PreviewPending(g)
	s.RUnlock()
	if pending {
		t.Error("matched preview should not be pending")
	}

	s.EndFrame()
	if s.Preview().Matched {
		t.Error("EndFrame should reset preview match")
	}

	s.Lock()
	s.ForgetGroup(g)
	s.Unlock()
	if s.Preview().Group != nil {
		t.Error("ForgetGroup should clear the preview group")
	}
}

func TestBindingCreatedOnce(t *testing.T) {
	s := New(0)
	s.LockBindings()
	a := s.Binding("tex")
	b := s.Binding("tex")
	s.UnlockBindings()
	if a != b {
		t.Error("Binding should return the same object")
	}
	if _, ok := s.LookupBinding("tex"); !ok {
		t.Error("LookupBinding should find the binding")
	}
	if _, ok := s.LookupBinding("missing"); ok {
		t.Error("LookupBinding found a missing binding")
	}
}

func TestSessionConcurrentMarks(t *testing.T) {
	s := New(0)
	g := group.New(1, "g")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RLock()
				_ = s.ConstantUpdated(g)
				s.RUnlock()
				s.MarkConstantUpdated(g, nil)
				s.MarkBindingUpdated("tex")
			}
		}()
	}
	wg.Wait()
	s.EndFrame()
}
