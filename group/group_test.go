package group

import (
	"errors"
	"testing"

	"github.com/gogpu/shadertoggle/gpucore"
)

func TestGroupMatches(t *testing.T) {
	g := New(1, "sky")
	g.AddHash(gpucore.ShaderStagePixel, 0xDEADBEEF)

	if !g.Matches(gpucore.ShaderStagePixel, 0xDEADBEEF) {
		t.Error("expected pixel hash to match")
	}
	if g.Matches(gpucore.ShaderStageVertex, 0xDEADBEEF) {
		t.Error("hash must not match on another stage")
	}
	g.RemoveHash(gpucore.ShaderStagePixel, 0xDEADBEEF)
	if g.HashCount(gpucore.ShaderStagePixel) != 0 {
		t.Error("RemoveHash did not remove")
	}
}

func TestGroupZeroValueAddHash(t *testing.T) {
	var g Group
	g.AddHash(gpucore.ShaderStageCompute, 7)
	if !g.Matches(gpucore.ShaderStageCompute, 7) {
		t.Error("zero-value group should accept hashes")
	}
}

func TestGroupTechniqueExceptions(t *testing.T) {
	g := New(1, "ui")
	g.PreferredTechniques = []string{"Bloom [Bloom.fx]"}

	if g.IsTechniqueExcepted("Bloom [Bloom.fx]") {
		t.Error("exceptions disabled, nothing should be excepted")
	}
	g.HasTechniqueExceptions = true
	if !g.IsTechniqueExcepted("Bloom [Bloom.fx]") {
		t.Error("listed technique should be excepted")
	}
	if g.IsTechniqueExcepted("SMAA [SMAA.fx]") {
		t.Error("unlisted technique should not be excepted")
	}
}

func TestGroupCycleRequest(t *testing.T) {
	g := New(1, "hud")
	if got := g.TakeCycle(); got != CycleNone {
		t.Fatalf("initial TakeCycle() = %d", got)
	}
	g.RequestCycle(CycleUp)
	if got := g.TakeCycle(); got != CycleUp {
		t.Errorf("TakeCycle() = %d, want CycleUp", got)
	}
	if got := g.TakeCycle(); got != CycleNone {
		t.Errorf("request should be consumed, got %d", got)
	}

	g.CommitDescriptorIndex(3)
	if got := g.Binding().Index; got != 3 {
		t.Errorf("Binding().Index = %d, want 3", got)
	}
}

func TestSetAddRemove(t *testing.T) {
	s := NewSet()
	a := New(2, "b")
	b := New(1, "a")

	if err := s.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(b); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(New(2, "dup")); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Add(dup) = %v, want ErrDuplicateID", err)
	}
	if err := s.Add(nil); !errors.Is(err, ErrNilGroup) {
		t.Errorf("Add(nil) = %v, want ErrNilGroup", err)
	}

	all := s.All()
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("All() not ordered by id: %v", all)
	}

	if got := s.Remove(2); got != a {
		t.Error("Remove returned wrong group")
	}
	if s.Remove(2) != nil {
		t.Error("second Remove should return nil")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSetIsLive(t *testing.T) {
	s := NewSet()
	g := New(1, "g")
	_ = s.Add(g)

	if s.IsLive(g) {
		t.Error("inactive group should not be live")
	}
	g.Active = true
	if !s.IsLive(g) {
		t.Error("active group in set should be live")
	}

	// A different object reusing the id is not the queued group.
	s.Remove(1)
	_ = s.Add(New(1, "g"))
	if s.IsLive(g) {
		t.Error("replaced group should not be live")
	}
	if s.IsLive(nil) {
		t.Error("nil should not be live")
	}
}

func TestSetMatching(t *testing.T) {
	s := NewSet()
	on := New(1, "on")
	on.Active = true
	on.AddHash(gpucore.ShaderStagePixel, 42)
	off := New(2, "off")
	off.AddHash(gpucore.ShaderStagePixel, 42)
	_ = s.Add(on)
	_ = s.Add(off)

	got := s.Matching(gpucore.ShaderStagePixel, 42)
	if len(got) != 1 || got[0] != on {
		t.Errorf("Matching() = %v, want only active group", got)
	}
}

func TestSetSortedNames(t *testing.T) {
	s := NewSet()
	_ = s.Add(New(1, "beta"))
	_ = s.Add(New(2, "Alpha"))
	_ = s.Add(New(3, "gamma"))

	got := s.SortedNames()
	want := []string{"Alpha", "beta", "gamma"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortedNames() = %v, want %v", got, want)
		}
	}
}
