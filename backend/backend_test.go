package backend

import (
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/shadertoggle/gpucore"
)

type stubAdapter struct {
	name string
	cfg  Config
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Capability() Capability { return CapabilityDescriptorReplay }

func (s *stubAdapter) Release(gpucore.CommandList, gpucore.StateBlockID) {}

func (s *stubAdapter) Capture(gpucore.CommandList) (gpucore.StateBlockID, error) {
	return gpucore.InvalidID, ErrUnsupported
}

func (s *stubAdapter) ApplyCaptured(gpucore.CommandList, gpucore.StateBlockID) error {
	return ErrUnsupported
}

func (s *stubAdapter) LayoutParam(gpucore.PipelineLayoutID, uint32) (gpucore.LayoutParam, bool) {
	return gpucore.LayoutParam{}, false
}

func (s *stubAdapter) BindDescriptorTables(gpucore.CommandList, gpucore.ShaderStage, gpucore.PipelineLayoutID, uint32, []gpucore.DescriptorTableID) error {
	return nil
}

func registerStub(t *testing.T, name string) {
	t.Helper()
	Register(name, func(cfg Config) Adapter { return &stubAdapter{name: name, cfg: cfg} })
	t.Cleanup(func() { Unregister(name) })
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		c    Capability
		want string
	}{
		{CapabilityStateBlock, "StateBlock"},
		{CapabilityDescriptorReplay, "DescriptorReplay"},
		{Capability(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("Capability(%d).String() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registerStub(t, "stub-a")

	if !IsRegistered("stub-a") {
		t.Fatal("stub-a should be registered")
	}
	a := Get("stub-a", Config{})
	if a == nil || a.Name() != "stub-a" {
		t.Fatalf("Get(stub-a) = %v", a)
	}
	if Get("missing", Config{}) != nil {
		t.Error("Get(missing) should return nil")
	}
}

func TestRegistryAvailableSorted(t *testing.T) {
	registerStub(t, "stub-z")
	registerStub(t, "stub-b")

	names := Available()
	if !slices.IsSorted(names) {
		t.Errorf("Available() = %v, not sorted", names)
	}
	if !slices.Contains(names, "stub-z") || !slices.Contains(names, "stub-b") {
		t.Errorf("Available() = %v, missing stubs", names)
	}
}

func TestRegistryPanics(t *testing.T) {
	t.Run("nil factory", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Register(nil) did not panic")
			}
		}()
		Register("stub-nil", nil)
	})

	t.Run("duplicate", func(t *testing.T) {
		registerStub(t, "stub-dup")
		defer func() {
			if recover() == nil {
				t.Error("duplicate Register did not panic")
			}
		}()
		Register("stub-dup", func(Config) Adapter { return nil })
	})
}

func TestForAPI(t *testing.T) {
	tests := []struct {
		api  gpucore.API
		want string
	}{
		{gpucore.APID3D9, NameLegacy},
		{gpucore.APID3D10, NameExplicit},
		{gpucore.APID3D11, NameExplicit},
		{gpucore.APID3D12, NameExplicit},
		{gpucore.APIOpenGL, NameExplicit},
		{gpucore.APIVulkan, NameExplicit},
		{gpucore.APIUnknown, NameExplicit},
	}
	for _, tt := range tests {
		if got := ForAPI(tt.api); got != tt.want {
			t.Errorf("ForAPI(%v) = %q, want %q", tt.api, got, tt.want)
		}
	}
}

func TestSelect(t *testing.T) {
	registerStub(t, "stub-sel")

	a, err := Select("stub-sel", gpucore.APID3D12, Config{})
	if err != nil || a.Name() != "stub-sel" {
		t.Fatalf("Select(stub-sel) = %v, %v", a, err)
	}

	_, err = Select("nope", gpucore.APID3D12, Config{})
	if err == nil || !strings.Contains(err.Error(), "forgotten import") {
		t.Errorf("Select(nope) error = %v, want forgotten import hint", err)
	}
}
