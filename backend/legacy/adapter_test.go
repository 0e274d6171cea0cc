package legacy

import (
	"errors"
	"testing"

	"github.com/gogpu/shadertoggle/backend"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/internal/fakehost"
)

func TestRegistered(t *testing.T) {
	a, err := backend.Select("", gpucore.APID3D9, backend.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Name() != backend.NameLegacy || a.Capability() != backend.CapabilityStateBlock {
		t.Errorf("selected %s/%v, want legacy/StateBlock", a.Name(), a.Capability())
	}
}

func TestCaptureApplyRelease(t *testing.T) {
	host := fakehost.New(64, 64)
	cmd := host.NewLegacyCommandList()
	_, v1 := host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	_, v2 := host.NewTexture(64, 64, gpucore.FormatR8G8B8A8Unorm)
	a := New(backend.Config{})

	if err := cmd.BindRenderTargets([]gpucore.ViewID{v1}, gpucore.InvalidID); err != nil {
		t.Fatal(err)
	}
	before := cmd.Bound()

	block, err := a.Capture(cmd)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if err := cmd.BindRenderTargets([]gpucore.ViewID{v2}, gpucore.InvalidID); err != nil {
		t.Fatal(err)
	}
	if err := a.ApplyCaptured(cmd, block); err != nil {
		t.Fatalf("ApplyCaptured: %v", err)
	}
	if !cmd.Bound().Equal(before) {
		t.Error("state after apply differs from captured state")
	}

	a.Release(cmd, block)
	if cmd.Blocks() != 0 {
		t.Errorf("Blocks() = %d after release, want 0", cmd.Blocks())
	}
	if err := a.ApplyCaptured(cmd, block); err == nil {
		t.Error("ApplyCaptured after release succeeded")
	}
}

func TestRequiresStateBlocks(t *testing.T) {
	host := fakehost.New(64, 64)
	cmd := host.NewCommandList()
	a := New(backend.Config{})

	if _, err := a.Capture(cmd); !errors.Is(err, backend.ErrUnsupported) {
		t.Errorf("Capture error = %v, want ErrUnsupported", err)
	}
	if err := a.ApplyCaptured(cmd, gpucore.InvalidID); !errors.Is(err, backend.ErrInvalidBlock) {
		t.Errorf("ApplyCaptured(invalid) error = %v, want ErrInvalidBlock", err)
	}
	a.Release(cmd, 5)
}
