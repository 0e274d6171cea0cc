package shaderhash

import (
	"slices"
	"sync"
	"testing"

	"github.com/gogpu/shadertoggle/gpucore"
)

func TestHash(t *testing.T) {
	tests := []struct {
		in   []byte
		want uint32
	}{
		{nil, 0},
		{[]byte("123456789"), 0xcbf43926},
	}
	for _, tt := range tests {
		if got := Hash(tt.in); got != tt.want {
			t.Errorf("Hash(%q) = %#08x, want %#08x", tt.in, got, tt.want)
		}
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []uint32
	}{
		{"empty", nil, []uint32{}},
		{"short tail", []byte{0x03, 0x02, 0x23}, []uint32{}},
		{"magic and tail", []byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00, 0xff}, []uint32{0x07230203, 1}},
		{"high bytes", []byte{0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x80}, []uint32{0xffffffff, 0x80000000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Words(tt.in); !slices.Equal(got, tt.want) {
				t.Errorf("Words() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i) - 1.0;
    return vec4<f32>(x, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func TestCompileWGSL(t *testing.T) {
	spirv, hash, err := CompileWGSL(triangleWGSL)
	if err != nil {
		t.Fatalf("CompileWGSL() error = %v", err)
	}
	if words := Words(spirv); len(words) == 0 || words[0] != 0x07230203 {
		t.Fatalf("output is not SPIR-V")
	}
	if hash != Hash(spirv) {
		t.Errorf("hash = %#08x, want hash of the binary", hash)
	}
	_, again, err := CompileWGSL(triangleWGSL)
	if err != nil || again != hash {
		t.Errorf("recompile hash = %#08x (err %v), want stable %#08x", again, err, hash)
	}
}

func TestCompileWGSLError(t *testing.T) {
	if _, _, err := CompileWGSL("fn broken( {"); err == nil {
		t.Error("CompileWGSL() accepted invalid source")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(1, gpucore.ShaderStagePixel, 0xaa)
	r.Register(1, gpucore.ShaderStageVertex, 0xbb)
	r.Register(1, gpucore.ShaderStageGeometry, 0xcc)

	h, ok := r.Hashes(1)
	if !ok || h != (Hashes{Pixel: 0xaa, Vertex: 0xbb}) {
		t.Fatalf("Hashes(1) = %+v, %v", h, ok)
	}
	if h.Stage(gpucore.ShaderStageVertex) != 0xbb || h.Stage(gpucore.ShaderStageHull) != 0 {
		t.Errorf("Stage lookups = %#x, %#x", h.Stage(gpucore.ShaderStageVertex), h.Stage(gpucore.ShaderStageHull))
	}

	r.Register(2, gpucore.ShaderStageGeometry, 0xcc)
	if _, ok := r.Hashes(2); ok {
		t.Error("geometry-only pipeline registered")
	}

	r.Forget(1)
	if _, ok := r.Hashes(1); ok || r.Len() != 0 {
		t.Errorf("pipeline survived Forget, Len() = %d", r.Len())
	}
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(p gpucore.PipelineID) {
			defer wg.Done()
			r.Register(p, gpucore.ShaderStagePixel, uint32(p))
			_, _ = r.Hashes(p)
		}(gpucore.PipelineID(i + 1))
	}
	wg.Wait()
	if r.Len() != 8 {
		t.Errorf("Len() = %d, want 8", r.Len())
	}
}
