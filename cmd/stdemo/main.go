// Command stdemo drives a shadertoggle engine through synthetic frames on
// an in-memory host and prints the engine counters.
//
// Each frame binds a scene target, then binds and draws one pipeline per
// toggle group. Pipelines are compiled from WGSL and identified by the hash
// of their SPIR-V. Groups cycle through three policies: effects at draw, a
// copied and flipped texture binding, and hidden draws. With -pass the
// frames are recorded into gogpu/wgpu render passes on the noop HAL device
// instead of the in-memory command list. With -out the preview of the
// first group is written as a downscaled PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/image/draw"

	"github.com/gogpu/shadertoggle"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/internal/fakehost"
	"github.com/gogpu/shadertoggle/shaderhash"
	"github.com/gogpu/shadertoggle/techniques"
)

const (
	width  = 320
	height = 180
)

var effects = []string{"Bloom [Bloom.fx]", "Tint [Tint.fx]", techniques.Flip}

// pixelShader is the WGSL of the pipeline drawn for one group. The red
// channel differs per group so every pipeline hashes differently.
const pixelShader = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i) - 1.0;
    return vec4<f32>(x, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(%.6f, 0.5, 0.25, 1.0);
}
`

func main() {
	var (
		frames  = flag.Int("frames", 3, "number of frames to record")
		groups  = flag.Int("groups", 3, "number of toggle groups")
		retry   = flag.Int("retry", 3, "frames an unresolved retrying task stays queued (0: unlimited)")
		out     = flag.String("out", "", "write a thumbnail of the preview texture to this PNG file")
		pass    = flag.Bool("pass", false, "record through gogpu/wgpu render passes on the noop HAL device")
		verbose = flag.Bool("v", false, "log engine decisions to stderr")
	)
	flag.Parse()

	if *verbose {
		shadertoggle.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	host := fakehost.New(width, height)
	e, err := shadertoggle.New(
		shadertoggle.WithAPI(gpucore.APID3D12),
		shadertoggle.WithDevice(host),
		shadertoggle.WithEffectRuntime(host),
		shadertoggle.WithViewProvider(host),
		shadertoggle.WithConstantSource(host),
		shadertoggle.WithRetryLimit(*retry),
	)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	e.SetTechniques(effects)
	for _, name := range effects[:2] {
		if err := e.SetTechniqueEnabled(name, true); err != nil {
			log.Fatal(err)
		}
	}

	var rec recorder = newFakeRecorder(host)
	if *pass {
		rec = newPassRecorder()
	}

	pipelines, err := addGroups(e, rec, *groups)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("groups:            %s\n", strings.Join(e.GroupNames(), ", "))
	fmt.Printf("techniques:        %s\n", strings.Join(e.TechniqueNames(), ", "))
	if *groups > 0 {
		if err := e.SetPreviewGroup(0); err != nil {
			log.Fatal(err)
		}
	}

	scene, sceneRTV := host.NewTexture(width, height, gpucore.FormatR8G8B8A8Unorm)
	back, _ := host.NewTexture(width, height, gpucore.FormatR8G8B8A8Unorm)
	e.OnCommandListCreated(rec)

	for f := range *frames {
		host.Fill(scene, color.RGBA{R: uint8(40 * f), G: 96, B: 160, A: 255})
		if err := recordFrame(e, rec, sceneRTV, pipelines); err != nil {
			log.Fatalf("Frame %d: %v", f, err)
		}
		e.OnPresent(rec, back)
	}

	st := e.Stats()
	fmt.Printf("frames:            %d\n", st.Frame)
	fmt.Printf("group count:       %d\n", st.Groups)
	fmt.Printf("pipelines:         %d\n", st.Pipelines)
	fmt.Printf("effect batches:    %d\n", st.EffectsRendered)
	fmt.Printf("bindings injected: %d\n", st.BindingsInjected)
	fmt.Printf("previews copied:   %d\n", st.PreviewsCopied)
	fmt.Printf("draws blocked:     %d\n", st.DrawsBlocked)
	fmt.Printf("technique renders: %d\n", len(host.Renders()))

	if *out != "" {
		if err := writeThumbnail(host, e.Preview().Resource, *out); err != nil {
			log.Fatalf("Failed to write thumbnail: %v", err)
		}
		log.Printf("Preview thumbnail saved to %s\n", *out)
	}
}

// addGroups compiles one pipeline per group, registers its SPIR-V with
// the engine and adds a group matching its hash.
func addGroups(e *shadertoggle.Engine, rec recorder, n int) ([]gpucore.PipelineID, error) {
	pipelines := make([]gpucore.PipelineID, n)
	for i := range pipelines {
		label := fmt.Sprintf("group %d", i)
		spirv, _, err := shaderhash.CompileWGSL(fmt.Sprintf(pixelShader, float64(i+1)/float64(n+1)))
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", label, err)
		}
		if pipelines[i], err = rec.newPipeline(label, spirv); err != nil {
			return nil, err
		}
		hash := e.OnInitPipeline(pipelines[i], gpucore.InvalidID, gpucore.ShaderStagePixel, spirv)
		if err := e.AddGroup(newGroup(uint32(i), hash)); err != nil {
			return nil, err
		}
	}
	return pipelines, nil
}

// newGroup returns an active group matching hash with one of three
// policies.
func newGroup(id, hash uint32) *group.Group {
	g := group.New(id, fmt.Sprintf("Group %d", id))
	g.Active = true
	g.AddHash(gpucore.ShaderStagePixel, hash)
	switch id % 3 {
	case 0:
		g.PreferredTechniques = []string{effects[0]}
		g.ToneMap = true
	case 1:
		g.TextureBindingName = fmt.Sprintf("Scene%d", id)
		g.CopyTextureBinding = true
		g.FlipBinding = true
		g.ClearBindingOnMiss = true
		g.BindingInvocation = group.LocationBindRenderTarget
	case 2:
		g.HideDraws = true
	}
	return g
}

// recordFrame records one frame, calling each engine hook before the
// matching command list call like an interception layer does.
func recordFrame(e *shadertoggle.Engine, cmd recorder, rtv gpucore.ViewID, pipelines []gpucore.PipelineID) error {
	e.OnCommandListReset(cmd)
	if err := cmd.begin(); err != nil {
		return err
	}

	rtvs := []gpucore.ViewID{rtv}
	e.OnBindRenderTargets(cmd, rtvs, gpucore.InvalidID)
	if err := cmd.bindTargets(rtvs); err != nil {
		return err
	}
	viewports := []gpucore.Viewport{{Width: width, Height: height, MaxDepth: 1}}
	e.OnBindViewports(cmd, 0, viewports)
	if err := cmd.BindViewports(0, viewports); err != nil {
		return err
	}

	for _, p := range pipelines {
		e.OnBindPipeline(cmd, gpucore.PipelineStageAllGraphics, p)
		if err := cmd.BindPipeline(gpucore.PipelineStageAllGraphics, p); err != nil {
			return err
		}
		if e.OnDraw(cmd) {
			continue
		}
		if err := cmd.Draw(3, 1, 0, 0); err != nil {
			return err
		}
	}

	// The final target change fires render-target invocations.
	e.OnBindRenderTargets(cmd, nil, gpucore.InvalidID)
	if err := cmd.bindTargets(nil); err != nil {
		return err
	}
	return cmd.end()
}

func writeThumbnail(host *fakehost.Host, res gpucore.ResourceID, path string) error {
	src, ok := host.Image(res)
	if !ok {
		return errors.New("no preview texture")
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/4, b.Dy()/4))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, dst); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
