package executor

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/schedule"
	"github.com/gogpu/shadertoggle/session"
)

// Previews copies the target of the group being edited into the
// engine-owned preview texture.
type Previews struct{}

// Kind implements Executor.
func (Previews) Kind() schedule.Kind { return schedule.KindPreview }

// Execute implements Executor.
func (Previews) Execute(ctx *Context, site schedule.CallSite) bool {
	ctx.Session.RLock()
	keys := dequeue(ctx, schedule.KindPreview, site, previewQueue)
	var (
		target  gpucore.ViewID
		pending bool
	)
	for stage := schedule.Stage(0); stage < schedule.NumStages && target == gpucore.InvalidID; stage++ {
		for _, g := range keys[stage] {
			e, ok := ctx.State.Stages[stage].Previews.Get(g)
			if ok && ctx.Session.PreviewPending(g) {
				target, pending = e.Target.View, true
				break
			}
		}
	}
	ctx.Session.RUnlock()

	copied := false
	if pending {
		copied = copyPreview(ctx, target)
	}
	remove(ctx, schedule.KindPreview, previewQueue, keys)
	return copied
}

// copyPreview copies the resource behind view into the preview texture,
// or asks for the preview to be recreated when the shapes differ.
func copyPreview(ctx *Context, view gpucore.ViewID) bool {
	res := ctx.Device.ResourceFromView(view)
	if res == gpucore.InvalidID {
		return false
	}
	desc, ok := ctx.Device.ResourceDesc(res)
	if !ok {
		return false
	}

	p := ctx.Session.Preview()
	compatible := p.Resource != gpucore.InvalidID && p.Desc.SameShape(desc)
	copied := false
	if compatible {
		if err := ctx.Cmd.CopyResource(res, p.Resource); err != nil {
			slogger().Warn("executor: preview copy failed", "err", err)
		} else {
			copied = true
		}
	}

	ctx.Session.UpdatePreview(func(p *session.Preview) {
		p.Target = res
		p.TargetDesc = desc
		p.Matched = true
		if !compatible {
			p.Recreate = true
		}
	})
	return copied
}

// RecreatePreview recreates the preview texture with the shape of the
// last matched target when a copy found it incompatible. It returns true
// when a new texture was created.
func RecreatePreview(ctx *Context) bool {
	p := ctx.Session.Preview()
	if !p.Recreate {
		return false
	}
	return replacePreview(ctx, p.Resource, p.TargetDesc)
}

// InitPreview creates the preview texture for g at the given size and
// format, replacing any previous one. A nil g only destroys it.
func InitPreview(ctx *Context, g *group.Group, width, height uint32, format gpucore.Format) bool {
	p := ctx.Session.Preview()
	if g == nil || width == 0 || height == 0 {
		replacePreview(ctx, p.Resource, gpucore.ResourceDesc{})
		return false
	}
	return replacePreview(ctx, p.Resource, gpucore.ResourceDesc{
		Size:   gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		Levels: 1,
		Format: format,
	})
}

func replacePreview(ctx *Context, old gpucore.ResourceID, desc gpucore.ResourceDesc) bool {
	if old != gpucore.InvalidID {
		ctx.waitIdle()
		ctx.Views.Release(old)
		ctx.Device.DestroyResource(old)
	}

	var res gpucore.ResourceID
	if desc.Size.Width != 0 && desc.Size.Height != 0 {
		var err error
		res, err = ctx.Device.CreateTexture(desc)
		if err != nil {
			slogger().Warn("executor: preview recreation failed", "err", err)
			res, desc = gpucore.InvalidID, gpucore.ResourceDesc{}
		}
	}

	ctx.Session.UpdatePreview(func(p *session.Preview) {
		p.Resource = res
		p.Desc = desc
		p.Recreate = false
	})
	return res != gpucore.InvalidID
}

// ClearStalePreview clears the preview texture when the edited group
// matched nothing this frame, so the preview does not show an old frame.
func ClearStalePreview(ctx *Context) bool {
	p := ctx.Session.Preview()
	if p.Group == nil || p.Matched || p.Resource == gpucore.InvalidID || ctx.Cmd == nil {
		return false
	}
	views, err := ctx.Views.RenderTargetViews(p.Resource)
	if err != nil || !views.IsValid() {
		return false
	}
	if err := ctx.Cmd.ClearRenderTargetView(views.Linear, gputypes.Color{}); err != nil {
		slogger().Debug("executor: preview clear failed", "err", err)
		return false
	}
	return true
}
