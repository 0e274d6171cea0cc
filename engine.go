// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shadertoggle

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/shadertoggle/backend"
	_ "github.com/gogpu/shadertoggle/backend/explicit" // descriptor replay adapter
	_ "github.com/gogpu/shadertoggle/backend/legacy"   // state block adapter
	"github.com/gogpu/shadertoggle/cache"
	"github.com/gogpu/shadertoggle/executor"
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
	"github.com/gogpu/shadertoggle/internal/descriptor"
	"github.com/gogpu/shadertoggle/recording"
	"github.com/gogpu/shadertoggle/resolve"
	"github.com/gogpu/shadertoggle/schedule"
	"github.com/gogpu/shadertoggle/session"
	"github.com/gogpu/shadertoggle/shaderhash"
)

// IndirectCommand is the kind of an indirect draw or dispatch.
type IndirectCommand uint8

// Indirect commands. Only the first four can be blocked.
const (
	IndirectUnknown IndirectCommand = iota
	IndirectDraw
	IndirectDrawIndexed
	IndirectDispatch
	IndirectDispatchMesh
	IndirectDispatchRays
)

func (c IndirectCommand) blockable() bool {
	return c <= IndirectDispatch
}

// Engine is the per-device toggle session: it receives the host's
// interception callbacks, matches bound pipelines against toggle groups
// and runs the queued effect, binding, constant and preview work at the
// right point of each command list.
//
// Callbacks are pre-call hooks: the host invokes them before forwarding
// the intercepted call to the driver. A command list's callbacks must come
// from the thread recording it; different command lists may record
// concurrently. Configuration methods may be called from any goroutine.
type Engine struct {
	sess      *session.Session
	adapter   backend.Adapter
	tables    *descriptor.Tracker
	resolver  *resolve.Resolver
	hashes    *shaderhash.Registry
	executors []executor.Executor
	buffers   *executor.GroupBuffers

	device        gpucore.Device
	runtime       gpucore.EffectRuntime
	views         gpucore.ViewProvider
	constants     executor.ConstantSource
	waitIdle      func()
	previewFormat gpucore.Format

	lists   *cache.Sharded[gpucore.CommandListID, *commandList]
	layouts *cache.Sharded[gpucore.PipelineID, gpucore.PipelineLayoutID]

	executed     [4]atomic.Uint64
	drawsBlocked atomic.Uint64
}

// commandList is the engine data attached to one recording stream.
type commandList struct {
	ctx *executor.Context

	// pipelines holds the pipeline bound on each queue stage, or
	// InvalidID when the bound shader is unknown.
	pipelines [schedule.NumStages]gpucore.PipelineID

	// hide is set while a bound pipeline matches an active group with
	// HideDraws.
	hide bool
}

// New creates an engine. It selects the state capture adapter once;
// every command list of the device shares it.
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	tables := descriptor.New(o.device)
	adapter, err := backend.Select(o.backend, o.api, backend.Config{Layouts: tables})
	if err != nil {
		return nil, fmt.Errorf("shadertoggle: %w", err)
	}

	e := &Engine{
		sess:          session.New(o.retryLimit),
		adapter:       adapter,
		tables:        tables,
		resolver:      resolve.New(o.device, o.runtime.ScreenshotSize),
		hashes:        shaderhash.NewRegistry(),
		executors:     executor.All(),
		buffers:       executor.NewGroupBuffers(),
		device:        o.device,
		runtime:       o.runtime,
		views:         o.views,
		constants:     o.constants,
		waitIdle:      o.waitIdle(),
		previewFormat: o.resolvedPreviewFormat(),
		lists:         cache.NewSharded[gpucore.CommandListID, *commandList](cache.Handle[gpucore.CommandListID]()),
		layouts:       cache.NewSharded[gpucore.PipelineID, gpucore.PipelineLayoutID](cache.Handle[gpucore.PipelineID]()),
	}
	Logger().Info("shadertoggle: engine created",
		"api", o.api, "adapter", adapter.Name(), "capability", adapter.Capability(),
		"retryLimit", o.retryLimit, "previewFormat", e.previewFormat.GPUTypes())
	return e, nil
}

// Adapter returns the selected state capture adapter.
func (e *Engine) Adapter() backend.Adapter { return e.adapter }

// Session returns the shared session. Hosts use it for read access to
// groups and techniques; mutations go through Engine methods.
func (e *Engine) Session() *session.Session { return e.sess }

func (e *Engine) newContext(cmd gpucore.CommandList) *executor.Context {
	return &executor.Context{
		Cmd:       cmd,
		State:     schedule.NewCommandListState(),
		Tracker:   recording.NewTracker(e.tables),
		Resolver:  e.resolver,
		Adapter:   e.adapter,
		Session:   e.sess,
		Runtime:   e.runtime,
		Views:     e.views,
		Device:    e.device,
		Constants: e.constants,
		WaitIdle:  e.waitIdle,
		Buffers:   e.buffers,
	}
}

// deviceContext returns a context without a command list, for work that
// only touches device objects.
func (e *Engine) deviceContext() *executor.Context {
	return e.newContext(nil)
}

// list returns the data of cmd, creating it for command lists the host
// did not announce.
func (e *Engine) list(cmd gpucore.CommandList) *commandList {
	return e.lists.GetOrCreate(cmd.ID(), func() *commandList {
		return &commandList{ctx: e.newContext(cmd)}
	})
}

// fire runs every executor with outstanding work at site.
func (e *Engine) fire(l *commandList, site schedule.CallSite) {
	if l.ctx.State.Mask.Segment(site) == 0 {
		return
	}
	for _, x := range e.executors {
		if x.Execute(l.ctx, site) {
			e.executed[x.Kind()].Add(1)
		}
	}
}

// AddGroup adds a toggle group. The group must not be mutated afterwards
// except through Engine methods.
func (e *Engine) AddGroup(g *group.Group) error {
	e.sess.Lock()
	defer e.sess.Unlock()
	if err := e.sess.Groups().Add(g); err != nil {
		return fmt.Errorf("shadertoggle: add group: %w", err)
	}
	return nil
}

// RemoveGroup removes the group with id and destroys its group buffer.
// Tasks it queued are dropped at their next resolution attempt.
func (e *Engine) RemoveGroup(id uint32) error {
	e.sess.Lock()
	g := e.sess.Groups().Remove(id)
	if g != nil {
		e.sess.ForgetGroup(g)
	}
	e.sess.Unlock()
	if g == nil {
		return ErrUnknownGroup
	}
	e.buffers.Remove(e.deviceContext(), g)
	return nil
}

// SetGroupActive toggles the group with id.
func (e *Engine) SetGroupActive(id uint32, active bool) error {
	return e.updateGroup(id, func(g *group.Group) { g.Active = active })
}

// UpdateGroup applies fn to the group with id under the configuration
// lock. Use it to edit hashes or policy of a configured group.
func (e *Engine) UpdateGroup(id uint32, fn func(g *group.Group)) error {
	return e.updateGroup(id, fn)
}

func (e *Engine) updateGroup(id uint32, fn func(g *group.Group)) error {
	e.sess.Lock()
	defer e.sess.Unlock()
	g, ok := e.sess.Groups().Get(id)
	if !ok {
		return ErrUnknownGroup
	}
	fn(g)
	return nil
}

// GroupNames returns the names of the configured groups in
// case-insensitive collation order.
func (e *Engine) GroupNames() []string {
	e.sess.RLock()
	defer e.sess.RUnlock()
	return e.sess.Groups().SortedNames()
}

// TechniqueNames returns the loaded techniques, reserved ones excluded, in
// case-insensitive collation order.
func (e *Engine) TechniqueNames() []string {
	return e.sess.Techniques().SortedNames()
}

// SetTechniques replaces the technique table with the runtime's
// techniques in render order. Keys use the "technique [effect.fx]" form.
func (e *Engine) SetTechniques(names []string) {
	e.sess.Lock()
	e.sess.Techniques().Load(names)
	e.sess.Unlock()
}

// SetTechniqueEnabled enables or disables a loaded technique.
func (e *Engine) SetTechniqueEnabled(name string, enabled bool) error {
	e.sess.Lock()
	defer e.sess.Unlock()
	if err := e.sess.Techniques().SetEnabled(name, enabled); err != nil {
		return fmt.Errorf("shadertoggle: %w", err)
	}
	return nil
}

// ReorderTechniques changes the render order.
func (e *Engine) ReorderTechniques(names []string) error {
	e.sess.Lock()
	defer e.sess.Unlock()
	if err := e.sess.Techniques().Reorder(names); err != nil {
		return fmt.Errorf("shadertoggle: %w", err)
	}
	return nil
}

// SetPreviewGroup starts previewing the target of the group with id. The
// preview texture is created at the runtime's back buffer size and is
// recreated on the first frame whose target has a different shape.
func (e *Engine) SetPreviewGroup(id uint32) error {
	e.sess.Lock()
	g, ok := e.sess.Groups().Get(id)
	if ok {
		e.sess.SetPreviewGroup(g)
	}
	e.sess.Unlock()
	if !ok {
		return ErrUnknownGroup
	}

	w, h := e.runtime.ScreenshotSize()
	executor.InitPreview(e.deviceContext(), g, w, h, e.previewFormat)
	return nil
}

// ClearPreviewGroup stops previewing and destroys the preview texture.
func (e *Engine) ClearPreviewGroup() {
	e.sess.Lock()
	e.sess.SetPreviewGroup(nil)
	e.sess.Unlock()
	executor.InitPreview(e.deviceContext(), nil, 0, 0, e.previewFormat)
}

// OnInitPipelineLayout records the parameters of a new pipeline layout.
func (e *Engine) OnInitPipelineLayout(layout gpucore.PipelineLayoutID, params []gpucore.LayoutParam) {
	if err := e.tables.RegisterLayout(layout, params); err != nil {
		Logger().Debug("shadertoggle: layout not registered", "layout", layout, "err", err)
	}
}

// OnDestroyPipelineLayout forgets a pipeline layout.
func (e *Engine) OnDestroyPipelineLayout(layout gpucore.PipelineLayoutID) {
	e.tables.UnregisterLayout(layout)
}

// OnInitPipeline records the shader of one stage of a new pipeline and
// returns its hash. Hosts call it once per shader stage. Empty binaries
// are ignored and return 0.
func (e *Engine) OnInitPipeline(pipeline gpucore.PipelineID, layout gpucore.PipelineLayoutID, stage gpucore.ShaderStage, binary []byte) uint32 {
	e.layouts.Set(pipeline, layout)

	if len(binary) == 0 {
		return 0
	}
	hash := shaderhash.Hash(binary)
	e.hashes.Register(pipeline, stage, hash)
	Logger().Debug("shadertoggle: pipeline shader", "pipeline", pipeline, "stage", stage, "hash", hash)
	return hash
}

// OnDestroyPipeline forgets a destroyed pipeline.
func (e *Engine) OnDestroyPipeline(pipeline gpucore.PipelineID) {
	e.hashes.Forget(pipeline)
	e.layouts.Delete(pipeline)
}

// OnCommandListCreated attaches engine data to a new command list.
func (e *Engine) OnCommandListCreated(cmd gpucore.CommandList) {
	e.list(cmd)
}

// OnCommandListDestroyed drops the data of cmd.
func (e *Engine) OnCommandListDestroyed(cmd gpucore.CommandList) {
	e.lists.Delete(cmd.ID())
}

// OnCommandListReset empties the queues and the tracked state of cmd
// before it records again.
func (e *Engine) OnCommandListReset(cmd gpucore.CommandList) {
	l := e.list(cmd)
	l.ctx.State.Reset()
	l.ctx.Tracker.Reset()
	l.pipelines = [schedule.NumStages]gpucore.PipelineID{}
	l.hide = false
}

// OnBindPipeline runs the tasks waiting for a pipeline change, drops the
// tasks the change made obsolete, then schedules the work of the groups
// matching the new pipeline.
func (e *Engine) OnBindPipeline(cmd gpucore.CommandList, stages gpucore.PipelineStage, pipeline gpucore.PipelineID) {
	l := e.list(cmd)
	e.fire(l, schedule.CallBindPipeline)

	hashes, known := e.hashes.Hashes(pipeline)
	shaders := stages.ShaderStages()
	var change schedule.Mask
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		ss := stage.ShaderStage()
		if !shaders.Has(ss) {
			continue
		}
		change |= schedule.StageMask(stage)
		if known && hashes.Stage(ss) != 0 {
			l.pipelines[stage] = pipeline
		} else {
			l.pipelines[stage] = gpucore.InvalidID
		}
	}
	if change != 0 {
		if n := schedule.Invalidate(l.ctx.State, schedule.CallBindPipeline, change); n > 0 {
			Logger().Debug("shadertoggle: tasks invalidated", "cmd", cmd.ID(), "site", schedule.CallBindPipeline, "count", n)
		}
	}

	layout, _ := e.layouts.Get(pipeline)
	l.ctx.Tracker.BindPipeline(stages, pipeline, layout)

	if change == 0 {
		return
	}
	e.sess.RLock()
	e.sess.RLockBindings()
	e.refreshBlocked(l)
	schedule.CheckCallForCommandList(l.ctx.State, e.sess)
	e.sess.RUnlockBindings()
	e.sess.RUnlock()
}

// refreshBlocked recomputes the groups matching the bound pipelines.
// The caller holds the render read lock.
func (e *Engine) refreshBlocked(l *commandList) {
	hide := false
	for stage := schedule.Stage(0); stage < schedule.NumStages; stage++ {
		st := &l.ctx.State.Stages[stage]
		st.Blocked = nil
		p := l.pipelines[stage]
		if p == gpucore.InvalidID {
			continue
		}
		hashes, ok := e.hashes.Hashes(p)
		if !ok {
			continue
		}
		ss := stage.ShaderStage()
		st.Blocked = e.sess.Groups().Matching(ss, hashes.Stage(ss))
		for _, g := range st.Blocked {
			hide = hide || g.HideDraws
		}
	}
	l.hide = hide
}

// OnBindRenderTargets runs the tasks waiting for a render target change
// and drops resolved ones that pointed at the outgoing targets.
func (e *Engine) OnBindRenderTargets(cmd gpucore.CommandList, rtvs []gpucore.ViewID, dsv gpucore.ViewID) {
	l := e.list(cmd)
	e.fire(l, schedule.CallBindRenderTarget)
	if n := schedule.Invalidate(l.ctx.State, schedule.CallBindRenderTarget, schedule.MatchAll); n > 0 {
		Logger().Debug("shadertoggle: tasks invalidated", "cmd", cmd.ID(), "site", schedule.CallBindRenderTarget, "count", n)
	}
	l.ctx.Tracker.BindRenderTargets(rtvs, dsv)
}

// OnDraw runs the tasks due at draw and reports whether the host should
// skip the draw.
func (e *Engine) OnDraw(cmd gpucore.CommandList) bool {
	return e.draw(cmd, true)
}

// OnDrawIndexed is OnDraw for indexed draws.
func (e *Engine) OnDrawIndexed(cmd gpucore.CommandList) bool {
	return e.draw(cmd, true)
}

// OnDrawOrDispatchIndirect is OnDraw for indirect commands. Mesh and ray
// dispatches are never blocked.
func (e *Engine) OnDrawOrDispatchIndirect(cmd gpucore.CommandList, kind IndirectCommand) bool {
	return e.draw(cmd, kind.blockable())
}

func (e *Engine) draw(cmd gpucore.CommandList, blockable bool) bool {
	l := e.list(cmd)
	e.fire(l, schedule.CallDraw)
	if blockable && l.hide {
		e.drawsBlocked.Add(1)
		return true
	}
	return false
}

// OnBindDescriptorTables tracks bound descriptor tables.
func (e *Engine) OnBindDescriptorTables(cmd gpucore.CommandList, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, first uint32, tables []gpucore.DescriptorTableID) {
	e.list(cmd).ctx.Tracker.BindDescriptorTables(stages, layout, first, tables)
}

// OnPushDescriptors tracks pushed descriptors.
func (e *Engine) OnPushDescriptors(cmd gpucore.CommandList, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param uint32, update gpucore.TableUpdate) {
	e.list(cmd).ctx.Tracker.PushDescriptors(stages, layout, param, update)
}

// OnPushConstants tracks pushed constants.
func (e *Engine) OnPushConstants(cmd gpucore.CommandList, stages gpucore.ShaderStage, layout gpucore.PipelineLayoutID, param, first uint32, values []uint32) {
	e.list(cmd).ctx.Tracker.PushConstants(stages, layout, param, first, values)
}

// OnBindDynamicState tracks dynamic pipeline states.
func (e *Engine) OnBindDynamicState(cmd gpucore.CommandList, states []gpucore.DynamicState, values []uint32) {
	e.list(cmd).ctx.Tracker.BindPipelineStates(states, values)
}

// OnBindViewports tracks viewports.
func (e *Engine) OnBindViewports(cmd gpucore.CommandList, first uint32, viewports []gpucore.Viewport) {
	e.list(cmd).ctx.Tracker.BindViewports(first, viewports)
}

// OnBindScissorRects tracks scissor rectangles.
func (e *Engine) OnBindScissorRects(cmd gpucore.CommandList, first uint32, rects []gpucore.Rect) {
	e.list(cmd).ctx.Tracker.BindScissorRects(first, rects)
}

// OnUpdateDescriptorTables mirrors descriptor writes.
func (e *Engine) OnUpdateDescriptorTables(updates []gpucore.TableUpdate) {
	if err := e.tables.UpdateTables(updates); err != nil {
		Logger().Debug("shadertoggle: descriptor update not tracked", "err", err)
	}
}

// OnCopyDescriptorTables mirrors descriptor copies.
func (e *Engine) OnCopyDescriptorTables(copies []gpucore.TableCopy) {
	if err := e.tables.CopyTables(copies); err != nil {
		Logger().Debug("shadertoggle: descriptor copy not tracked", "err", err)
	}
}

// OnPresent ends the frame. cmd is the command list presenting and
// backBuffer the resource being presented; InvalidID skips rendering the
// techniques that no group rendered this frame.
func (e *Engine) OnPresent(cmd gpucore.CommandList, backBuffer gpucore.ResourceID) {
	ctx := e.list(cmd).ctx

	if n := executor.ClearUnmatched(ctx); n > 0 {
		Logger().Debug("shadertoggle: bindings cleared", "count", n)
	}
	executor.ClearStalePreview(ctx)
	if executor.RenderRemaining(ctx, backBuffer) {
		e.executed[schedule.KindEffect].Add(1)
	}
	if executor.RecreatePreview(ctx) {
		p := e.sess.Preview()
		Logger().Debug("shadertoggle: preview recreated",
			"width", p.Desc.Size.Width, "height", p.Desc.Size.Height, "format", p.Desc.Format.GPUTypes())
	}
	if created, destroyed := e.buffers.Check(ctx); created+destroyed > 0 {
		Logger().Debug("shadertoggle: group buffers updated", "created", created, "destroyed", destroyed)
	}
	e.sess.EndFrame()
}

// ConstantData returns the constants last extracted for the group with id.
func (e *Engine) ConstantData(id uint32) ([]byte, bool) {
	e.sess.RLock()
	g, ok := e.sess.Groups().Get(id)
	e.sess.RUnlock()
	if !ok {
		return nil, false
	}
	return e.sess.Constants(g)
}

// Binding returns the state of a named texture binding.
func (e *Engine) Binding(name string) (session.Binding, bool) {
	return e.sess.LookupBinding(name)
}

// Preview returns the preview state.
func (e *Engine) Preview() session.Preview {
	return e.sess.Preview()
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Frame        uint64
	CommandLists int
	Pipelines    int
	Groups       int
	Techniques   int
	GroupBuffers int

	// Executions counts executor runs that did GPU work, by task kind.
	EffectsRendered  uint64
	BindingsInjected uint64
	ConstantsCopied  uint64
	PreviewsCopied   uint64

	DrawsBlocked uint64
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	e.sess.RLock()
	groups := e.sess.Groups().Len()
	techs := e.sess.Techniques().Len()
	e.sess.RUnlock()

	return Stats{
		Frame:            e.sess.Frame(),
		CommandLists:     e.lists.Len(),
		Pipelines:        e.hashes.Len(),
		Groups:           groups,
		Techniques:       techs,
		GroupBuffers:     e.buffers.Len(),
		EffectsRendered:  e.executed[schedule.KindEffect].Load(),
		BindingsInjected: e.executed[schedule.KindBinding].Load(),
		ConstantsCopied:  e.executed[schedule.KindConstant].Load(),
		PreviewsCopied:   e.executed[schedule.KindPreview].Load(),
		DrawsBlocked:     e.drawsBlocked.Load(),
	}
}
