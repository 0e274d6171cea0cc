// Package descriptor tracks pipeline layouts and descriptor heap contents
// for one device, so bound descriptor tables can be read back during
// recording.
package descriptor

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/shadertoggle/gpucore"
)

var (
	// ErrUnknownTable is returned when a table has no heap location.
	ErrUnknownTable = errors.New("descriptor: unknown table")

	// ErrDuplicateLayout is returned by RegisterLayout for a known layout.
	ErrDuplicateLayout = errors.New("descriptor: layout already registered")
)

// Locator maps a descriptor table binding to its heap location.
// gpucore.Device satisfies it.
type Locator interface {
	DescriptorHeapOffset(table gpucore.DescriptorTableID, binding uint32) (gpucore.DescriptorHeapID, uint32, bool)
}

// Tracker mirrors layout definitions and descriptor heap writes.
//
// Layouts are written on pipeline layout creation and read on every bind,
// heaps are written by table updates from any thread. Tracker is safe for
// concurrent use.
type Tracker struct {
	locator Locator

	mu      sync.RWMutex
	layouts map[gpucore.PipelineLayoutID][]gpucore.LayoutParam
	heaps   map[gpucore.DescriptorHeapID][]gpucore.Descriptor
}

// New creates a tracker resolving table locations through locator.
func New(locator Locator) *Tracker {
	return &Tracker{
		locator: locator,
		layouts: make(map[gpucore.PipelineLayoutID][]gpucore.LayoutParam),
		heaps:   make(map[gpucore.DescriptorHeapID][]gpucore.Descriptor),
	}
}

// RegisterLayout records the parameters of a pipeline layout.
func (t *Tracker) RegisterLayout(layout gpucore.PipelineLayoutID, params []gpucore.LayoutParam) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.layouts[layout]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateLayout, layout)
	}
	cloned := make([]gpucore.LayoutParam, len(params))
	for i, p := range params {
		cloned[i] = p
		cloned[i].Ranges = slices.Clone(p.Ranges)
	}
	t.layouts[layout] = cloned
	return nil
}

// UnregisterLayout forgets a pipeline layout.
func (t *Tracker) UnregisterLayout(layout gpucore.PipelineLayoutID) {
	t.mu.Lock()
	delete(t.layouts, layout)
	t.mu.Unlock()
}

// Param returns parameter i of layout.
func (t *Tracker) Param(layout gpucore.PipelineLayoutID, i uint32) (gpucore.LayoutParam, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	params, ok := t.layouts[layout]
	if !ok || int(i) >= len(params) {
		return gpucore.LayoutParam{}, false
	}
	return params[i], true
}

// ParamCount returns the number of parameters of layout.
func (t *Tracker) ParamCount(layout gpucore.PipelineLayoutID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.layouts[layout])
}

// TableSize returns the number of descriptors a table parameter spans.
// Unbounded and sampler ranges are not counted.
func TableSize(param gpucore.LayoutParam) uint32 {
	if param.Type != gpucore.LayoutParamDescriptorTable {
		return 0
	}
	var n uint32
	for _, r := range param.Ranges {
		if r.Count == gpucore.UnboundedCount || r.Type == gpucore.DescriptorTypeSampler {
			continue
		}
		n += r.Count
	}
	return n
}

// write stores descs at offset in heap. Caller holds t.mu.
func (t *Tracker) write(heap gpucore.DescriptorHeapID, offset uint32, descs []gpucore.Descriptor) {
	h := t.heaps[heap]
	if need := int(offset) + len(descs); len(h) < need {
		h = append(h, make([]gpucore.Descriptor, need-len(h))...)
	}
	copy(h[offset:], descs)
	t.heaps[heap] = h
}

// read copies from heap into dst. Caller holds t.mu.
func (t *Tracker) read(heap gpucore.DescriptorHeapID, offset uint32, dst []gpucore.Descriptor) int {
	clear(dst)
	h := t.heaps[heap]
	if int(offset) >= len(h) {
		return 0
	}
	return copy(dst, h[offset:])
}

// UpdateTables applies descriptor writes. Updates to unknown tables are
// skipped and reported in the joined error.
func (t *Tracker) UpdateTables(updates []gpucore.TableUpdate) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, u := range updates {
		heap, offset, ok := t.locator.DescriptorHeapOffset(u.Table, u.Binding)
		if !ok {
			errs = append(errs, fmt.Errorf("update table %d: %w", u.Table, ErrUnknownTable))
			continue
		}
		t.write(heap, offset+u.ArrayOffset, u.Descriptors)
	}
	return errors.Join(errs...)
}

// CopyTables applies descriptor copies in order.
func (t *Tracker) CopyTables(copies []gpucore.TableCopy) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var errs []error
	for _, c := range copies {
		srcHeap, srcOff, ok := t.locator.DescriptorHeapOffset(c.Source, c.SourceBinding)
		if !ok {
			errs = append(errs, fmt.Errorf("copy from table %d: %w", c.Source, ErrUnknownTable))
			continue
		}
		dstHeap, dstOff, ok := t.locator.DescriptorHeapOffset(c.Dest, c.DestBinding)
		if !ok {
			errs = append(errs, fmt.Errorf("copy to table %d: %w", c.Dest, ErrUnknownTable))
			continue
		}
		buf := make([]gpucore.Descriptor, c.Count)
		t.read(srcHeap, srcOff+c.SourceOffset, buf)
		t.write(dstHeap, dstOff+c.DestOffset, buf)
	}
	return errors.Join(errs...)
}

// Read copies descriptors starting at offset in heap into dst and returns
// how many were ever written. Slots never written read as null.
func (t *Tracker) Read(heap gpucore.DescriptorHeapID, offset uint32, dst []gpucore.Descriptor) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read(heap, offset, dst)
}

// TableContents returns the descriptors of a table bound to parameter
// param of layout.
func (t *Tracker) TableContents(layout gpucore.PipelineLayoutID, param uint32, table gpucore.DescriptorTableID) []gpucore.Descriptor {
	if table == gpucore.InvalidID {
		return nil
	}
	p, ok := t.Param(layout, param)
	if !ok {
		return nil
	}
	n := TableSize(p)
	if n == 0 {
		return nil
	}
	heap, offset, ok := t.locator.DescriptorHeapOffset(table, 0)
	if !ok {
		return nil
	}
	out := make([]gpucore.Descriptor, n)
	t.Read(heap, offset, out)
	return out
}
