// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

import (
	"fmt"
	"strings"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
)

// CallSite is a point in command recording where deferred work may fire.
type CallSite uint8

// Call-sites. Each owns one 12-bit segment of the queue mask.
const (
	CallDraw CallSite = iota
	CallBindPipeline
	CallBindRenderTarget

	numCallSites = 3
)

var callSiteNames = [numCallSites]string{"draw", "bind-pipeline", "bind-render-target"}

// String returns the call-site name.
func (c CallSite) String() string {
	if c < numCallSites {
		return callSiteNames[c]
	}
	return fmt.Sprintf("CallSite(%d)", c)
}

// SiteOf maps a group invocation location to its call-site.
func SiteOf(l group.Location) CallSite {
	switch l {
	case group.LocationBindPipeline:
		return CallBindPipeline
	case group.LocationBindRenderTarget:
		return CallBindRenderTarget
	}
	return CallDraw
}

// Kind is a category of deferred work.
type Kind uint8

// Task kinds, in bit order within a segment.
const (
	KindEffect Kind = iota
	KindBinding
	KindConstant
	KindPreview

	numKinds = 4
)

var kindNames = [numKinds]string{"effect", "binding", "constant", "preview"}

// String returns the kind name.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Stage is a shader stage that owns a task queue.
type Stage uint8

// Queue stages, in bit order within a kind.
const (
	StagePixel Stage = iota
	StageVertex
	StageCompute

	NumStages = 3
)

var stageNames = [NumStages]string{"ps", "vs", "cs"}

// String returns the short stage name.
func (s Stage) String() string {
	if s < NumStages {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", s)
}

// ShaderStage returns the host shader stage flag.
func (s Stage) ShaderStage() gpucore.ShaderStage {
	switch s {
	case StageVertex:
		return gpucore.ShaderStageVertex
	case StageCompute:
		return gpucore.ShaderStageCompute
	}
	return gpucore.ShaderStagePixel
}

// StageOf maps a single host shader stage to a queue stage. Stages without
// queues (hull, domain, geometry) report false.
func StageOf(s gpucore.ShaderStage) (Stage, bool) {
	switch s {
	case gpucore.ShaderStagePixel:
		return StagePixel, true
	case gpucore.ShaderStageVertex:
		return StageVertex, true
	case gpucore.ShaderStageCompute:
		return StageCompute, true
	}
	return 0, false
}

// Mask is the per-command-list set of outstanding
// (call-site, kind, stage) tuples, packed into one integer.
//
// Bit layout: site*MatchDelimiter + kind*3 + stage.
type Mask uint64

// MatchDelimiter is the width of one call-site segment.
const MatchDelimiter = 12

// Segment-relative masks. Shift by site*MatchDelimiter with [Mask.At].
const (
	MatchEffectPS Mask = 1 << 0
	MatchEffectVS Mask = 1 << 1
	MatchEffectCS Mask = 1 << 2

	MatchBindingPS Mask = 1 << 3
	MatchBindingVS Mask = 1 << 4
	MatchBindingCS Mask = 1 << 5

	MatchConstPS Mask = 1 << 6
	MatchConstVS Mask = 1 << 7
	MatchConstCS Mask = 1 << 8

	MatchPreviewPS Mask = 1 << 9
	MatchPreviewVS Mask = 1 << 10
	MatchPreviewCS Mask = 1 << 11

	MatchEffect  = MatchEffectPS | MatchEffectVS | MatchEffectCS
	MatchBinding = MatchBindingPS | MatchBindingVS | MatchBindingCS
	MatchConst   = MatchConstPS | MatchConstVS | MatchConstCS
	MatchPreview = MatchPreviewPS | MatchPreviewVS | MatchPreviewCS

	MatchPS = MatchEffectPS | MatchBindingPS | MatchConstPS | MatchPreviewPS
	MatchVS = MatchEffectVS | MatchBindingVS | MatchConstVS | MatchPreviewVS
	MatchCS = MatchEffectCS | MatchBindingCS | MatchConstCS | MatchPreviewCS

	MatchAll = MatchPS | MatchVS | MatchCS
)

// Bit returns the single bit for a (site, kind, stage) tuple.
func Bit(site CallSite, kind Kind, stage Stage) Mask {
	return 1 << (uint(site)*MatchDelimiter + uint(kind)*3 + uint(stage))
}

// KindMask returns the segment-relative bits of kind on every stage.
func KindMask(kind Kind) Mask {
	return MatchEffect << (uint(kind) * 3)
}

// StageMask returns the segment-relative bits of stage for every kind.
func StageMask(stage Stage) Mask {
	return MatchPS << uint(stage)
}

// At shifts a segment-relative mask to the segment of site.
func (m Mask) At(site CallSite) Mask {
	return (m & MatchAll) << (uint(site) * MatchDelimiter)
}

// Segment returns the 12-bit field of site, segment-relative.
func (m Mask) Segment(site CallSite) Mask {
	return (m >> (uint(site) * MatchDelimiter)) & MatchAll
}

// Test reports whether the tuple's bit is set.
func (m Mask) Test(site CallSite, kind Kind, stage Stage) bool {
	return m&Bit(site, kind, stage) != 0
}

// Set sets the tuple's bit.
func (m *Mask) Set(site CallSite, kind Kind, stage Stage) {
	*m |= Bit(site, kind, stage)
}

// Clear clears the tuple's bit.
func (m *Mask) Clear(site CallSite, kind Kind, stage Stage) {
	*m &^= Bit(site, kind, stage)
}

// Any reports whether any bit of the segment-relative mask rel is set at site.
func (m Mask) Any(site CallSite, rel Mask) bool {
	return m.Segment(site)&rel != 0
}

// String renders set tuples as "site:kind/stage" for diagnostics.
func (m Mask) String() string {
	if m == 0 {
		return "{}"
	}
	var parts []string
	for site := CallSite(0); site < numCallSites; site++ {
		for kind := Kind(0); kind < numKinds; kind++ {
			for stage := Stage(0); stage < NumStages; stage++ {
				if m.Test(site, kind, stage) {
					parts = append(parts, site.String()+":"+kind.String()+"/"+stage.String())
				}
			}
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}
