// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package schedule implements the deferred task protocol of a recording
// stream.
//
// Each command list owns a [CommandListState]: per-stage task queues and
// one 64-bit [Mask]. The mask packs (call-site, kind, stage) tuples into
// three 12-bit segments, one per call-site, so the draw hot path can test
// for outstanding work with a single AND.
//
//	bit = site*12 + kind*3 + stage
//
//	site:  draw=0  bind-pipeline=1  bind-render-target=2
//	kind:  effect=0  binding=1  constant=2  preview=3
//	stage: ps=0  vs=1  cs=2
//
// The protocol has three operations:
//
//   - [CheckCallForCommandList] runs on pipeline bind and queues the work
//     of every group matching the bound pipelines.
//   - [QueueOrDequeue] runs at every call-site; at draw it resolves queued
//     entries against the bound state, then returns the entries ready to
//     fire at that call-site.
//   - [Invalidate] runs on pipeline and render-target binds and drops
//     entries whose resolved resource or pending draw became stale.
//
// Queue entries and mask bits change together; see [CommandListState].
package schedule
