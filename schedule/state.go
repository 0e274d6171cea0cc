// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

import (
	"errors"
	"fmt"
	"iter"

	"github.com/gogpu/shadertoggle/group"
)

// ErrInconsistent is returned by [CommandListState.Consistent] when the
// mask and the queues disagree.
var ErrInconsistent = errors.New("schedule: queue mask and task queues disagree")

// StageQueues holds the task queues of one shader stage.
type StageQueues struct {
	Effects   Queue[string]
	Bindings  Queue[string]
	Constants Queue[*group.Group]
	Previews  Queue[*group.Group]

	// Blocked lists the active groups matching the pipeline currently
	// bound on the stage.
	Blocked []*group.Group
}

// CommandListState is the scheduling state of one recording stream.
//
// Thread Safety:
// A CommandListState is owned by the thread recording its command list
// and is never shared; it has no locking.
//
// Mask Invariant:
// For every (kind, stage) pair, the queue holds entries exactly when some
// bit of that pair is set in Mask. Every mutation path ends with
// [CommandListState.Sync], which recomputes the pair's bits from its
// entries: an entry sets its Location bit, plus the draw bit while it is
// unresolved, since resolution only happens at draw.
type CommandListState struct {
	Mask   Mask
	Stages [NumStages]StageQueues
}

// NewCommandListState creates an empty state.
func NewCommandListState() *CommandListState {
	return &CommandListState{}
}

// Reset empties every queue and the mask. Called when the host resets
// the command list for a new recording.
func (s *CommandListState) Reset() {
	for i := range s.Stages {
		st := &s.Stages[i]
		st.Effects.Reset()
		st.Bindings.Reset()
		st.Constants.Reset()
		st.Previews.Reset()
		st.Blocked = nil
	}
	s.Mask = 0
}

// Len returns the number of entries queued for kind on stage.
func (s *CommandListState) Len(kind Kind, stage Stage) int {
	st := &s.Stages[stage]
	switch kind {
	case KindEffect:
		return st.Effects.Len()
	case KindBinding:
		return st.Bindings.Len()
	case KindConstant:
		return st.Constants.Len()
	case KindPreview:
		return st.Previews.Len()
	}
	return 0
}

// Total returns the number of queued entries across all queues.
func (s *CommandListState) Total() int {
	n := 0
	for stage := Stage(0); stage < NumStages; stage++ {
		for kind := Kind(0); kind < numKinds; kind++ {
			n += s.Len(kind, stage)
		}
	}
	return n
}

// entries iterates the entries of kind on stage.
func (s *CommandListState) entries(kind Kind, stage Stage) iter.Seq[*Entry] {
	st := &s.Stages[stage]
	switch kind {
	case KindEffect:
		return st.Effects.Entries()
	case KindBinding:
		return st.Bindings.Entries()
	case KindConstant:
		return st.Constants.Entries()
	case KindPreview:
		return st.Previews.Entries()
	}
	return func(func(*Entry) bool) {}
}

// purge removes entries of kind on stage for which drop returns true.
func (s *CommandListState) purge(kind Kind, stage Stage, drop func(*Entry) bool) int {
	st := &s.Stages[stage]
	switch kind {
	case KindEffect:
		return st.Effects.Purge(func(_ string, e *Entry) bool { return drop(e) })
	case KindBinding:
		return st.Bindings.Purge(func(_ string, e *Entry) bool { return drop(e) })
	case KindConstant:
		return st.Constants.Purge(func(_ *group.Group, e *Entry) bool { return drop(e) })
	case KindPreview:
		return st.Previews.Purge(func(_ *group.Group, e *Entry) bool { return drop(e) })
	}
	return 0
}

// want computes the bits the entries of (kind, stage) require.
func (s *CommandListState) want(kind Kind, stage Stage) Mask {
	var m Mask
	for e := range s.entries(kind, stage) {
		m |= Bit(e.Location, kind, stage)
		if !e.Resolved() {
			m |= Bit(CallDraw, kind, stage)
		}
	}
	return m
}

// column returns every bit of (kind, stage) across all call-sites.
func column(kind Kind, stage Stage) Mask {
	var m Mask
	for site := CallSite(0); site < numCallSites; site++ {
		m |= Bit(site, kind, stage)
	}
	return m
}

// Sync recomputes the bits of (kind, stage) from its queue.
func (s *CommandListState) Sync(kind Kind, stage Stage) {
	s.Mask = s.Mask&^column(kind, stage) | s.want(kind, stage)
}

// SyncAll recomputes every bit of the mask.
func (s *CommandListState) SyncAll() {
	for stage := Stage(0); stage < NumStages; stage++ {
		for kind := Kind(0); kind < numKinds; kind++ {
			s.Sync(kind, stage)
		}
	}
}

// Consistent checks the mask invariant and returns a wrapped
// [ErrInconsistent] describing the first violation.
func (s *CommandListState) Consistent() error {
	for stage := Stage(0); stage < NumStages; stage++ {
		for kind := Kind(0); kind < numKinds; kind++ {
			col := column(kind, stage)
			if got, want := s.Mask&col, s.want(kind, stage); got != want {
				return fmt.Errorf("%w: %s/%s mask %v, entries need %v", ErrInconsistent, kind, stage, got, want)
			}
		}
	}
	return nil
}
