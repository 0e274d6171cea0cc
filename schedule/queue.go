// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

import (
	"iter"
	"slices"

	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
)

// Target is the resource a task resolved to. The zero value is the
// "unresolved" sentinel.
type Target struct {
	View   gpucore.ViewID
	Buffer gpucore.BufferRange
}

// IsValid reports whether the target references a view or a buffer.
func (t Target) IsValid() bool {
	return t.View != gpucore.InvalidID || t.Buffer.Buffer != gpucore.InvalidID
}

// Entry is one queued task.
type Entry struct {
	Group *group.Group

	// Location is the call-site the task fires at once resolved.
	Location CallSite

	// Target is filled by the resolver at draw time.
	Target Target

	// Frame is the frame the entry was queued in.
	Frame uint64

	// Attempts counts failed resolutions.
	Attempts int
}

// Resolved reports whether the entry has a target.
func (e *Entry) Resolved() bool { return e.Target.IsValid() }

// Queue maps task keys to entries and preserves insertion order so that
// execution is deterministic.
//
// The zero value is an empty queue ready for use.
type Queue[K comparable] struct {
	keys    []K
	entries map[K]*Entry
}

// Enqueue adds an entry for key. It is a no-op returning false when key
// is already queued.
func (q *Queue[K]) Enqueue(key K, g *group.Group, loc CallSite, frame uint64) bool {
	if _, ok := q.entries[key]; ok {
		return false
	}
	if q.entries == nil {
		q.entries = make(map[K]*Entry)
	}
	q.entries[key] = &Entry{Group: g, Location: loc, Frame: frame}
	q.keys = append(q.keys, key)
	return true
}

// Get returns the entry for key.
func (q *Queue[K]) Get(key K) (*Entry, bool) {
	e, ok := q.entries[key]
	return e, ok
}

// Has reports whether key is queued.
func (q *Queue[K]) Has(key K) bool {
	_, ok := q.entries[key]
	return ok
}

// Remove deletes key. It returns false when key was not queued.
func (q *Queue[K]) Remove(key K) bool {
	if _, ok := q.entries[key]; !ok {
		return false
	}
	delete(q.entries, key)
	if i := slices.Index(q.keys, key); i >= 0 {
		q.keys = slices.Delete(q.keys, i, i+1)
	}
	return true
}

// Len returns the number of queued entries.
func (q *Queue[K]) Len() int { return len(q.keys) }

// Keys returns a copy of the queued keys in insertion order.
func (q *Queue[K]) Keys() []K { return slices.Clone(q.keys) }

// All iterates keys and entries in insertion order. The queue must not be
// mutated during iteration; use [Queue.Purge] to delete.
func (q *Queue[K]) All() iter.Seq2[K, *Entry] {
	return func(yield func(K, *Entry) bool) {
		for _, k := range q.keys {
			if !yield(k, q.entries[k]) {
				return
			}
		}
	}
}

// Entries iterates entries in insertion order.
func (q *Queue[K]) Entries() iter.Seq[*Entry] {
	return func(yield func(*Entry) bool) {
		for _, k := range q.keys {
			if !yield(q.entries[k]) {
				return
			}
		}
	}
}

// Purge removes every entry for which drop returns true and reports how
// many were removed.
func (q *Queue[K]) Purge(drop func(K, *Entry) bool) int {
	kept := q.keys[:0]
	n := 0
	for _, k := range q.keys {
		if drop(k, q.entries[k]) {
			delete(q.entries, k)
			n++
			continue
		}
		kept = append(kept, k)
	}
	clear(q.keys[len(kept):])
	q.keys = kept
	return n
}

// Reset removes every entry.
func (q *Queue[K]) Reset() {
	clear(q.entries)
	clear(q.keys)
	q.keys = q.keys[:0]
}
