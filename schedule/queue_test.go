// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

import (
	"slices"
	"testing"

	"github.com/gogpu/shadertoggle/group"
)

func TestQueueEnqueueIdempotent(t *testing.T) {
	var q Queue[string]
	g := group.New(1, "g")

	if !q.Enqueue("a", g, CallDraw, 0) {
		t.Fatal("first Enqueue should insert")
	}
	if q.Enqueue("a", g, CallBindPipeline, 5) {
		t.Fatal("second Enqueue should be a no-op")
	}
	e, ok := q.Get("a")
	if !ok || e.Location != CallDraw || e.Frame != 0 {
		t.Errorf("entry overwritten: %+v", e)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}

func TestQueueOrderAndRemove(t *testing.T) {
	var q Queue[string]
	g := group.New(1, "g")
	for _, k := range []string{"c", "a", "b"} {
		q.Enqueue(k, g, CallDraw, 0)
	}
	if got := q.Keys(); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("Keys() = %v", got)
	}
	if !q.Remove("a") || q.Remove("a") {
		t.Error("Remove should succeed once")
	}
	var order []string
	for k := range q.All() {
		order = append(order, k)
	}
	if !slices.Equal(order, []string{"c", "b"}) {
		t.Errorf("All() order = %v", order)
	}
}

func TestQueuePurge(t *testing.T) {
	var q Queue[int]
	g := group.New(1, "g")
	for i := 0; i < 6; i++ {
		q.Enqueue(i, g, CallDraw, 0)
	}
	n := q.Purge(func(k int, _ *Entry) bool { return k%2 == 0 })
	if n != 3 {
		t.Errorf("Purge() = %d, want 3", n)
	}
	if got := q.Keys(); !slices.Equal(got, []int{1, 3, 5}) {
		t.Errorf("Keys() = %v", got)
	}
	if q.Has(2) {
		t.Error("purged key still present")
	}
}

func TestQueueReset(t *testing.T) {
	var q Queue[*group.Group]
	g := group.New(1, "g")
	q.Enqueue(g, g, CallDraw, 0)
	q.Reset()
	if q.Len() != 0 || q.Has(g) {
		t.Error("Reset should empty the queue")
	}
	if !q.Enqueue(g, g, CallDraw, 0) {
		t.Error("Enqueue after Reset should insert")
	}
}

func TestTargetValidity(t *testing.T) {
	var tgt Target
	if tgt.IsValid() {
		t.Error("zero target should be unresolved")
	}
	tgt.View = 3
	if !tgt.IsValid() {
		t.Error("view target should be valid")
	}
	tgt = Target{}
	tgt.Buffer.Buffer = 9
	if !tgt.IsValid() {
		t.Error("buffer target should be valid")
	}
}
