// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resolve

import (
	"github.com/gogpu/shadertoggle/gpucore"
	"github.com/gogpu/shadertoggle/group"
)

// Cycle moves a descriptor cursor one step in dir, then keeps moving while
// the slot is null, clamped at both ends of descs. It returns the new
// index and true when it landed on a non-null slot; otherwise start and
// false, leaving the cursor where it was.
func Cycle(descs []gpucore.Descriptor, start int, dir group.CycleDirection) (int, bool) {
	n := len(descs)
	if n == 0 || dir == group.CycleNone {
		return start, false
	}

	i := min(max(start, 0), n-1)
	switch {
	case dir > 0:
		i = min(i+1, n-1)
		for descs[i].IsNull() && i < n-1 {
			i++
		}
	default:
		i = max(i-1, 0)
		for descs[i].IsNull() && i > 0 {
			i--
		}
	}

	if descs[i].IsNull() {
		return start, false
	}
	return i, true
}
