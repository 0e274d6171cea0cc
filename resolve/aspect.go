// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resolve

import (
	"math"

	"github.com/gogpu/shadertoggle/group"
)

// Aspect ratio tolerances.
const (
	// aspectTolerance is the largest accepted difference between the
	// checked and the reference aspect ratio.
	aspectTolerance = 0.1

	// A target is similar in size when the swapchain is between half and
	// 1.85 times its size on both axes.
	minSizeRatio = 0.5
	maxSizeRatio = 1.85

	// integralTolerance bounds the fractional part of a size ratio that
	// counts as an integer multiple in extended mode.
	integralTolerance = 0.02
)

// CheckAspectRatio reports whether a target of wCheck x hCheck has the
// aspect ratio of a w x h swapchain under mode. Its size must also be
// similar to the swapchain's or, in extended mode, an integer fraction of
// it. A zero checked dimension always passes.
func CheckAspectRatio(wCheck, hCheck, w, h uint32, mode group.MatchMode) bool {
	if wCheck == 0 || hCheck == 0 {
		return true
	}
	if w == 0 || h == 0 {
		return false
	}

	aspect := float64(w) / float64(h)
	aspectCheck := float64(wCheck) / float64(hCheck)
	if math.Abs(aspect-aspectCheck) > aspectTolerance {
		return false
	}

	rw := float64(w) / float64(wCheck)
	rh := float64(h) / float64(hCheck)
	if similar(rw) && similar(rh) {
		return true
	}
	return mode == group.MatchExtendedAspectRatio && integral(rw) && integral(rh)
}

func similar(ratio float64) bool {
	return ratio >= minSizeRatio && ratio <= maxSizeRatio
}

func integral(ratio float64) bool {
	_, frac := math.Modf(ratio)
	return frac <= integralTolerance
}

// MatchesSwapchain reports whether a target of wCheck x hCheck satisfies
// mode against a w x h swapchain.
func MatchesSwapchain(wCheck, hCheck, w, h uint32, mode group.MatchMode) bool {
	switch {
	case mode >= group.MatchNone:
		return true
	case mode >= group.MatchAspectRatio:
		return CheckAspectRatio(wCheck, hCheck, w, h, mode)
	default:
		return wCheck == w && hCheck == h
	}
}
