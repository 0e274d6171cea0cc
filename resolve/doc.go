// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resolve finds the bound resource a toggle group targets.
//
// Resolution reads the live binding state of a command list and applies
// the group's policy:
//
//   - render target indices are clamped to the bound count
//   - targets can be required to match the swapchain exactly, by aspect
//     ratio, or by extended (integer multiple) aspect ratio
//   - descriptor targets are selected by stage, slot and index, and an
//     interactive cycle request moves the index past null slots
package resolve
