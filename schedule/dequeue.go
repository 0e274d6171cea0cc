// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package schedule

import (
	"github.com/gogpu/shadertoggle/session"
)

// ResolveFunc finds the target of an entry queued on stage from the
// currently bound state. ok is false when nothing bound matches the
// group's policy.
type ResolveFunc func(e *Entry, stage Stage) (t Target, ok bool)

// QueueOrDequeue resolves and promotes the entries of one queue at site.
//
// Unresolved entries are only resolved at [CallDraw]; elsewhere the bound
// state does not describe the draw the task belongs to. When resolution
// fails the entry stays queued if its group retries and the retry limit
// has not expired, and is dropped otherwise. Entries of groups that are no
// longer live are dropped.
//
// Resolved entries whose location is site are returned as the immediate
// set. They stay queued: the executor removes what it completes.
//
// The caller holds the session's render read lock.
func QueueOrDequeue[K comparable](state *CommandListState, q *Queue[K], kind Kind, stage Stage, site CallSite, resolve ResolveFunc, sess *session.Session) []K {
	frame := sess.Frame()
	limit := sess.RetryLimit()

	var immediate []K
	q.Purge(func(key K, e *Entry) bool {
		if !sess.IsLive(e.Group) {
			return true
		}
		if !e.Resolved() && site == CallDraw {
			t, ok := resolve(e, stage)
			switch {
			case ok && t.IsValid():
				e.Target = t
			case e.Group.Retry && !retryExpired(e, frame, limit):
				e.Attempts++
				return false
			default:
				return true
			}
		}
		if e.Resolved() && e.Location == site {
			immediate = append(immediate, key)
		}
		return false
	})

	state.Sync(kind, stage)
	return immediate
}

// retryExpired reports whether e has been queued for limit frames.
func retryExpired(e *Entry, frame uint64, limit int) bool {
	return limit > 0 && frame-e.Frame >= uint64(limit)
}
