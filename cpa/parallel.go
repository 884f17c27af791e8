// SPDX-License-Identifier: MIT

package cpa

import "golang.org/x/sync/errgroup"

// fanOut runs fn over [0,n) split into at most chunks contiguous ranges and
// waits for all of them. Ranges are disjoint, so fn may write any state that
// is indexed by its own range without locking.
func fanOut(chunks, n int, fn func(lo, hi int)) {
	if chunks <= 1 || n < 2 {
		fn(0, n)

		return
	}

	var g errgroup.Group
	g.SetLimit(chunks)
	step := (n + chunks - 1) / chunks
	for lo := 0; lo < n; lo += step {
		lo := lo
		hi := min(lo+step, n)
		g.Go(func() error {
			fn(lo, hi)

			return nil
		})
	}
	_ = g.Wait() // workers never fail
}
