// SPDX-License-Identifier: MIT

// Package cpa: functional options for the candidate fan-out.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal).
//
// Options never change numeric results; they only decide how the per-candidate
// work of one call is split across goroutines.
package cpa

import "runtime"

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultMinParallelWork is the smallest samples*candidates product per
	// trace for which the candidate loop is split across workers.
	DefaultMinParallelWork = 1 << 14

	// replayBlock bounds how many traces the first-order path stages at once.
	replayBlock = 64
)

// ---------- Internal panic messages (no magic strings) ----------

const (
	panicWorkersInvalid  = "cpa: WithWorkers: n must be >= 1"
	panicMinWorkInvalid  = "cpa: WithMinParallelWork: n must be >= 0"
	panicOrderInvalid    = "cpa: attack order must be >= 1"
	panicContextMismatch = "cpa: context shape %s does not fit %s"
	panicWidthMismatch   = "cpa: %s width %d, context expects %d"
)

// ---------- Public option type (functional) ----------

// Option mutates internal options. Safe to apply repeatedly.
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
type Options struct {
	workers int // >= 1; runtime.GOMAXPROCS(0)
	minWork int // >= 0; DefaultMinParallelWork
}

// WithWorkers caps the number of goroutines used for the candidate fan-out.
// n == 1 runs everything on the calling goroutine. Panics when n < 1.
func WithWorkers(n int) Option {
	if n < 1 {
		panic(panicWorkersInvalid)
	}

	return func(o *Options) { o.workers = n }
}

// WithMinParallelWork sets the samples*candidates threshold under which the
// candidate loop stays sequential. 0 always fans out. Panics when n < 0.
func WithMinParallelWork(n int) Option {
	if n < 0 {
		panic(panicMinWorkInvalid)
	}

	return func(o *Options) { o.minWork = n }
}

// gatherOptions applies opts over the defaults.
func gatherOptions(opts ...Option) Options {
	o := Options{
		workers: runtime.GOMAXPROCS(0),
		minWork: DefaultMinParallelWork,
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}

// chunks returns how many candidate ranges a call should use for the given
// per-trace work; 1 means no fan-out.
func (o Options) chunks(candidates, work int) int {
	if o.workers <= 1 || work < o.minWork || candidates < 2 {
		return 1
	}
	if candidates < o.workers {
		return candidates
	}

	return o.workers
}
