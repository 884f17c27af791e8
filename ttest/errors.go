// SPDX-License-Identifier: MIT

package ttest

import "errors"

// Sentinel errors. Context shape mismatches panic instead.
var (
	// ErrTraceCount indicates fewer trace rows than requested.
	ErrTraceCount = errors.New("ttest: trace count mismatch")

	// ErrTooFewTraces indicates a class with fewer than two observations.
	ErrTooFewTraces = errors.New("ttest: fewer than two traces in class")

	// ErrZeroVariance indicates a sample whose pooled variance is zero.
	ErrZeroVariance = errors.New("ttest: zero variance")
)

const (
	panicOrderInvalid    = "ttest: order must be >= 1"
	panicContextMismatch = "ttest: context shape %s does not fit %s"
	panicWidthMismatch   = "ttest: trace width %d, context expects %d"
)
