// SPDX-License-Identifier: MIT

package cpa

import (
	"errors"
	"fmt"
)

// Sentinel errors. Shape mismatches between a context and the algorithm
// invoked on it are programmer errors and panic instead.
var (
	// ErrTraceCount indicates fewer trace or prediction rows than requested.
	ErrTraceCount = errors.New("cpa: trace/prediction count mismatch")

	// ErrEmptyContext indicates a finalize before any trace was merged.
	ErrEmptyContext = errors.New("cpa: no traces accumulated")

	// ErrCardinality indicates differing population cardinalities at finalize.
	ErrCardinality = errors.New("cpa: population cardinalities differ")

	// ErrZeroVariance indicates a sample or candidate whose variance is zero,
	// so no correlation coefficient exists for it.
	ErrZeroVariance = errors.New("cpa: zero variance")
)

// cellErrorf wraps err with the operation tag and the offending (sample, candidate).
func cellErrorf(op string, sample, candidate int, err error) error {
	return fmt.Errorf("%s(sample=%d,candidate=%d): %w", op, sample, candidate, err)
}
