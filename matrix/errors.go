// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// This file defines ONLY package-level sentinel errors used across the matrix
// package. Callers match them via errors.Is. Element access is unchecked by
// contract, so the set is small: shape contracts and degenerate statistics.

package matrix

import (
	"errors"
	"fmt"
)

// NOTE ON NAMING & PREFIXING
// --------------------------
// Every message is prefixed with "matrix: ..." for consistency and to allow
// easy grepping across logs. Wrap with matrixErrorf at the detection site;
// callers still use errors.Is to match.

var (
	// ErrShrinkRows is returned by Matrix.ShrinkRows when the requested row
	// count exceeds the current one (shrinking cannot grow a matrix).
	ErrShrinkRows = errors.New("matrix: cannot shrink to a larger row count")

	// ErrDimensionMismatch indicates incompatible dimensions between operands,
	// e.g. traces and predictions with a different number of observations.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNilMatrix indicates that a nil *Matrix (receiver or argument) was used.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrZeroVariance signals a column whose variance is exactly zero, so no
	// correlation coefficient exists for it.
	ErrZeroVariance = errors.New("matrix: zero variance")

	// ErrTooFewRows indicates a statistic that needs at least one observation.
	ErrTooFewRows = errors.New("matrix: not enough observations")
)

// matrixErrorf wraps err with the operation tag, keeping the sentinel reachable via %w.
func matrixErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// cellErrorf wraps err with the operation tag and the offending (col,row) coordinates.
func cellErrorf(op string, col, row int, err error) error {
	return fmt.Errorf("%s(%d,%d): %w", op, col, row, err)
}
