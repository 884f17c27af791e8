// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide batch (two-pass) statistics over observation matrices, laid out the
//     way trace sets are: cols = variables (samples/candidates), rows = observations.
//   - Serve as the reference path the streaming moment engine is verified against.
//
// Exposed API:
//   - ColumnMeans(X)         -> means               // Σ_row X[col,row] / rows
//   - CenterColumns(X)       -> (Xc, means)         // subtract per-column mean
//   - CrossCorrelation(X, Y) -> Corr                // Pearson r between every X column and every Y column
//
// Determinism & Performance:
//   - Fixed row→col traversal for all loops; rows are read through Row(r) slices.
//   - Zero-row inputs are rejected where a statistic needs observations.

package matrix

import "math"

// Operation name constants for unified error wrapping.
const (
	opColumnMeans      = "ColumnMeans"
	opCenterColumns    = "CenterColumns"
	opCrossCorrelation = "CrossCorrelation"
)

// ColumnMeans returns the mean of every column of X.
// Implementation:
//   - Stage 1: Validate X non-nil with at least one row.
//   - Stage 2: Accumulate column sums row by row.
//   - Stage 3: Scale by 1/rows.
//
// Errors:
//   - ErrNilMatrix, ErrTooFewRows.
//
// Complexity:
//   - Time O(r*c), Space O(c).
func ColumnMeans(X *Matrix[float64]) ([]float64, error) {
	// Stage 1 (Validate): presence and at least one observation.
	if X == nil {
		return nil, matrixErrorf(opColumnMeans, ErrNilMatrix)
	}
	if X.Rows() == 0 {
		return nil, matrixErrorf(opColumnMeans, ErrTooFewRows)
	}

	// Stage 2 (Execute): accumulate sums into means in deterministic order.
	means := make([]float64, X.Cols())
	var row, col int
	for row = 0; row < X.Rows(); row++ {
		r := X.Row(row)
		for col = range r {
			means[col] += r[col]
		}
	}

	// Stage 3 (Finalize): divide sums by the observation count.
	invR := 1.0 / float64(X.Rows())
	for col = range means {
		means[col] *= invR
	}

	return means, nil
}

// CenterColumns returns a copy of X with the per-column mean subtracted.
// Implementation:
//   - Stage 1: Compute column means (validation inherited).
//   - Stage 2: Broadcast-subtract the means over every row into a fresh matrix.
//
// Returns:
//   - *Matrix[float64]: centered copy (same shape as X).
//   - []float64: column means (len = X.Cols()).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func CenterColumns(X *Matrix[float64]) (*Matrix[float64], []float64, error) {
	means, err := ColumnMeans(X)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}

	Xc := NewMatrix[float64](X.Cols(), X.Rows())
	var row, col int
	for row = 0; row < X.Rows(); row++ {
		src, dst := X.Row(row), Xc.Row(row)
		for col = range src {
			dst[col] = src[col] - means[col]
		}
	}

	return Xc, means, nil
}

// CrossCorrelation computes the batch Pearson correlation between every column
// of X and every column of Y, both holding one observation per row.
// MAIN DESCRIPTION:
//   - Result has cols = X.Cols(), rows = Y.Cols(); element (i,j) is r(X[:,i], Y[:,j]).
//     With X = traces and Y = predictions this is the CPA result layout.
//
// Implementation:
//   - Stage 1: Validate shapes (same number of observations, at least one).
//   - Stage 2: Center both operands (two-pass: means first, deviations second).
//   - Stage 3: Accumulate column sums of squares and the cross products.
//   - Stage 4: Normalize; a zero-variance column is an error, not a silent zero.
//
// Errors:
//   - ErrNilMatrix, ErrTooFewRows, ErrDimensionMismatch, ErrZeroVariance (with coordinates).
//
// Complexity:
//   - Time O(n*cx*cy), Space O(n*(cx+cy) + cx*cy).
func CrossCorrelation(X, Y *Matrix[float64]) (*Matrix[float64], error) {
	// Stage 1 (Validate).
	if X == nil || Y == nil {
		return nil, matrixErrorf(opCrossCorrelation, ErrNilMatrix)
	}
	if X.Rows() != Y.Rows() {
		return nil, matrixErrorf(opCrossCorrelation, ErrDimensionMismatch)
	}

	// Stage 2 (Center): first pass computes means, second builds deviations.
	Xc, _, err := CenterColumns(X)
	if err != nil {
		return nil, matrixErrorf(opCrossCorrelation, err)
	}
	Yc, _, err := CenterColumns(Y)
	if err != nil {
		return nil, matrixErrorf(opCrossCorrelation, err)
	}

	// Stage 3 (Accumulate): sums of squares and cross products.
	cx, cy, n := X.Cols(), Y.Cols(), X.Rows()
	ssx := make([]float64, cx)
	ssy := make([]float64, cy)
	out := NewMatrix[float64](cx, cy)
	var row, i, j int
	for row = 0; row < n; row++ {
		xr, yr := Xc.Row(row), Yc.Row(row)
		for i = range xr {
			ssx[i] += xr[i] * xr[i]
		}
		for j = range yr {
			ssy[j] += yr[j] * yr[j]
			acc := out.Row(j)
			yv := yr[j]
			for i = range xr {
				acc[i] += xr[i] * yv
			}
		}
	}

	// Stage 4 (Normalize).
	for j = 0; j < cy; j++ {
		if ssy[j] == 0 {
			return nil, cellErrorf(opCrossCorrelation, 0, j, ErrZeroVariance)
		}
		acc := out.Row(j)
		sy := math.Sqrt(ssy[j])
		for i = 0; i < cx; i++ {
			if ssx[i] == 0 {
				return nil, cellErrorf(opCrossCorrelation, i, j, ErrZeroVariance)
			}
			acc[i] /= math.Sqrt(ssx[i]) * sy
		}
	}

	return out, nil
}
