// SPDX-License-Identifier: MIT

package matrix_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/leakage/matrix"
)

const epsTight = 1e-12

// fromRows builds a cols x len(rows) matrix, one observation per row.
func fromRows(t *testing.T, rows [][]float64) *matrix.Matrix[float64] {
	t.Helper()
	require.NotEmpty(t, rows)
	m := matrix.NewMatrix[float64](len(rows[0]), len(rows))
	for r, vals := range rows {
		require.Len(t, vals, m.Cols())
		copy(m.Row(r), vals)
	}

	return m
}

// column extracts column col of m as a fresh slice.
func column(m *matrix.Matrix[float64], col int) []float64 {
	out := make([]float64, m.Rows())
	for r := range out {
		out[r] = m.At(col, r)
	}

	return out
}

func TestColumnMeans_Small(t *testing.T) {
	t.Parallel()

	X := fromRows(t, [][]float64{{1, 2, 3}, {10, 20, 30}})
	means, err := matrix.ColumnMeans(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5.5, 11, 16.5}, means, epsTight)

	_, err = matrix.ColumnMeans(matrix.NewMatrix[float64](3, 0))
	assert.True(t, errors.Is(err, matrix.ErrTooFewRows))

	_, err = matrix.ColumnMeans(nil)
	assert.True(t, errors.Is(err, matrix.ErrNilMatrix))
}

func TestCenterColumns_ZeroMean(t *testing.T) {
	t.Parallel()

	X := fromRows(t, [][]float64{{1, -4}, {3, 0}, {8, 4}})
	Xc, means, err := matrix.CenterColumns(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{4, 0}, means, epsTight)

	var col int
	for col = 0; col < Xc.Cols(); col++ {
		sum := 0.0
		for _, v := range column(Xc, col) {
			sum += v
		}
		assert.InDelta(t, 0, sum, epsTight, "col %d not centered", col)
	}
	assert.Equal(t, 1.0, X.At(0, 0), "input must not be modified")
}

// TestCrossCorrelation_MatchesGonum compares every coefficient against gonum's
// independent implementation.
func TestCrossCorrelation_MatchesGonum(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	const n, cx, cy = 50, 4, 3
	X := matrix.NewMatrix[float64](cx, n)
	Y := matrix.NewMatrix[float64](cy, n)
	for i := range X.Data() {
		X.Data()[i] = rng.NormFloat64()
	}
	for i := range Y.Data() {
		Y.Data()[i] = rng.NormFloat64() + 0.5*X.Data()[(i/cy)*cx]
	}

	corr, err := matrix.CrossCorrelation(X, Y)
	require.NoError(t, err)
	require.Equal(t, cx, corr.Cols())
	require.Equal(t, cy, corr.Rows())

	var i, j int
	for j = 0; j < cy; j++ {
		for i = 0; i < cx; i++ {
			want := stat.Correlation(column(X, i), column(Y, j), nil)
			assert.InDelta(t, want, corr.At(i, j), 1e-12, "(%d,%d)", i, j)
		}
	}
}

func TestCrossCorrelation_Errors(t *testing.T) {
	t.Parallel()

	X := fromRows(t, [][]float64{{1, 5}, {2, 5}, {3, 5}})
	Y := fromRows(t, [][]float64{{1}, {0}, {1}})

	_, err := matrix.CrossCorrelation(X, Y)
	assert.True(t, errors.Is(err, matrix.ErrZeroVariance), "constant column 1 must be rejected: %v", err)

	short := fromRows(t, [][]float64{{1}, {0}})
	_, err = matrix.CrossCorrelation(X, short)
	assert.True(t, errors.Is(err, matrix.ErrDimensionMismatch))

	_, err = matrix.CrossCorrelation(nil, Y)
	assert.True(t, errors.Is(err, matrix.ErrNilMatrix))
}

func TestCrossCorrelation_PerfectLinear(t *testing.T) {
	t.Parallel()

	X := fromRows(t, [][]float64{{1}, {2}, {3}, {4}})
	Y := fromRows(t, [][]float64{{-2, 3}, {-4, 5}, {-6, 7}, {-8, 9}})
	corr, err := matrix.CrossCorrelation(X, Y)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, corr.At(0, 0), epsTight)
	assert.InDelta(t, 1.0, corr.At(0, 1), epsTight)
	assert.False(t, math.IsNaN(corr.At(0, 1)))
}
