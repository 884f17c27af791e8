// SPDX-License-Identifier: MIT

// Package matrix - Matrix storage (row-major) over a capacity-preserving Vector.
//
// Purpose:
//   - Provide a cache-friendly row-major buffer with the explicit index formula row*cols + col.
//   - Keep the (col,row) argument order used by trace/prediction layouts:
//     a trace set is cols=samplesPerTrace x rows=noOfTraces, so Row(trace) is one trace.
//   - Reuse memory across Init/ShrinkRows cycles (capacity never shrinks).
//
// AI-Hints:
//   - Hot loops should take Row(r) or Data() once and index the slice directly.
//   - ShrinkRows is free: it only lowers the visible row count.
//
// Complexity quicksheet:
//   - NewMatrix: O(c*r); Init: O(1) within capacity; At/Set: O(1); Row: O(1); Fill: O(c*r).

package matrix

import (
	"fmt"
	"strings"
)

// ---------- error context tags ----------

const (
	opShrinkRows = "Matrix.ShrinkRows"
)

// ---------- Formatting literals ----------
const (
	_fmtRowOpen  = "["
	_fmtRowClose = "]\n"
	_fmtSep      = ", "
)

// Matrix is a Vector addressed as cols x rows in row-major order.
//   - element (col,row) lives at row*cols + col.
//   - the backing Vector may hold more capacity than cols*rows.
type Matrix[T Number] struct {
	vec  Vector[T] // flat storage, Len() == cols*rows
	cols int       // number of columns (elements per row)
	rows int       // number of visible rows
}

// Compile-time assertion for fmt.Stringer conformance.
var _ fmt.Stringer = (*Matrix[float64])(nil)

// NewMatrix creates a cols x rows matrix of zeroes.
// MAIN DESCRIPTION:
//   - Public constructor; shapes with a zero dimension are legal (empty matrix).
//
// Implementation:
//   - Stage 1: validate cols>=0 && rows>=0 (panic otherwise: programmer error).
//   - Stage 2: allocate cols*rows zeroed elements.
//
// Complexity:
//   - Time O(c*r), Space O(c*r).
func NewMatrix[T Number](cols, rows int) *Matrix[T] {
	m := &Matrix[T]{}
	m.Init(cols, rows)

	return m
}

// NewMatrixFill creates a cols x rows matrix filled with val.
func NewMatrixFill[T Number](cols, rows int, val T) *Matrix[T] {
	m := NewMatrix[T](cols, rows)
	m.Fill(val)

	return m
}

// Init reshapes the matrix to cols x rows, reallocating only when the new
// element count exceeds the current capacity.
// Complexity: O(1) within capacity, O(c*r) when growing.
func (m *Matrix[T]) Init(cols, rows int) {
	if cols < 0 || rows < 0 {
		panic(panicNegativeShape)
	}
	m.vec.Init(cols * rows)
	m.cols = cols
	m.rows = rows
}

// InitFill is Init followed by Fill(val).
func (m *Matrix[T]) InitFill(cols, rows int, val T) {
	m.Init(cols, rows)
	m.Fill(val)
}

// ShrinkRows lowers the visible row count to rows without releasing storage.
// Implementation:
//   - Stage 1: reject rows > Rows() with ErrShrinkRows.
//   - Stage 2: reslice the backing vector; capacity is untouched, so no allocation happens.
//
// Notes:
//   - Growing back within capacity via Init shows the previous contents again,
//     but callers must not rely on that.
//
// Complexity:
//   - Time O(1).
func (m *Matrix[T]) ShrinkRows(rows int) error {
	if rows < 0 || rows > m.rows {
		return matrixErrorf(opShrinkRows, fmt.Errorf("%d > %d: %w", rows, m.rows, ErrShrinkRows))
	}
	m.vec.Init(m.cols * rows)
	m.rows = rows

	return nil
}

// Cols returns the number of columns.
func (m *Matrix[T]) Cols() int { return m.cols }

// Rows returns the number of visible rows.
func (m *Matrix[T]) Rows() int { return m.rows }

// Len returns the number of visible elements (cols*rows).
func (m *Matrix[T]) Len() int { return m.vec.Len() }

// Cap returns the capacity of the backing storage in elements.
func (m *Matrix[T]) Cap() int { return m.vec.Cap() }

// Size returns the visible size in bytes.
func (m *Matrix[T]) Size() int { return m.vec.Size() }

// Fill overwrites every visible element with val.
func (m *Matrix[T]) Fill(val T) { m.vec.Fill(val) }

// At returns element (col,row). Bounds are the caller's responsibility.
func (m *Matrix[T]) At(col, row int) T { return m.vec.data[row*m.cols+col] }

// Set assigns element (col,row).
func (m *Matrix[T]) Set(col, row int, val T) { m.vec.data[row*m.cols+col] = val }

// Row returns the contiguous slice holding row r (length Cols()).
func (m *Matrix[T]) Row(r int) []T {
	base := r * m.cols

	return m.vec.data[base : base+m.cols : base+m.cols]
}

// Data returns the flat row-major storage (length Len()).
func (m *Matrix[T]) Data() []T { return m.vec.Data() }

// String implements fmt.Stringer for debugging; one bracketed line per row.
// Complexity: O(r*c).
func (m *Matrix[T]) String() string {
	var sb strings.Builder
	var row, col int
	for row = 0; row < m.rows; row++ {
		sb.WriteString(_fmtRowOpen)
		for col = 0; col < m.cols; col++ {
			sb.WriteString(fmt.Sprintf("%v", m.At(col, row)))
			if col < m.cols-1 {
				sb.WriteString(_fmtSep)
			}
		}
		sb.WriteString(_fmtRowClose)
	}

	return sb.String()
}
