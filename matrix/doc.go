// SPDX-License-Identifier: MIT

// Package matrix provides the dense numeric buffers the moment engine is built on.
//
// 🚀 What is in here?
//
//	Vector[T] - a flat array with a logical length and a physical capacity.
//	Matrix[T] - a Vector addressed as cols x rows, row-major: (col,row) -> row*cols+col.
//
// Both types separate "how many elements are visible" from "how many are
// allocated". Init(n) grows storage only when n exceeds the capacity, and
// ShrinkRows lowers the visible row count without releasing anything, so an
// accumulator that is reset and re-initialized many times keeps its memory.
//
// ✨ Key properties:
//   - Len() <= Cap() always; capacity never shrinks implicitly.
//   - At/Set/Row are unchecked inner-loop primitives (Go slice bounds only).
//   - Data() exposes the contiguous storage for bulk access.
//
// The package also carries a small batch-statistics surface (ColumnMeans,
// CenterColumns, CrossCorrelation) computing two-pass Pearson correlations
// over whole observation matrices; it is the reference the streaming
// engine in package cpa is checked against.
//
// ⚙️ Usage:
//
//	traces := matrix.NewMatrix[float64](samplesPerTrace, noOfTraces)
//	copy(traces.Row(0), firstTrace)
//	corr, err := matrix.CrossCorrelation(traces, predictions)
package matrix
