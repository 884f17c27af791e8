// SPDX-License-Identifier: MIT

// Package cpa implements streaming Correlation Power Analysis over a
// moments.Context at any attack order.
//
// Population 1 of the context holds the samples of each trace, population 2
// the leakage predictions of every key candidate. AddTraces merges batches of
// (trace, prediction) rows in one pass; ComputeCorrelationMatrix and
// ComputeCorrelationMatrixOrder read the accumulated sums and produce the
// correlation coefficients with cols = samples and rows = candidates.
//
// Two update paths exist:
//   - first order: the single-pass covariance update, staged per block of
//     traces so the per-candidate work fans out once per block;
//   - higher order k: the binomial cascade over cross sums 1..k and trace
//     central sums 2..2k, fanned out over candidates once per trace.
//
// Both paths produce the same statistics for k=1. Traces are merged strictly
// in order; candidate ranges are split across goroutines with errgroup and
// never share writable state.
//
// Shape mismatches between a context and the algorithm applied to it panic.
// Short batches return ErrTraceCount before any accumulator is touched.
// Finalizers return ErrEmptyContext, ErrCardinality or ErrZeroVariance and
// leave the output untouched.
package cpa
