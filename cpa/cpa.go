// SPDX-License-Identifier: MIT

package cpa

import (
	"fmt"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/moments"
)

// Operation name constants for unified error wrapping.
const (
	opAddTraces   = "cpa.AddTraces"
	opCorrelation = "cpa.ComputeCorrelationMatrix"
)

// NewContext returns a zeroed context shaped for CPA of the given attack order:
// (samples, candidates, 1, 1, 2*order, 2, order). Panics when order < 1.
func NewContext(samples, candidates, order int) *moments.Context {
	if order < 1 {
		panic(panicOrderInvalid)
	}

	return moments.NewContext(samples, candidates, 1, 1, 2*order, 2, order)
}

// AddTraces merges the first noOfTraces rows of traces and predicts into c.
// A context with P12ACSOrder()==1 takes the first-order fast path; any other
// takes the higher-order path at attack order P12ACSOrder().
func AddTraces(c *moments.Context, traces, predicts *matrix.Matrix[float64], noOfTraces int, opts ...Option) error {
	if c.P12ACSOrder() == 1 {
		return AddTracesFirstOrder(c, traces, predicts, noOfTraces, opts...)
	}

	return AddTracesHigherOrder(c, traces, predicts, noOfTraces, c.P12ACSOrder(), opts...)
}

// checkBatch validates the row counts of one batch against noOfTraces and the
// widths against the context. Width mismatches are programmer errors and panic.
func checkBatch(c *moments.Context, traces, predicts *matrix.Matrix[float64], noOfTraces int) error {
	if noOfTraces < 0 {
		return fmt.Errorf("%s: negative trace count %d: %w", opAddTraces, noOfTraces, ErrTraceCount)
	}
	if noOfTraces == 0 {
		return nil
	}
	if traces == nil || predicts == nil {
		return fmt.Errorf("%s: %w", opAddTraces, matrix.ErrNilMatrix)
	}
	if traces.Cols() != c.P1Width() {
		panic(fmt.Sprintf(panicWidthMismatch, "trace", traces.Cols(), c.P1Width()))
	}
	if predicts.Cols() != c.P2Width() {
		panic(fmt.Sprintf(panicWidthMismatch, "prediction", predicts.Cols(), c.P2Width()))
	}
	if traces.Rows() < noOfTraces || predicts.Rows() < noOfTraces {
		return fmt.Errorf("%s: %d traces requested, have %d traces and %d predictions: %w",
			opAddTraces, noOfTraces, traces.Rows(), predicts.Rows(), ErrTraceCount)
	}

	return nil
}
