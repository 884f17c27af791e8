// SPDX-License-Identifier: MIT

package cpa

import (
	"fmt"
	"math"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/moments"
)

// ComputeCorrelationMatrix finalizes a first-order context into out, resized
// to cols = samples, rows = candidates:
//
//	r[s,c] = ACS1[s,c] / (sqrt(CS2_trace[s]) * sqrt(CS2_pred[c]))
//
// The context is only read. On error out is left untouched.
//
// Errors:
//   - ErrEmptyContext when no trace was merged.
//   - ErrCardinality when the population cardinalities differ.
//   - ErrZeroVariance (with the failing sample or candidate) for a zero denominator.
func ComputeCorrelationMatrix(c *moments.Context, out *matrix.Matrix[float64]) error {
	s := c.Shape()
	if s.P12ACSOrder < 1 || s.P1CSOrder < 2 || s.P2CSOrder < 2 {
		panic(fmt.Sprintf(panicContextMismatch, s, "first-order correlation"))
	}
	if err := checkCards(c); err != nil {
		return err
	}

	cs2t := c.P1CS(2).Data()
	dt := make([]float64, len(cs2t))
	for smp, v := range cs2t {
		dt[smp] = math.Sqrt(v)
		if !(dt[smp] > 0) {
			return cellErrorf(opCorrelation, smp, -1, ErrZeroVariance)
		}
	}
	dp, err := predictionScale(c, 1)
	if err != nil {
		return err
	}

	fill(out, c.P12ACS(1), dt, dp, 1)

	return nil
}

// ComputeCorrelationMatrixOrder finalizes order k of a context built for an
// attack order >= k. Order k correlates (trace - mean)^k with the prediction:
//
//	r[s,c] = ACS_k/n / (sqrt(CS_2k/n - (CS_k/n)^2) * sqrt(CS2_pred/n))
//
// With CS_1 = 0 order 1 reduces to ComputeCorrelationMatrix. Errors as there.
func ComputeCorrelationMatrixOrder(c *moments.Context, out *matrix.Matrix[float64], order int) error {
	s := c.Shape()
	if order < 1 {
		panic(panicOrderInvalid)
	}
	if s.P12ACSOrder < order || s.P1CSOrder < 2*order || s.P2CSOrder < 2 {
		panic(fmt.Sprintf(panicContextMismatch, s, fmt.Sprintf("order %d correlation", order)))
	}
	if err := checkCards(c); err != nil {
		return err
	}

	divN := 1 / float64(c.P1Card())
	top := c.P1CS(2 * order).Data()
	var mid []float64
	if order >= 2 {
		mid = c.P1CS(order).Data()
	}
	dt := make([]float64, len(top))
	for smp := range top {
		v := top[smp]
		if mid != nil {
			v -= mid[smp] * mid[smp] * divN
		}
		dt[smp] = math.Sqrt(divN * v)
		if !(dt[smp] > 0) {
			return cellErrorf(opCorrelation, smp, -1, ErrZeroVariance)
		}
	}
	dp, err := predictionScale(c, divN)
	if err != nil {
		return err
	}

	fill(out, c.P12ACS(order), dt, dp, divN)

	return nil
}

// checkCards rejects empty or inconsistent contexts.
func checkCards(c *moments.Context) error {
	if c.P1Card() == 0 {
		return fmt.Errorf("%s: %w", opCorrelation, ErrEmptyContext)
	}
	if c.P1Card() != c.P2Card() {
		return fmt.Errorf("%s: %d traces, %d predictions: %w", opCorrelation, c.P1Card(), c.P2Card(), ErrCardinality)
	}

	return nil
}

// predictionScale returns sqrt(scale*CS2_pred) per candidate.
func predictionScale(c *moments.Context, scale float64) ([]float64, error) {
	cs2p := c.P2CS(2).Data()
	dp := make([]float64, len(cs2p))
	for cand, v := range cs2p {
		dp[cand] = math.Sqrt(scale * v)
		if !(dp[cand] > 0) {
			return nil, cellErrorf(opCorrelation, -1, cand, ErrZeroVariance)
		}
	}

	return dp, nil
}

// fill writes scale*acs[s,c] / (dt[s]*dp[c]) into out.
func fill(out, acs *matrix.Matrix[float64], dt, dp []float64, scale float64) {
	out.Init(len(dt), len(dp))
	var cand, smp int
	for cand = 0; cand < len(dp); cand++ {
		src, dst := acs.Row(cand), out.Row(cand)
		for smp = range dst {
			dst[smp] = scale * src[smp] / (dt[smp] * dp[cand])
		}
	}
}
