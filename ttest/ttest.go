// SPDX-License-Identifier: MIT

// Package ttest implements the streaming Welch t-test used for leakage
// assessment, generalized to higher statistical orders.
//
// Every class owns a single-population moments.Context holding the running
// mean and the central sums up to order 2*maxOrder. AddTraces merges traces
// with the shared central sum cascade. ComputeTValsDegs compares two classes
// at one order and writes, per sample, the t-statistic (row 0) and the
// Welch–Satterthwaite degrees of freedom (row 1).
//
// Order 1 tests the means, order 2 the variances, and order k > 2 the
// standardized k-th central moment of every sample.
package ttest

import (
	"fmt"
	"math"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/moments"
)

const (
	opAddTraces = "ttest.AddTraces"
	opTVals     = "ttest.ComputeTValsDegs"
)

// Result rows of ComputeTValsDegs.
const (
	RowT   = 0
	RowDOF = 1
)

// NewClassContext returns a zeroed class context able to answer every order
// up to maxOrder: (samples, 0, 1, 0, 2*maxOrder, 0, 0). Panics when maxOrder < 1.
func NewClassContext(samples, maxOrder int) *moments.Context {
	if maxOrder < 1 {
		panic(panicOrderInvalid)
	}

	c := moments.New()
	c.InitShape(moments.Shape{P1Width: samples, P1MOrder: 1, P1CSOrder: 2 * maxOrder})
	c.Reset()

	return c
}

// AddTraces merges the first noOfTraces rows of traces into the class context c.
// The context must be shaped P1MOrder()==1, P1CSOrder()==2*attackOrder with no
// second population or cross sums, and the trace width must equal P1Width();
// anything else panics. A short batch returns ErrTraceCount and changes nothing.
func AddTraces(c *moments.Context, traces *matrix.Matrix[float64], noOfTraces, attackOrder int) error {
	if attackOrder < 1 {
		panic(panicOrderInvalid)
	}
	s := c.Shape()
	if s.P1MOrder != 1 || s.P1CSOrder != 2*attackOrder || s.P12ACSOrder != 0 {
		panic(fmt.Sprintf(panicContextMismatch, s, fmt.Sprintf("t-test of order %d", attackOrder)))
	}
	if noOfTraces < 0 {
		return fmt.Errorf("%s: negative trace count %d: %w", opAddTraces, noOfTraces, ErrTraceCount)
	}
	if noOfTraces == 0 {
		return nil
	}
	if traces == nil {
		return fmt.Errorf("%s: %w", opAddTraces, matrix.ErrNilMatrix)
	}
	if traces.Cols() != c.P1Width() {
		panic(fmt.Sprintf(panicWidthMismatch, traces.Cols(), c.P1Width()))
	}
	if traces.Rows() < noOfTraces {
		return fmt.Errorf("%s: %d traces requested, have %d: %w", opAddTraces, noOfTraces, traces.Rows(), ErrTraceCount)
	}

	var sc moments.Scratch
	for i := 0; i < noOfTraces; i++ {
		c.AddP1(&sc, traces.Row(i))
	}

	return nil
}

// ComputeTValsDegs compares classes c1 and c2 at the given order and resizes
// out to cols = samples, rows = 2: row RowT holds
//
//	t = (mean2 - mean1) / sqrt(var2/n2 + var1/n1)
//
// and row RowDOF the Welch–Satterthwaite degrees of freedom. Per order:
//   - 1: mean = M1, var = CS2/n
//   - 2: mean = CS2/n, var = CS4/n - (CS2/n)^2
//   - k: mean = (CSk/n) / (CS2/n)^(k/2), var = (CS2k/n - (CSk/n)^2) / (CS2/n)^k
//
// Both contexts must hold central sums up to 2*order and share their width;
// anything else panics. On error out is left untouched.
//
// Errors:
//   - ErrTooFewTraces when a class has fewer than two traces.
//   - ErrZeroVariance (with the failing sample) when var2/n2 + var1/n1 is zero.
func ComputeTValsDegs(c1, c2 *moments.Context, out *matrix.Matrix[float64], order int) error {
	if order < 1 {
		panic(panicOrderInvalid)
	}
	for _, c := range []*moments.Context{c1, c2} {
		if c.P1CSOrder() < 2*order || c.P1MOrder() < 1 {
			panic(fmt.Sprintf(panicContextMismatch, c.Shape(), fmt.Sprintf("t-values of order %d", order)))
		}
	}
	if c1.P1Width() != c2.P1Width() {
		panic(fmt.Sprintf(panicWidthMismatch, c2.P1Width(), c1.P1Width()))
	}
	if c1.P1Card() < 2 || c2.P1Card() < 2 {
		return fmt.Errorf("%s: classes hold %d and %d traces: %w", opTVals, c1.P1Card(), c2.P1Card(), ErrTooFewTraces)
	}

	width := c1.P1Width()
	n1, n2 := float64(c1.P1Card()), float64(c2.P1Card())
	tvals := make([]float64, width)
	dofs := make([]float64, width)
	for smp := 0; smp < width; smp++ {
		m1, v1 := classMoments(c1, smp, order)
		m2, v2 := classMoments(c2, smp, order)
		a, b := v1/n1, v2/n2
		den := a + b
		if !(den > 0) {
			return fmt.Errorf("%s(sample=%d): %w", opTVals, smp, ErrZeroVariance)
		}
		tvals[smp] = (m2 - m1) / math.Sqrt(den)
		dofs[smp] = den * den / (b*b/(n2-1) + a*a/(n1-1))
	}

	out.Init(width, 2)
	copy(out.Row(RowT), tvals)
	copy(out.Row(RowDOF), dofs)

	return nil
}

// classMoments returns the (mean, variance) pair of one sample at order.
func classMoments(c *moments.Context, smp, order int) (float64, float64) {
	divN := 1 / float64(c.P1Card())
	switch order {
	case 1:
		return c.P1M(1).At(smp), c.P1CS(2).At(smp) * divN
	case 2:
		m := c.P1CS(2).At(smp) * divN

		return m, c.P1CS(4).At(smp)*divN - m*m
	default:
		m2 := c.P1CS(2).At(smp) * divN
		mk := c.P1CS(order).At(smp) * divN
		m2k := c.P1CS(2*order).At(smp) * divN
		k := float64(order)

		return mk / math.Pow(math.Sqrt(m2), k), (m2k - mk*mk) / math.Pow(m2, k)
	}
}
