// SPDX-License-Identifier: MIT

package cpa

import (
	"fmt"
	"math"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/moments"
)

// AddTracesHigherOrder merges noOfTraces (trace, prediction) pairs into a CPA
// context of the given attack order k. The context must be shaped
// P1CSOrder()==2k, P2CSOrder()==2, P12ACSOrder()==k with mean orders >= 1;
// anything else, or k < 1, panics.
//
// For every trace, with n the cardinality after the merge, dT = trace - mean
// and dL = pred - predMean, the cross sums are updated from order k down to 1:
//
//	ACS_d += beta_d*dL*dT^d - dL/n*CS_d
//	       + Σ_{p=1}^{d-1} C(d,p)*(-1/n)^p*(ACS_{d-p} - dL/n*CS_{d-p})*dT^p
//	beta_d = ((n-1)/n)^(d+1) + (-1)^(d+1)*(n-1)/n^(d+1)
//
// then the trace central sums 2k..2, the prediction CS2 and both means.
// The cross-sum stage fans out over candidates; traces stay sequential.
func AddTracesHigherOrder(c *moments.Context, traces, predicts *matrix.Matrix[float64], noOfTraces, attackOrder int, opts ...Option) error {
	// Stage 1 (Validate).
	if attackOrder < 1 {
		panic(panicOrderInvalid)
	}
	s := c.Shape()
	if s.P1CSOrder != 2*attackOrder || s.P2CSOrder != 2 || s.P12ACSOrder != attackOrder ||
		s.P1MOrder < 1 || s.P2MOrder < 1 {
		panic(fmt.Sprintf(panicContextMismatch, s, fmt.Sprintf("CPA of order %d", attackOrder)))
	}
	if err := checkBatch(c, traces, predicts, noOfTraces); err != nil {
		return err
	}
	if noOfTraces == 0 {
		return nil
	}

	o := gatherOptions(opts...)
	samples, cands := c.P1Width(), c.P2Width()
	chunks := o.chunks(cands, samples*cands*attackOrder)
	p1M1 := c.P1M(1).Data()
	p2M1, p2CS2 := c.P2M(1).Data(), c.P2CS(2).Data()
	p1CS := func(order int) []float64 { return c.P1CS(order).Data() }

	var sc moments.Scratch
	deltaL := make([]float64, cands)
	beta := make([]float64, attackOrder+1)

	for i := 0; i < noOfTraces; i++ {
		// Stage 2 (Prepare): per-trace powers and scalars shared by all workers.
		n := c.P1Card() + 1
		sc.Prepare(traces.Row(i), p1M1, n, 2*attackOrder)
		pred := predicts.Row(i)
		for cand := range deltaL {
			deltaL[cand] = pred[cand] - p2M1[cand]
		}
		nf := float64(n)
		for deg := 1; deg <= attackOrder; deg++ {
			sign := 1.0
			if deg%2 == 0 {
				sign = -1
			}
			beta[deg] = math.Pow((nf-1)/nf, float64(deg+1)) + sign*(nf-1)/math.Pow(nf, float64(deg+1))
		}

		// Stage 3 (Cross sums): reads old CS and lower ACS of the same candidate.
		fanOut(chunks, cands, func(lo, hi int) {
			updateCross(c, &sc, deltaL, beta, attackOrder, lo, hi)
		})

		// Stage 4 (Central sums and means).
		sc.UpdateCentralSums(2*attackOrder, p1CS)
		divN := sc.DivN()
		for cand, dl := range deltaL {
			p2CS2[cand] += dl * dl * (nf - 1) * divN
			p2M1[cand] += dl * divN
		}
		sc.UpdateMean(p1M1)
		c.SetP1Card(n)
	}
	c.SetP2Card(c.P1Card())

	return nil
}

// updateCross applies the cross-sum cascade to candidates [lo,hi).
func updateCross(c *moments.Context, sc *moments.Scratch, deltaL, beta []float64, attackOrder, lo, hi int) {
	divN := sc.DivN()
	var cand, deg, p, smp int
	for cand = lo; cand < hi; cand++ {
		dl := deltaL[cand]
		gamma := -dl * divN
		for deg = attackOrder; deg >= 1; deg-- {
			row := c.P12ACS(deg).Row(cand)
			alpha := beta[deg] * dl
			dd := sc.Delta(deg)
			if deg >= 2 {
				cs := c.P1CS(deg).Data()
				for smp = range row {
					row[smp] += alpha*dd[smp] + gamma*cs[smp]
				}
			} else {
				for smp = range row {
					row[smp] += alpha * dd[smp]
				}
			}

			for p = 1; p < deg; p++ {
				lower := c.P12ACS(deg - p).Row(cand)
				f := sc.MinusDivN(p) * sc.Binom(deg, p)
				dp := sc.Delta(p)
				if deg-p >= 2 {
					cs := c.P1CS(deg - p).Data()
					for smp = range row {
						row[smp] += (lower[smp] + gamma*cs[smp]) * f * dp[smp]
					}
				} else {
					for smp = range row {
						row[smp] += lower[smp] * f * dp[smp]
					}
				}
			}
		}
	}
}
