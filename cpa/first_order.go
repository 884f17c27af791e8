// SPDX-License-Identifier: MIT

package cpa

import (
	"fmt"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/moments"
)

// AddTracesFirstOrder merges noOfTraces (trace, prediction) pairs into a
// first-order CPA context with the single-pass covariance update. With n the
// cardinality before a trace and d = trace - traceMean:
//
//	ACS1[s,c] += n/(n+1) * (pred[c] - predMean[c]) * d[s]
//
// followed by the Welford mean/variance update of both populations.
//
// Implementation:
//   - Stage 1: validate; nothing is touched when an error is returned.
//   - Stage 2: for each block of traces, stage the trace deltas and advance the
//     trace-side mean and CS2 sequentially.
//   - Stage 3: fan the candidates out; every worker replays the block in trace
//     order over its own candidate rows of ACS1.
//
// The context must satisfy P12ACSOrder()==1, P1CSOrder()>=2, P2CSOrder()>=2 and
// both mean orders >= 1; anything else panics.
//
// Complexity:
//   - Time O(T*S*C), Space O(min(T,64)*S).
func AddTracesFirstOrder(c *moments.Context, traces, predicts *matrix.Matrix[float64], noOfTraces int, opts ...Option) error {
	// Stage 1 (Validate).
	s := c.Shape()
	if s.P12ACSOrder != 1 || s.P1CSOrder < 2 || s.P2CSOrder < 2 || s.P1MOrder < 1 || s.P2MOrder < 1 {
		panic(fmt.Sprintf(panicContextMismatch, s, "first-order CPA"))
	}
	if err := checkBatch(c, traces, predicts, noOfTraces); err != nil {
		return err
	}
	if noOfTraces == 0 {
		return nil
	}

	o := gatherOptions(opts...)
	samples, cands := c.P1Width(), c.P2Width()
	p1M1, p1CS2 := c.P1M(1).Data(), c.P1CS(2).Data()
	p2M1, p2CS2 := c.P2M(1).Data(), c.P2CS(2).Data()
	acs := c.P12ACS(1)
	chunks := o.chunks(cands, samples*cands)

	var staged matrix.Matrix[float64]
	staged.Init(samples, min(replayBlock, noOfTraces))

	for start := 0; start < noOfTraces; start += replayBlock {
		end := min(start+replayBlock, noOfTraces)
		n0 := c.P1Card()

		// Stage 2 (Trace side): deltas against the mean before each trace.
		var i, smp int
		for i = start; i < end; i++ {
			n1 := float64(n0+i-start) + 1
			t, d := traces.Row(i), staged.Row(i-start)
			for smp = range t {
				d[smp] = t[smp] - p1M1[smp]
				p1M1[smp] += d[smp] / n1
				p1CS2[smp] += d[smp] * (t[smp] - p1M1[smp])
			}
		}

		// Stage 3 (Candidates): disjoint ACS rows and p2 entries per worker.
		fanOut(chunks, cands, func(lo, hi int) {
			var i, cand, smp int
			for i = start; i < end; i++ {
				n := float64(n0 + i - start)
				scale := n / (n + 1)
				pred, d := predicts.Row(i), staged.Row(i-start)
				for cand = lo; cand < hi; cand++ {
					dl := pred[cand] - p2M1[cand]
					alpha := scale * dl
					row := acs.Row(cand)
					for smp = range row {
						row[smp] += alpha * d[smp]
					}
					p2M1[cand] += dl / (n + 1)
					p2CS2[cand] += dl * (pred[cand] - p2M1[cand])
				}
			}
		})

		c.SetP1Card(n0 + end - start)
	}
	c.SetP2Card(c.P1Card())

	return nil
}
