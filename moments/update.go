// SPDX-License-Identifier: MIT

package moments

import (
	"math"

	"github.com/katalvlaran/leakage/matrix"
)

// Scratch carries the per-observation terms shared by every update rule:
// the powers of the deviation from the running mean, the powers of -1/n and
// the binomial coefficients. A Scratch is reused across observations and is
// not safe for concurrent Prepare calls.
type Scratch struct {
	deltas    matrix.Matrix[float64] // row d-1 holds delta^d
	minusDivN []float64              // index d-1 holds (-1/n)^d
	binom     [][]float64            // Pascal's triangle, binom[n][k]
	n         int                    // cardinality including the observation being merged
}

// Prepare computes delta = obs - mean and its powers 1..maxPower, together with
// (-1/n)^d for d in 1..maxPower, where n is the cardinality after the merge.
// len(obs) must equal len(mean); maxPower must be >= 1.
func (s *Scratch) Prepare(obs, mean []float64, n, maxPower int) {
	s.n = n
	s.deltas.Init(len(obs), maxPower)
	s.ensureBinomials(maxPower)

	first := s.deltas.Row(0)
	var i int
	for i = range first {
		first[i] = obs[i] - mean[i]
	}
	var d int
	for d = 1; d < maxPower; d++ {
		prev, cur := s.deltas.Row(d-1), s.deltas.Row(d)
		for i = range cur {
			cur[i] = prev[i] * first[i]
		}
	}

	if cap(s.minusDivN) < maxPower {
		s.minusDivN = make([]float64, maxPower)
	}
	s.minusDivN = s.minusDivN[:maxPower]
	m := -1.0 / float64(n)
	acc := 1.0
	for d = range s.minusDivN {
		acc *= m
		s.minusDivN[d] = acc
	}
}

// ensureBinomials grows Pascal's triangle to row top.
func (s *Scratch) ensureBinomials(top int) {
	for r := len(s.binom); r <= top; r++ {
		row := make([]float64, r+1)
		row[0], row[r] = 1, 1
		for k := 1; k < r; k++ {
			row[k] = s.binom[r-1][k-1] + s.binom[r-1][k]
		}
		s.binom = append(s.binom, row)
	}
}

// N is the cardinality after the merge of the prepared observation.
func (s *Scratch) N() int { return s.n }

// DivN is 1/N().
func (s *Scratch) DivN() float64 { return 1.0 / float64(s.n) }

// Delta returns delta^power for every index, power in 1..maxPower.
func (s *Scratch) Delta(power int) []float64 { return s.deltas.Row(power - 1) }

// MinusDivN returns (-1/n)^power, power in 1..maxPower.
func (s *Scratch) MinusDivN(power int) float64 { return s.minusDivN[power-1] }

// Binom returns the binomial coefficient C(n, k) for n <= maxPower.
func (s *Scratch) Binom(n, k int) float64 { return s.binom[n][k] }

// UpdateCentralSums merges the prepared observation into the central moment
// sums cs, where cs(d) returns the sum of order d for 2 <= d <= maxOrder.
// Orders are updated from highest to lowest so every step reads the lower
// orders as they stood before this observation.
//
//	CS_d += (1 - (-1/(n-1))^(d-1)) * ((n-1)/n)^d * delta^d
//	      + Σ_{p=1}^{d-2} C(d,p) * (-1/n)^p * CS_{d-p} * delta^p
func (s *Scratch) UpdateCentralSums(maxOrder int, cs func(order int) []float64) {
	n := float64(s.n)
	var deg, p, i int
	for deg = maxOrder; deg >= 2; deg-- {
		var alpha float64
		if s.n > 1 {
			alpha = 1 - math.Pow(-1/(n-1), float64(deg-1))
		}
		beta := alpha * math.Pow((n-1)/n, float64(deg))

		dst := cs(deg)
		dd := s.Delta(deg)
		for i = range dst {
			dst[i] += beta * dd[i]
		}
		for p = 1; p <= deg-2; p++ {
			lower := cs(deg - p)
			dp := s.Delta(p)
			f := s.MinusDivN(p) * s.Binom(deg, p)
			for i = range dst {
				dst[i] += lower[i] * f * dp[i]
			}
		}
	}
}

// UpdateMean advances a running mean by the prepared delta: mean += delta/n.
func (s *Scratch) UpdateMean(mean []float64) {
	divN := s.DivN()
	d := s.Delta(1)
	for i := range mean {
		mean[i] += d[i] * divN
	}
}

// AddP1 merges one observation of the first population into c: central sums
// up to P1CSOrder, the running mean, and the cardinality. It is the whole
// update of a context without a second population or cross sums.
// len(obs) must equal P1Width and P1MOrder must be >= 1.
func (c *Context) AddP1(s *Scratch, obs []float64) {
	maxPower := c.shape.P1CSOrder
	if maxPower < 1 {
		maxPower = 1
	}
	mean := c.P1M(1).Data()
	s.Prepare(obs, mean, c.p1Card+1, maxPower)
	s.UpdateCentralSums(c.shape.P1CSOrder, func(order int) []float64 { return c.P1CS(order).Data() })
	s.UpdateMean(mean)
	c.p1Card++
}
