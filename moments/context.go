// SPDX-License-Identifier: MIT

package moments

import (
	"fmt"

	"github.com/katalvlaran/leakage/matrix"
)

// Shape is the seven-parameter configuration of a Context.
//
// Fields:
//   - P1Width, P2Width     - distinct indices per population (samples, candidates).
//   - P1MOrder, P2MOrder   - highest raw-moment order kept (1 = running mean).
//   - P1CSOrder, P2CSOrder - highest central-moment-sum order kept (>= 2 to keep any).
//   - P12ACSOrder          - highest adjusted cross central-moment-sum order (0 = none).
type Shape struct {
	P1Width, P2Width     int
	P1MOrder, P2MOrder   int
	P1CSOrder, P2CSOrder int
	P12ACSOrder          int
}

// Valid reports whether every width and order is non-negative.
func (s Shape) Valid() bool {
	return s.P1Width >= 0 && s.P2Width >= 0 &&
		s.P1MOrder >= 0 && s.P2MOrder >= 0 &&
		s.P1CSOrder >= 0 && s.P2CSOrder >= 0 &&
		s.P12ACSOrder >= 0
}

// String renders the shape for diagnostics.
func (s Shape) String() string {
	return fmt.Sprintf("p1(w=%d,M=%d,CS=%d) p2(w=%d,M=%d,CS=%d) ACS=%d",
		s.P1Width, s.P1MOrder, s.P1CSOrder, s.P2Width, s.P2MOrder, s.P2CSOrder, s.P12ACSOrder)
}

// csLen returns how many central-sum vectors an order needs; order 1 is
// definitionally zero and never materialized.
func csLen(order int) int {
	if order > 1 {
		return order - 1
	}

	return 0
}

// Context accumulates the statistics of one or two paired populations.
//
// Population 1 is the samples-per-trace axis; population 2 is optional (the
// prediction candidates in CPA, absent in a t-test class). Per-order arrays are
// owned by the context and keep their capacity across Init/Reset cycles.
type Context struct {
	shape  Shape
	p1Card int
	p2Card int

	p1M    []matrix.Vector[float64] // raw moments, index order-1
	p2M    []matrix.Vector[float64]
	p1CS   []matrix.Vector[float64] // central-moment sums, index order-2
	p2CS   []matrix.Vector[float64]
	p12ACS []matrix.Matrix[float64] // adjusted cross sums, index order-1; cols=P1Width, rows=P2Width
}

// New returns an empty context; call Init before use.
func New() *Context { return &Context{} }

// NewContext returns a context initialized to the given shape and zeroed.
func NewContext(p1Width, p2Width, p1MOrder, p2MOrder, p1CSOrder, p2CSOrder, p12ACSOrder int) *Context {
	c := New()
	c.Init(p1Width, p2Width, p1MOrder, p2MOrder, p1CSOrder, p2CSOrder, p12ACSOrder)
	c.Reset()

	return c
}

// Init sizes every internal array to the given widths and orders.
// It is a no-op when all seven parameters already match, so it is safe to call
// repeatedly; otherwise arrays are (re)sized and both cardinalities drop to zero.
// Stored values are unspecified after a reshaping Init; follow with Reset or Fill.
// Negative parameters panic.
func (c *Context) Init(p1Width, p2Width, p1MOrder, p2MOrder, p1CSOrder, p2CSOrder, p12ACSOrder int) {
	s := Shape{
		P1Width: p1Width, P2Width: p2Width,
		P1MOrder: p1MOrder, P2MOrder: p2MOrder,
		P1CSOrder: p1CSOrder, P2CSOrder: p2CSOrder,
		P12ACSOrder: p12ACSOrder,
	}
	if s == c.shape && c.p1M != nil {
		return // already there
	}
	if !s.Valid() {
		panic(fmt.Sprintf("moments: invalid context shape %s", s))
	}

	c.shape = s
	c.p1Card, c.p2Card = 0, 0

	c.p1M = resizeVectors(c.p1M, p1MOrder, p1Width)
	c.p2M = resizeVectors(c.p2M, p2MOrder, p2Width)
	c.p1CS = resizeVectors(c.p1CS, csLen(p1CSOrder), p1Width)
	c.p2CS = resizeVectors(c.p2CS, csLen(p2CSOrder), p2Width)

	if cap(c.p12ACS) >= p12ACSOrder {
		c.p12ACS = c.p12ACS[:p12ACSOrder]
	} else {
		c.p12ACS = append(c.p12ACS[:cap(c.p12ACS)], make([]matrix.Matrix[float64], p12ACSOrder-cap(c.p12ACS))...)
	}
	for i := range c.p12ACS {
		c.p12ACS[i].Init(p1Width, p2Width)
	}
}

// resizeVectors keeps vs' elements (and their storage) where possible.
func resizeVectors(vs []matrix.Vector[float64], n, width int) []matrix.Vector[float64] {
	if cap(vs) >= n {
		vs = vs[:n]
	} else {
		vs = append(vs[:cap(vs)], make([]matrix.Vector[float64], n-cap(vs))...)
	}
	if vs == nil {
		vs = []matrix.Vector[float64]{}
	}
	for i := range vs {
		vs[i].Init(width)
	}

	return vs
}

// InitShape is Init taking a Shape value.
func (c *Context) InitShape(s Shape) {
	c.Init(s.P1Width, s.P2Width, s.P1MOrder, s.P2MOrder, s.P1CSOrder, s.P2CSOrder, s.P12ACSOrder)
}

// Fill sets every stored statistic to val. Cardinalities are not touched.
func (c *Context) Fill(val float64) {
	for i := range c.p1M {
		c.p1M[i].Fill(val)
	}
	for i := range c.p2M {
		c.p2M[i].Fill(val)
	}
	for i := range c.p1CS {
		c.p1CS[i].Fill(val)
	}
	for i := range c.p2CS {
		c.p2CS[i].Fill(val)
	}
	for i := range c.p12ACS {
		c.p12ACS[i].Fill(val)
	}
}

// Reset zeroes all statistics and both cardinalities without changing the shape.
func (c *Context) Reset() {
	c.Fill(0)
	c.p1Card = 0
	c.p2Card = 0
}

// Shape returns the configured widths and orders.
func (c *Context) Shape() Shape { return c.shape }

// P1Width is the width of the first population.
func (c *Context) P1Width() int { return c.shape.P1Width }

// P2Width is the width of the second population.
func (c *Context) P2Width() int { return c.shape.P2Width }

// P1MOrder is the highest raw-moment order of the first population.
func (c *Context) P1MOrder() int { return c.shape.P1MOrder }

// P2MOrder is the highest raw-moment order of the second population.
func (c *Context) P2MOrder() int { return c.shape.P2MOrder }

// P1CSOrder is the highest central-moment-sum order of the first population.
func (c *Context) P1CSOrder() int { return c.shape.P1CSOrder }

// P2CSOrder is the highest central-moment-sum order of the second population.
func (c *Context) P2CSOrder() int { return c.shape.P2CSOrder }

// P12ACSOrder is the highest adjusted cross central-moment-sum order.
func (c *Context) P12ACSOrder() int { return c.shape.P12ACSOrder }

// P1Card is the number of observations merged into the first population.
func (c *Context) P1Card() int { return c.p1Card }

// SetP1Card overwrites the first population's cardinality.
func (c *Context) SetP1Card(n int) { c.p1Card = n }

// P2Card is the number of observations merged into the second population.
func (c *Context) P2Card() int { return c.p2Card }

// SetP2Card overwrites the second population's cardinality.
func (c *Context) SetP2Card(n int) { c.p2Card = n }

// P1M returns the raw moment of the first population, order 1..P1MOrder.
func (c *Context) P1M(order int) *matrix.Vector[float64] { return &c.p1M[order-1] }

// P2M returns the raw moment of the second population, order 1..P2MOrder.
func (c *Context) P2M(order int) *matrix.Vector[float64] { return &c.p2M[order-1] }

// P1CS returns the central moment sum of the first population, order 2..P1CSOrder.
func (c *Context) P1CS(order int) *matrix.Vector[float64] { return &c.p1CS[order-2] }

// P2CS returns the central moment sum of the second population, order 2..P2CSOrder.
func (c *Context) P2CS(order int) *matrix.Vector[float64] { return &c.p2CS[order-2] }

// P12ACS returns the adjusted cross central moment sum, order 1..P12ACSOrder.
// Element (sample, candidate) is At(sample, candidate); Row(candidate) spans all samples.
func (c *Context) P12ACS(order int) *matrix.Matrix[float64] { return &c.p12ACS[order-1] }
