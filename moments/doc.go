// SPDX-License-Identifier: MIT

// Package moments holds the streaming statistics of one or two paired
// populations and the one-pass update rules that merge single observations
// into them.
//
// A Context is configured by seven non-negative parameters: the width of each
// population, the highest raw-moment order, the highest central-moment-sum
// order, and the highest adjusted cross central-moment-sum order. For CPA the
// first population is the samples of a trace and the second the prediction
// candidates; a Welch t-test class uses only the first.
//
// Layout:
//   - P1M(d), P2M(d)     order 1..MOrder, one value per index (d=1 is the mean).
//   - P1CS(d), P2CS(d)   order 2..CSOrder, Σ (x - mean)^d. Order 1 is identically
//     zero and is never stored.
//   - P12ACS(d)          order 1..ACSOrder, a P1Width x P2Width matrix addressed
//     (sample, candidate).
//
// Scratch precomputes the deviation powers, the powers of -1/n and the
// binomial coefficients that every update formula shares, then applies the
// descending-order central sum cascade. Each order d is updated before the
// lower orders it reads, so one observation is merged in a single pass.
//
// Init is idempotent: repeating it with the same seven parameters keeps the
// accumulated state; any change reallocates and resets both cardinalities.
// A Context is not safe for concurrent mutation.
package moments
