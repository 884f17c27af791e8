// SPDX-License-Identifier: MIT

package ttest

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/leakage/matrix"
)

const (
	// DefaultThreshold is the customary |t| above which a sample is flagged.
	DefaultThreshold = 4.5

	// DefiniteThreshold is the |t| beyond which leakage is certain for any
	// realistic number of traces.
	DefiniteThreshold = 500
)

// Verdict classifies a maximum |t|.
type Verdict int

const (
	// NoLeak means no sample exceeded the threshold.
	NoLeak Verdict = iota
	// Leak means some sample exceeded the threshold.
	Leak
	// DefiniteLeak means some sample exceeded DefiniteThreshold.
	DefiniteLeak
)

// String returns a lower-case label.
func (v Verdict) String() string {
	switch v {
	case NoLeak:
		return "no leakage"
	case Leak:
		return "leakage"
	case DefiniteLeak:
		return "definite leakage"
	default:
		return "unknown"
	}
}

// Judge classifies maxT against threshold (DefaultThreshold when <= 0).
func Judge(maxT, threshold float64) Verdict {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	switch {
	case maxT > DefiniteThreshold:
		return DefiniteLeak
	case maxT > threshold:
		return Leak
	default:
		return NoLeak
	}
}

// PValue returns the two-sided p-value of t under a Student's t distribution
// with dof degrees of freedom. dof must be positive; otherwise NaN.
func PValue(t, dof float64) float64 {
	if !(dof > 0) || math.IsNaN(t) {
		return math.NaN()
	}
	d := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}

	return 2 * d.Survival(math.Abs(t))
}

// MaxAbsT returns the largest |t| in row RowT of a ComputeTValsDegs result and
// its sample index; (0, -1) for an empty result.
func MaxAbsT(out *matrix.Matrix[float64]) (float64, int) {
	best, at := 0.0, -1
	if out == nil || out.Rows() <= RowT {
		return best, at
	}
	for smp, v := range out.Row(RowT) {
		if a := math.Abs(v); at < 0 || a > best {
			best, at = a, smp
		}
	}

	return best, at
}

// Leaks returns the sample indices whose |t| exceeds threshold
// (DefaultThreshold when <= 0), in ascending order.
func Leaks(out *matrix.Matrix[float64], threshold float64) []int {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var idx []int
	if out == nil || out.Rows() <= RowT {
		return idx
	}
	for smp, v := range out.Row(RowT) {
		if math.Abs(v) > threshold {
			idx = append(idx, smp)
		}
	}

	return idx
}
