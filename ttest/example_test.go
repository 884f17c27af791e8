// SPDX-License-Identifier: MIT

package ttest_test

import (
	"fmt"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/ttest"
)

// ExampleComputeTValsDegs compares two small classes at first order.
func ExampleComputeTValsDegs() {
	fixed := ttest.NewClassContext(1, 1)
	random := ttest.NewClassContext(1, 1)
	_ = ttest.AddTraces(fixed, column([]float64{1, 2, 3, 4}), 4, 1)
	_ = ttest.AddTraces(random, column([]float64{3, 4, 5, 6}), 4, 1)

	var out matrix.Matrix[float64]
	if err := ttest.ComputeTValsDegs(fixed, random, &out, 1); err != nil {
		fmt.Println(err)

		return
	}
	fmt.Printf("t=%.4f dof=%.1f\n", out.At(0, ttest.RowT), out.At(0, ttest.RowDOF))
	// Output: t=2.5298 dof=6.0
}
