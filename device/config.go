// SPDX-License-Identifier: MIT

package device

import (
	"fmt"

	"github.com/katalvlaran/leakage/sample"
)

// CPAConfig configures a CPA device.
type CPAConfig struct {
	TraceLength    int         `yaml:"trace_length"`    // samples per trace, >= 1
	SampleType     sample.Type `yaml:"sample_type"`     // trace element type
	Candidates     int         `yaml:"candidates"`      // predictions per trace, >= 1
	PredictionType sample.Type `yaml:"prediction_type"` // prediction element type
	Order          int         `yaml:"order"`           // highest attack order, >= 1
	Workers        int         `yaml:"workers"`         // candidate fan-out; 0 = GOMAXPROCS
}

// Validate reports the first problem found, wrapped with ErrInvalidConfig.
func (c CPAConfig) Validate() error {
	switch {
	case c.TraceLength < 1:
		return fmt.Errorf("cpa: trace_length %d must be >= 1: %w", c.TraceLength, ErrInvalidConfig)
	case c.Candidates < 1:
		return fmt.Errorf("cpa: candidates %d must be >= 1: %w", c.Candidates, ErrInvalidConfig)
	case c.Order < 1:
		return fmt.Errorf("cpa: order %d must be >= 1: %w", c.Order, ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("cpa: workers %d must be >= 0: %w", c.Workers, ErrInvalidConfig)
	case !c.SampleType.Valid():
		return fmt.Errorf("cpa: sample_type %s: %w", c.SampleType, ErrInvalidConfig)
	case !c.PredictionType.Valid():
		return fmt.Errorf("cpa: prediction_type %s: %w", c.PredictionType, ErrInvalidConfig)
	}

	return nil
}

// TTestConfig configures a t-test device.
//
// With Labeled unset traces arrive pre-partitioned through AddClassTraces;
// with Labeled set they arrive through AddTraces with a parallel label stream
// of LabelType elements fed to AddLabels.
type TTestConfig struct {
	TraceLength int         `yaml:"trace_length"` // samples per trace, >= 1
	Classes     int         `yaml:"classes"`      // >= 2
	SampleType  sample.Type `yaml:"sample_type"`
	Order       int         `yaml:"order"` // highest test order, >= 1
	Labeled     bool        `yaml:"labeled"`
	LabelType   sample.Type `yaml:"label_type"`
}

// Validate reports the first problem found, wrapped with ErrInvalidConfig.
func (c TTestConfig) Validate() error {
	switch {
	case c.TraceLength < 1:
		return fmt.Errorf("ttest: trace_length %d must be >= 1: %w", c.TraceLength, ErrInvalidConfig)
	case c.Classes < 2:
		return fmt.Errorf("ttest: classes %d must be >= 2: %w", c.Classes, ErrInvalidConfig)
	case c.Order < 1:
		return fmt.Errorf("ttest: order %d must be >= 1: %w", c.Order, ErrInvalidConfig)
	case !c.SampleType.Valid():
		return fmt.Errorf("ttest: sample_type %s: %w", c.SampleType, ErrInvalidConfig)
	case c.Labeled && !c.LabelType.Valid():
		return fmt.Errorf("ttest: label_type %s: %w", c.LabelType, ErrInvalidConfig)
	}

	return nil
}

// PairCount is the number of unordered class pairs.
func (c TTestConfig) PairCount() int { return c.Classes * (c.Classes - 1) / 2 }

// PairIndex returns the position of the pair (i, j), i < j, in the
// lexicographic enumeration (0,1), (0,2), ..., (K-2,K-1).
func (c TTestConfig) PairIndex(i, j int) int {
	return i*(2*c.Classes-i-1)/2 + (j - i - 1)
}
