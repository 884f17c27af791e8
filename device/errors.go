// SPDX-License-Identifier: MIT

package device

import (
	"errors"

	"github.com/katalvlaran/leakage/sample"
)

// Sentinel errors returned by the devices. Every rejected call leaves the
// device state unchanged unless stated otherwise.
var (
	// ErrInvalidConfig indicates a configuration the device cannot run with.
	ErrInvalidConfig = errors.New("device: invalid configuration")

	// ErrPartialRecord indicates a buffer that does not hold whole records.
	// It matches sample.ErrPartialRecord.
	ErrPartialRecord = sample.ErrPartialRecord

	// ErrLabelRange indicates a label outside [0, classes) or not integral.
	// The paired trace is dropped; accumulation goes on.
	ErrLabelRange = errors.New("device: label out of range")

	// ErrClassRange indicates a class index or class pair outside the configuration.
	ErrClassRange = errors.New("device: class out of range")

	// ErrOrderRange indicates an order outside 1..Order.
	ErrOrderRange = errors.New("device: order out of range")

	// ErrNotComputed indicates a result query before the first finalize.
	ErrNotComputed = errors.New("device: results not computed")
)
