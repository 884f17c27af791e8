// SPDX-License-Identifier: MIT

// Package device wraps the cpa and ttest engines into analytical devices fed
// by raw byte buffers.
//
// A device decodes every buffer by its configured sample.Type into float64
// records, queues them per stream and merges complete records as soon as their
// partners arrive: traces with predictions for CPA, traces with labels for the
// labelled t-test. Finalize calls (ComputeCorrelations, ComputeTVals) read the
// accumulated state without consuming it and replace the result matrices.
// Results are read back as native-endian float64 bytes through one cursor per
// result stream; a finalize or Reset rewinds every cursor to zero.
//
// Input errors (partial records, bad labels, out-of-range classes or orders)
// are returned as wrapped sentinels, logged through logrus and counted in the
// metrics package. Configuration is validated at construction, so the engine
// panics for shape mismatches are unreachable through a device.
//
// Each device serializes all of its methods with one mutex.
package device
