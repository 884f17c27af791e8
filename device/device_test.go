// SPDX-License-Identifier: MIT

package device_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/leakage/device"
	"github.com/katalvlaran/leakage/sample"
)

// quietLogger discards device logs.
func quietLogger() device.Option {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return device.WithLogger(logrus.NewEntry(l))
}

// drain reads a result stream to exhaustion in chunks of step bytes and
// decodes it back into float64 values.
func drain(t *testing.T, step int, read func([]byte) (int, error)) []float64 {
	t.Helper()
	var raw []byte
	buf := make([]byte, step)
	for {
		n, err := read(buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		raw = append(raw, buf[:n]...)
	}
	vals := make([]float64, len(raw)/8)
	_, err := sample.Decode(sample.Float64, raw, vals)
	require.NoError(t, err)

	return vals
}

func flatten(rows [][]float64) []float64 {
	var out []float64
	for _, r := range rows {
		out = append(out, r...)
	}

	return out
}
