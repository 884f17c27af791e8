// SPDX-License-Identifier: MIT

package device_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/leakage/device"
	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/sample"
	"github.com/katalvlaran/leakage/ttest"
)

func newTTest(t *testing.T, cfg device.TTestConfig) *device.TTest {
	t.Helper()
	d, err := device.NewTTest(cfg, quietLogger())
	require.NoError(t, err)

	return d
}

func TestTTest_ClassStreams(t *testing.T) {
	t.Parallel()

	const samples, n, leakAt = 6, 1200, 2
	d := newTTest(t, device.TTestConfig{TraceLength: samples, Classes: 2, SampleType: sample.Float64, Order: 2})

	rng := rand.New(rand.NewSource(21))
	data := make([][]float64, 2)
	for c := range data {
		for i := 0; i < n; i++ {
			for s := 0; s < samples; s++ {
				v := rng.NormFloat64()
				if c == 1 && s == leakAt {
					v += 0.6
				}
				data[c] = append(data[c], v)
			}
		}
		// two chunks per class
		half := (n / 2) * samples
		_, err := d.AddClassTraces(c, sample.Append(sample.Float64, nil, data[c][:half]...))
		require.NoError(t, err)
		_, err = d.AddClassTraces(c, sample.Append(sample.Float64, nil, data[c][half:]...))
		require.NoError(t, err)
	}
	card, err := d.Cardinality(1)
	require.NoError(t, err)
	assert.Equal(t, n, card)

	require.NoError(t, d.ComputeTVals())
	maxT, at, err := d.MaxAbsT(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, leakAt, at)
	assert.Greater(t, maxT, ttest.DefaultThreshold)

	sum, err := d.Summarize(0, 1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, leakAt, sum.Sample)
	assert.Equal(t, maxT, sum.MaxAbsT)
	assert.Equal(t, ttest.Leak, sum.Verdict)
	assert.Contains(t, sum.Leaking, leakAt)
	assert.Less(t, sum.PValue, 1e-6)

	// bytes equal the engine output on the same data
	for order := 1; order <= 2; order++ {
		a, b := ttest.NewClassContext(samples, 2), ttest.NewClassContext(samples, 2)
		require.NoError(t, ttest.AddTraces(a, rowsOf(samples, data[0]), n, 2))
		require.NoError(t, ttest.AddTraces(b, rowsOf(samples, data[1]), n, 2))
		var want matrix.Matrix[float64]
		require.NoError(t, ttest.ComputeTValsDegs(a, b, &want, order))

		avail, err := d.AvailableBytes(0, 1, order)
		require.NoError(t, err)
		assert.Equal(t, 2*samples*8, avail)
		got := drain(t, 11, func(buf []byte) (int, error) { return d.GetTValues(buf, 0, 1, order) })
		assert.InDeltaSlice(t, want.Data(), got, 1e-12, "order %d", order)
	}
}

func TestTTest_LabelledMode(t *testing.T) {
	t.Parallel()

	d := newTTest(t, device.TTestConfig{
		TraceLength: 2, Classes: 2, SampleType: sample.Int16, Order: 1,
		Labeled: true, LabelType: sample.Float32,
	})

	traces := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}}
	n, err := d.AddTraces(sample.Append(sample.Int16, nil, flatten(traces)...))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	tr, lb := d.Pending()
	assert.Equal(t, 5, tr)
	assert.Zero(t, lb)

	// third label out of range, fourth not integral
	n, err = d.AddLabels(sample.Append(sample.Float32, nil, 0, 1, 2, 0.5))
	assert.Equal(t, 4, n, "labels are queued even when some are rejected")
	assert.True(t, errors.Is(err, device.ErrLabelRange), "%v", err)

	c0, _ := d.Cardinality(0)
	c1, _ := d.Cardinality(1)
	assert.Equal(t, 1, c0)
	assert.Equal(t, 1, c1)
	tr, lb = d.Pending()
	assert.Equal(t, 1, tr, "the fifth trace waits for its label")
	assert.Zero(t, lb)

	// accumulation goes on after a rejection
	_, err = d.AddLabels(sample.Append(sample.Float32, nil, 1))
	require.NoError(t, err)
	c1, _ = d.Cardinality(1)
	assert.Equal(t, 2, c1)
}

func TestTTest_ModeAndRangeErrors(t *testing.T) {
	t.Parallel()

	d := newTTest(t, device.TTestConfig{TraceLength: 1, Classes: 3, SampleType: sample.Uint8, Order: 2})

	_, err := d.AddTraces([]byte{1})
	assert.True(t, errors.Is(err, device.ErrInvalidConfig))
	_, err = d.AddLabels([]byte{1})
	assert.True(t, errors.Is(err, device.ErrInvalidConfig))

	_, err = d.AddClassTraces(3, []byte{1})
	assert.True(t, errors.Is(err, device.ErrClassRange))
	_, err = d.AddClassTraces(-1, []byte{1})
	assert.True(t, errors.Is(err, device.ErrClassRange))

	buf := make([]byte, 8)
	_, err = d.GetTValues(buf, 1, 1, 1)
	assert.True(t, errors.Is(err, device.ErrClassRange))
	_, err = d.GetTValues(buf, 2, 1, 1)
	assert.True(t, errors.Is(err, device.ErrClassRange))
	_, err = d.GetTValues(buf, 0, 3, 1)
	assert.True(t, errors.Is(err, device.ErrClassRange))
	_, err = d.GetTValues(buf, 0, 2, 3)
	assert.True(t, errors.Is(err, device.ErrOrderRange))
	_, _, err = d.MaxAbsT(0, 1, 1)
	assert.True(t, errors.Is(err, device.ErrNotComputed))
	_, err = d.Summarize(0, 1, 1, 0)
	assert.True(t, errors.Is(err, device.ErrNotComputed))

	_, err = d.Cardinality(5)
	assert.True(t, errors.Is(err, device.ErrClassRange))

	err = d.ComputeTVals()
	assert.True(t, errors.Is(err, ttest.ErrTooFewTraces), "%v", err)
}

func TestTTest_PartialRecordLeavesState(t *testing.T) {
	t.Parallel()

	d := newTTest(t, device.TTestConfig{TraceLength: 3, Classes: 2, SampleType: sample.Uint16, Order: 1})
	_, err := d.AddClassTraces(0, sample.Append(sample.Uint16, nil, 1, 2, 3))
	require.NoError(t, err)

	n, err := d.AddClassTraces(0, sample.Append(sample.Uint16, nil, 1, 2, 3, 4))
	assert.Zero(t, n)
	assert.True(t, errors.Is(err, device.ErrPartialRecord))
	card, _ := d.Cardinality(0)
	assert.Equal(t, 1, card)
}

// TestTTest_ResultLayout feeds three classes and checks that each pair's
// stream holds its own comparison and that Reset zeroes and rewinds.
func TestTTest_ResultLayout(t *testing.T) {
	t.Parallel()

	d := newTTest(t, device.TTestConfig{TraceLength: 1, Classes: 3, SampleType: sample.Float64, Order: 1})
	means := []float64{0, 10, 30}
	for c, m := range means {
		_, err := d.AddClassTraces(c, sample.Append(sample.Float64, nil, m-1, m+1, m-1, m+1))
		require.NoError(t, err)
	}
	require.NoError(t, d.ComputeTVals())

	// all classes share variance 1 and n=4: t = (m2-m1)/sqrt(1/4+1/4)
	for _, p := range [][2]int{{0, 1}, {0, 2}, {1, 2}} {
		got := drain(t, 8, func(buf []byte) (int, error) { return d.GetTValues(buf, p[0], p[1], 1) })
		require.Len(t, got, 2)
		assert.InDelta(t, (means[p[1]]-means[p[0]])/0.7071067811865476, got[0], 1e-9, "pair %v", p)
		assert.InDelta(t, 6.0, got[1], 1e-9, "pair %v dof", p)
	}

	d.Reset()
	card, _ := d.Cardinality(2)
	assert.Zero(t, card)
	got := drain(t, 8, func(buf []byte) (int, error) { return d.GetTValues(buf, 0, 2, 1) })
	assert.Equal(t, []float64{0, 0}, got)
}

func rowsOf(width int, flat []float64) *matrix.Matrix[float64] {
	m := matrix.NewMatrix[float64](width, len(flat)/width)
	copy(m.Data(), flat)

	return m
}
