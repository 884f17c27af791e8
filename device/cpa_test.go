// SPDX-License-Identifier: MIT

package device_test

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/leakage/cpa"
	"github.com/katalvlaran/leakage/device"
	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/sample"
)

func scenarioCPA(t *testing.T, order int) *device.CPA {
	t.Helper()
	d, err := device.NewCPA(device.CPAConfig{
		TraceLength: 2, SampleType: sample.Float64,
		Candidates: 1, PredictionType: sample.Uint8,
		Order: order,
	}, quietLogger())
	require.NoError(t, err)

	return d
}

func TestCPA_ConcreteScenario(t *testing.T) {
	t.Parallel()

	d := scenarioCPA(t, 1)
	n, err := d.AddTraces(sample.Append(sample.Float64, nil, 1, 2, 3, 4, 5, 6, 7, 8))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	_, err = d.AddPredicts(sample.Append(sample.Uint8, nil, 1, 0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, d.Cardinality())

	require.NoError(t, d.ComputeCorrelations())
	got := drain(t, 3, func(b []byte) (int, error) { return d.GetCorrelations(b, 1) })
	require.Len(t, got, 2)

	want := stat.Correlation([]float64{1, 3, 5, 7}, []float64{1, 0, 1, 0}, nil)
	assert.InDelta(t, want, got[0], 1e-12)
	assert.InDelta(t, want, got[1], 1e-12)

	smp, cand, r, err := d.Best(1)
	require.NoError(t, err)
	assert.Equal(t, 0, smp)
	assert.Equal(t, 0, cand)
	assert.InDelta(t, want, r, 1e-12)
}

func TestCPA_ReadCursorExhaustion(t *testing.T) {
	t.Parallel()

	const samples, cands, n = 5, 3, 40
	d, err := device.NewCPA(device.CPAConfig{
		TraceLength: samples, SampleType: sample.Int16,
		Candidates: cands, PredictionType: sample.Uint8, Order: 1,
	}, quietLogger())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	var traces, preds []float64
	for i := 0; i < n*samples; i++ {
		traces = append(traces, float64(rng.Intn(2000)-1000))
	}
	for i := 0; i < n*cands; i++ {
		preds = append(preds, float64(rng.Intn(9)))
	}
	_, err = d.AddTraces(sample.Append(sample.Int16, nil, traces...))
	require.NoError(t, err)
	_, err = d.AddPredicts(sample.Append(sample.Uint8, nil, preds...))
	require.NoError(t, err)
	require.NoError(t, d.ComputeCorrelations())

	total := samples * cands * 8
	avail, err := d.AvailableBytes(1)
	require.NoError(t, err)
	assert.Equal(t, total, avail)

	read := 0
	buf := make([]byte, 7)
	for {
		k, err := d.GetCorrelations(buf, 1)
		require.NoError(t, err)
		if k == 0 {
			break
		}
		read += k
	}
	assert.Equal(t, total, read)
	k, err := d.GetCorrelations(buf, 1)
	require.NoError(t, err)
	assert.Zero(t, k, "exhausted stream stays at 0")

	// a new finalize rewinds
	require.NoError(t, d.ComputeCorrelations())
	avail, _ = d.AvailableBytes(1)
	assert.Equal(t, total, avail)

	// results match the engine on the same data
	tm := matrix.NewMatrix[float64](samples, n)
	copy(tm.Data(), traces)
	pm := matrix.NewMatrix[float64](cands, n)
	copy(pm.Data(), preds)
	want, err := matrix.CrossCorrelation(tm, pm)
	require.NoError(t, err)
	got := drain(t, 64, func(b []byte) (int, error) { return d.GetCorrelations(b, 1) })
	assert.InDeltaSlice(t, want.Data(), got, 1e-9)
}

func TestCPA_PartialRecordRejected(t *testing.T) {
	t.Parallel()

	d := scenarioCPA(t, 1)
	_, err := d.AddTraces(sample.Append(sample.Float64, nil, 1, 2))
	require.NoError(t, err)
	_, err = d.AddPredicts([]byte{1})
	require.NoError(t, err)
	require.Equal(t, 1, d.Cardinality())

	raw := sample.Append(sample.Float64, nil, 3, 4, 5)
	n, err := d.AddTraces(raw)
	assert.Zero(t, n)
	assert.True(t, errors.Is(err, device.ErrPartialRecord), "%v", err)
	assert.True(t, errors.Is(err, sample.ErrPartialRecord))
	assert.Equal(t, 1, d.Cardinality())
	tr, pr := d.Pending()
	assert.Zero(t, tr)
	assert.Zero(t, pr)
}

func TestCPA_PredictionsBeforeTraces(t *testing.T) {
	t.Parallel()

	d := scenarioCPA(t, 1)
	_, err := d.AddPredicts([]byte{1, 0, 1})
	require.NoError(t, err)
	tr, pr := d.Pending()
	assert.Equal(t, 0, tr)
	assert.Equal(t, 3, pr)
	assert.Zero(t, d.Cardinality())

	_, err = d.AddTraces(sample.Append(sample.Float64, nil, 1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Cardinality())
	tr, pr = d.Pending()
	assert.Equal(t, 0, tr)
	assert.Equal(t, 1, pr)

	_, err = d.AddTraces(sample.Append(sample.Float64, nil, 5, 6, 7, 8))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Cardinality())
	tr, pr = d.Pending()
	assert.Equal(t, 1, tr)
	assert.Equal(t, 0, pr)
}

func TestCPA_ConcurrentFeeds(t *testing.T) {
	t.Parallel()

	const batches, perBatch = 20, 5
	d := scenarioCPA(t, 1)
	rng := rand.New(rand.NewSource(3))
	traceBufs := make([][]byte, batches)
	predBufs := make([][]byte, batches)
	for b := range traceBufs {
		var tv, pv []float64
		for i := 0; i < perBatch; i++ {
			tv = append(tv, rng.NormFloat64(), rng.NormFloat64())
			pv = append(pv, float64(rng.Intn(4)))
		}
		traceBufs[b] = sample.Append(sample.Float64, nil, tv...)
		predBufs[b] = sample.Append(sample.Uint8, nil, pv...)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, b := range traceBufs {
			_, err := d.AddTraces(b)
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for _, b := range predBufs {
			_, err := d.AddPredicts(b)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	assert.Equal(t, batches*perBatch, d.Cardinality())
	require.NoError(t, d.ComputeCorrelations())
}

func TestCPA_Reset(t *testing.T) {
	t.Parallel()

	d := scenarioCPA(t, 1)
	_, err := d.AddTraces(sample.Append(sample.Float64, nil, 1, 2, 3, 4, 5, 6, 7, 8, 9, 9))
	require.NoError(t, err)
	_, err = d.AddPredicts([]byte{1, 0, 1, 0})
	require.NoError(t, err)
	require.NoError(t, d.ComputeCorrelations())
	_ = drain(t, 5, func(b []byte) (int, error) { return d.GetCorrelations(b, 1) })

	d.Reset()
	assert.Zero(t, d.Cardinality())
	tr, pr := d.Pending()
	assert.Zero(t, tr+pr)
	got := drain(t, 16, func(b []byte) (int, error) { return d.GetCorrelations(b, 1) })
	assert.Equal(t, []float64{0, 0}, got, "reset zeroes and rewinds")

	_, _, _, err = d.Best(1)
	assert.True(t, errors.Is(err, device.ErrNotComputed))
	assert.True(t, errors.Is(d.ComputeCorrelations(), cpa.ErrEmptyContext))
}

func TestCPA_OrderRange(t *testing.T) {
	t.Parallel()

	d := scenarioCPA(t, 2)
	_, err := d.GetCorrelations(make([]byte, 8), 3)
	assert.True(t, errors.Is(err, device.ErrOrderRange))
	_, err = d.AvailableBytes(0)
	assert.True(t, errors.Is(err, device.ErrOrderRange))
}

// TestCPA_HigherOrder checks every order of a second-order device against
// the engine driven directly.
func TestCPA_HigherOrder(t *testing.T) {
	t.Parallel()

	const samples, cands, n = 3, 2, 60
	d, err := device.NewCPA(device.CPAConfig{
		TraceLength: samples, SampleType: sample.Float32,
		Candidates: cands, PredictionType: sample.Float64, Order: 2,
	}, quietLogger(), device.WithWorkers(2))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(8))
	tm := matrix.NewMatrix[float64](samples, n)
	pm := matrix.NewMatrix[float64](cands, n)
	for i := range tm.Data() {
		tm.Data()[i] = float64(float32(rng.NormFloat64()))
	}
	for i := range pm.Data() {
		pm.Data()[i] = math.Round(4 * rng.Float64())
	}
	// two uneven chunks per stream
	_, err = d.AddTraces(sample.Append(sample.Float32, nil, tm.Data()[:25*samples]...))
	require.NoError(t, err)
	_, err = d.AddPredicts(sample.Append(sample.Float64, nil, pm.Data()[:40*cands]...))
	require.NoError(t, err)
	_, err = d.AddTraces(sample.Append(sample.Float32, nil, tm.Data()[25*samples:]...))
	require.NoError(t, err)
	_, err = d.AddPredicts(sample.Append(sample.Float64, nil, pm.Data()[40*cands:]...))
	require.NoError(t, err)
	require.Equal(t, n, d.Cardinality())
	require.NoError(t, d.ComputeCorrelations())

	ref := cpa.NewContext(samples, cands, 2)
	require.NoError(t, cpa.AddTraces(ref, tm, pm, n))
	for order := 1; order <= 2; order++ {
		var want matrix.Matrix[float64]
		require.NoError(t, cpa.ComputeCorrelationMatrixOrder(ref, &want, order))
		got := drain(t, 13, func(b []byte) (int, error) { return d.GetCorrelations(b, order) })
		assert.InDeltaSlice(t, want.Data(), got, 1e-12, "order %d", order)
	}
}
