// SPDX-License-Identifier: MIT

package device

import (
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/katalvlaran/leakage/cpa"
	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/metrics"
	"github.com/katalvlaran/leakage/moments"
)

// CPA is the correlation power analysis device. Trace and prediction buffers
// may arrive in any interleaving; records are paired in FIFO order and merged
// as soon as both sides are present. All methods are safe for concurrent use.
type CPA struct {
	mu  sync.Mutex
	cfg CPAConfig
	log *logrus.Entry

	ctx     *moments.Context
	opts    []cpa.Option
	traces  queue
	preds   queue
	stageT  matrix.Matrix[float64]
	stageP  matrix.Matrix[float64]
	results []resultStream // index order-1; cols=TraceLength, rows=Candidates
	spare   []*matrix.Matrix[float64]

	computed bool
}

// NewCPA validates cfg and returns a device with zeroed results.
func NewCPA(cfg CPAConfig, opts ...Option) (*CPA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := gatherSettings(metrics.DeviceCPA, opts...)
	if s.workers > 0 {
		cfg.Workers = s.workers
	}

	d := &CPA{
		cfg:     cfg,
		log:     s.log,
		ctx:     cpa.NewContext(cfg.TraceLength, cfg.Candidates, cfg.Order),
		traces:  newQueue(cfg.SampleType, cfg.TraceLength),
		preds:   newQueue(cfg.PredictionType, cfg.Candidates),
		results: make([]resultStream, cfg.Order),
		spare:   make([]*matrix.Matrix[float64], cfg.Order),
	}
	if cfg.Workers > 0 {
		d.opts = append(d.opts, cpa.WithWorkers(cfg.Workers))
	}
	for i := range d.results {
		d.results[i] = newResultStream(cfg.TraceLength, cfg.Candidates)
		d.spare[i] = matrix.NewMatrix[float64](cfg.TraceLength, cfg.Candidates)
	}
	d.log.WithFields(logrus.Fields{
		"trace_length": cfg.TraceLength,
		"candidates":   cfg.Candidates,
		"order":        cfg.Order,
	}).Debug("cpa device ready")

	return d, nil
}

// Config returns the effective configuration.
func (d *CPA) Config() CPAConfig { return d.cfg }

// AddTraces queues the trace records in buf and merges every complete pair.
// It returns the number of records queued.
func (d *CPA) AddTraces(buf []byte) (int, error) {
	return d.add(&d.traces, metrics.StreamTraces, buf)
}

// AddPredicts queues the prediction records in buf and merges every complete
// pair. It returns the number of records queued.
func (d *CPA) AddPredicts(buf []byte) (int, error) {
	return d.add(&d.preds, metrics.StreamPredictions, buf)
}

func (d *CPA) add(q *queue, stream string, buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := q.push(buf)
	if err != nil {
		metrics.InputsRejected.WithLabelValues(metrics.DeviceCPA, metrics.ReasonPartialRecord).Inc()
		d.log.WithError(err).WithField("stream", stream).Error("buffer rejected")

		return 0, fmt.Errorf("cpa %s: %w", stream, err)
	}
	metrics.RecordsIngested.WithLabelValues(metrics.DeviceCPA, stream).Add(float64(n))
	d.merge()

	return n, nil
}

// merge feeds every complete (trace, prediction) pair to the engine.
func (d *CPA) merge() {
	n := min(d.traces.len(), d.preds.len())
	if n == 0 {
		return
	}
	d.stageT.Init(d.cfg.TraceLength, n)
	d.stageP.Init(d.cfg.Candidates, n)
	copy(d.stageT.Data(), d.traces.pop(n))
	copy(d.stageP.Data(), d.preds.pop(n))

	if err := cpa.AddTraces(d.ctx, &d.stageT, &d.stageP, n, d.opts...); err != nil {
		// Unreachable: the staging matrices hold exactly n rows.
		d.log.WithError(err).Error("merge failed")

		return
	}
	metrics.TracesMerged.WithLabelValues(metrics.DeviceCPA).Add(float64(n))
}

// ComputeCorrelations finalizes orders 1..Order from the current state
// without consuming it, replaces every result and rewinds every cursor.
// Order 1 of a first-order device uses the first-order finalizer.
// On error the previous results and cursors are kept.
func (d *CPA) ComputeCorrelations() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	timer := prometheus.NewTimer(metrics.FinalizeSeconds.WithLabelValues(metrics.DeviceCPA))
	defer timer.ObserveDuration()

	if t, p := d.traces.len(), d.preds.len(); t+p > 0 {
		d.log.WithFields(logrus.Fields{"traces": t, "predictions": p}).Warn("unpaired records left out of the results")
	}

	for i := range d.spare {
		var err error
		if d.cfg.Order == 1 {
			err = cpa.ComputeCorrelationMatrix(d.ctx, d.spare[i])
		} else {
			err = cpa.ComputeCorrelationMatrixOrder(d.ctx, d.spare[i], i+1)
		}
		if err != nil {
			metrics.InputsRejected.WithLabelValues(metrics.DeviceCPA, metrics.ReasonDegenerate).Inc()
			d.log.WithError(err).WithField("order", i+1).Error("correlation failed")

			return err
		}
	}
	for i := range d.results {
		d.spare[i] = d.results[i].replace(d.spare[i])
	}
	d.computed = true
	d.log.WithField("traces", d.ctx.P1Card()).Info("correlations computed")

	return nil
}

// GetCorrelations copies up to len(buf) unread bytes of the order's result
// (native-endian float64, row-major by candidate) and advances its cursor.
// It returns 0 once the stream is exhausted.
func (d *CPA) GetCorrelations(buf []byte, order int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.stream(order)
	if err != nil {
		return 0, err
	}

	return r.read(buf), nil
}

// AvailableBytes is the number of unread bytes of the order's result.
func (d *CPA) AvailableBytes(order int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.stream(order)
	if err != nil {
		return 0, err
	}

	return r.available(), nil
}

func (d *CPA) stream(order int) (*resultStream, error) {
	if order < 1 || order > d.cfg.Order {
		return nil, fmt.Errorf("cpa: order %d not in 1..%d: %w", order, d.cfg.Order, ErrOrderRange)
	}

	return &d.results[order-1], nil
}

// Best returns the (sample, candidate) with the largest |r| at order.
func (d *CPA) Best(order int) (sample, candidate int, r float64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.stream(order)
	if err != nil {
		return 0, 0, 0, err
	}
	if !d.computed {
		return 0, 0, 0, ErrNotComputed
	}
	m := s.m
	best := -1.0
	for c := 0; c < m.Rows(); c++ {
		for smp, v := range m.Row(c) {
			if a := math.Abs(v); a > best {
				best, sample, candidate, r = a, smp, c, v
			}
		}
	}

	return sample, candidate, r, nil
}

// Reset zeroes the context and every result, drops pending records and
// rewinds every cursor. The configuration is kept.
func (d *CPA) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ctx.Reset()
	d.traces.reset()
	d.preds.reset()
	for i := range d.results {
		d.results[i].clear()
	}
	d.computed = false
	d.log.Debug("reset")
}

// Cardinality is the number of traces merged so far.
func (d *CPA) Cardinality() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ctx.P1Card()
}

// Pending returns the queued, not yet paired trace and prediction records.
func (d *CPA) Pending() (traces, predictions int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.traces.len(), d.preds.len()
}
