// SPDX-License-Identifier: MIT

package device

import (
	"fmt"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/katalvlaran/leakage/matrix"
	"github.com/katalvlaran/leakage/metrics"
	"github.com/katalvlaran/leakage/moments"
	"github.com/katalvlaran/leakage/sample"
	"github.com/katalvlaran/leakage/ttest"
)

// TTest is the Welch t-test device. Every class owns one moment context.
// Results exist per (order, class pair), each a 2 x TraceLength matrix with
// the t-values in row 0 and the degrees of freedom in row 1. All methods are
// safe for concurrent use.
type TTest struct {
	mu  sync.Mutex
	cfg TTestConfig
	log *logrus.Entry

	classes []*moments.Context
	traces  queue // labelled mode only
	labels  queue
	stage   matrix.Matrix[float64]
	byClass []matrix.Matrix[float64] // labelled-mode staging per class

	results []resultStream // index (order-1)*PairCount + PairIndex
	spare   []*matrix.Matrix[float64]

	computed bool
}

// NewTTest validates cfg and returns a device with zeroed results.
func NewTTest(cfg TTestConfig, opts ...Option) (*TTest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := gatherSettings(metrics.DeviceTTest, opts...)

	d := &TTest{
		cfg:     cfg,
		log:     s.log,
		classes: make([]*moments.Context, cfg.Classes),
		byClass: make([]matrix.Matrix[float64], cfg.Classes),
		traces:  newQueue(cfg.SampleType, cfg.TraceLength),
	}
	if cfg.Labeled {
		d.labels = newQueue(cfg.LabelType, 1)
	}
	for i := range d.classes {
		d.classes[i] = ttest.NewClassContext(cfg.TraceLength, cfg.Order)
	}
	streams := cfg.Order * cfg.PairCount()
	d.results = make([]resultStream, streams)
	d.spare = make([]*matrix.Matrix[float64], streams)
	for i := range d.results {
		d.results[i] = newResultStream(cfg.TraceLength, 2)
		d.spare[i] = matrix.NewMatrix[float64](cfg.TraceLength, 2)
	}
	d.log.WithFields(logrus.Fields{
		"trace_length": cfg.TraceLength,
		"classes":      cfg.Classes,
		"order":        cfg.Order,
		"labeled":      cfg.Labeled,
	}).Debug("t-test device ready")

	return d, nil
}

// Config returns the configuration.
func (d *TTest) Config() TTestConfig { return d.cfg }

// AddClassTraces merges the trace records in buf into class. It returns the
// number of traces merged.
func (d *TTest) AddClassTraces(class int, buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if class < 0 || class >= d.cfg.Classes {
		metrics.InputsRejected.WithLabelValues(metrics.DeviceTTest, metrics.ReasonClassRange).Inc()
		err := fmt.Errorf("ttest: class %d not in 0..%d: %w", class, d.cfg.Classes-1, ErrClassRange)
		d.log.WithError(err).Error("buffer rejected")

		return 0, err
	}
	n, err := sample.Records(d.cfg.SampleType, len(buf), d.cfg.TraceLength)
	if err != nil {
		return 0, d.rejectPartial(metrics.StreamTraces, err)
	}
	if n == 0 {
		return 0, nil
	}
	d.stage.Init(d.cfg.TraceLength, n)
	if _, err = sample.Decode(d.cfg.SampleType, buf, d.stage.Data()); err != nil {
		return 0, d.rejectPartial(metrics.StreamTraces, err)
	}
	metrics.RecordsIngested.WithLabelValues(metrics.DeviceTTest, metrics.StreamTraces).Add(float64(n))
	d.mergeClass(class, &d.stage, n)

	return n, nil
}

// AddTraces queues interleaved trace records (labelled mode) and merges every
// trace whose label has arrived. It returns the number of records queued; a
// non-nil error together with a positive count reports dropped labels.
func (d *TTest) AddTraces(buf []byte) (int, error) {
	return d.addLabelled(&d.traces, metrics.StreamTraces, buf)
}

// AddLabels queues class labels (labelled mode) and merges every trace whose
// label has arrived. A label outside [0, Classes) drops its trace; the error
// reports the drops while accumulation goes on.
func (d *TTest) AddLabels(buf []byte) (int, error) {
	return d.addLabelled(&d.labels, metrics.StreamLabels, buf)
}

func (d *TTest) addLabelled(q *queue, stream string, buf []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.cfg.Labeled {
		return 0, fmt.Errorf("ttest: %s stream needs labeled mode: %w", stream, ErrInvalidConfig)
	}
	n, err := q.push(buf)
	if err != nil {
		return 0, d.rejectPartial(stream, err)
	}
	metrics.RecordsIngested.WithLabelValues(metrics.DeviceTTest, stream).Add(float64(n))

	return n, d.drainLabelled()
}

// drainLabelled pairs queued traces and labels in FIFO order, groups the
// valid ones per class and merges each group in arrival order.
func (d *TTest) drainLabelled() error {
	n := min(d.traces.len(), d.labels.len())
	if n == 0 {
		return nil
	}
	w := d.cfg.TraceLength
	traces, labels := d.traces.pop(n), d.labels.pop(n)

	counts := make([]int, d.cfg.Classes)
	for _, l := range labels {
		if c, ok := d.classOf(l); ok {
			counts[c]++
		}
	}
	for c, k := range counts {
		d.byClass[c].Init(w, k)
		counts[c] = 0
	}

	var (
		dropped int
		first   error
	)
	for i, l := range labels {
		c, ok := d.classOf(l)
		if !ok {
			dropped++
			if first == nil {
				first = fmt.Errorf("ttest: label %v of record %d not in 0..%d: %w", l, i, d.cfg.Classes-1, ErrLabelRange)
			}
			continue
		}
		copy(d.byClass[c].Row(counts[c]), traces[i*w:(i+1)*w])
		counts[c]++
	}
	for c, k := range counts {
		if k > 0 {
			d.mergeClass(c, &d.byClass[c], k)
		}
	}

	if dropped > 0 {
		metrics.InputsRejected.WithLabelValues(metrics.DeviceTTest, metrics.ReasonLabelRange).Add(float64(dropped))
		d.log.WithError(first).WithField("dropped", dropped).Error("traces dropped")

		return fmt.Errorf("%d traces dropped, first: %w", dropped, first)
	}

	return nil
}

// classOf maps a decoded label to a class index.
func (d *TTest) classOf(l float64) (int, bool) {
	if l != math.Trunc(l) || l < 0 || l >= float64(d.cfg.Classes) {
		return 0, false
	}

	return int(l), true
}

func (d *TTest) mergeClass(class int, traces *matrix.Matrix[float64], n int) {
	if err := ttest.AddTraces(d.classes[class], traces, n, d.cfg.Order); err != nil {
		// Unreachable: the staging matrix holds exactly n rows.
		d.log.WithError(err).Error("merge failed")

		return
	}
	metrics.TracesMerged.WithLabelValues(metrics.DeviceTTest).Add(float64(n))
}

func (d *TTest) rejectPartial(stream string, err error) error {
	metrics.InputsRejected.WithLabelValues(metrics.DeviceTTest, metrics.ReasonPartialRecord).Inc()
	d.log.WithError(err).WithField("stream", stream).Error("buffer rejected")

	return fmt.Errorf("ttest %s: %w", stream, err)
}

// ComputeTVals finalizes every order and class pair from the current state
// without consuming it, replaces every result and rewinds every cursor.
// On error the previous results and cursors are kept.
func (d *TTest) ComputeTVals() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	timer := prometheus.NewTimer(metrics.FinalizeSeconds.WithLabelValues(metrics.DeviceTTest))
	defer timer.ObserveDuration()

	if d.cfg.Labeled {
		if t, l := d.traces.len(), d.labels.len(); t+l > 0 {
			d.log.WithFields(logrus.Fields{"traces": t, "labels": l}).Warn("unpaired records left out of the results")
		}
	}

	pairs := d.cfg.PairCount()
	for order := 1; order <= d.cfg.Order; order++ {
		for i := 0; i < d.cfg.Classes; i++ {
			for j := i + 1; j < d.cfg.Classes; j++ {
				idx := (order-1)*pairs + d.cfg.PairIndex(i, j)
				if err := ttest.ComputeTValsDegs(d.classes[i], d.classes[j], d.spare[idx], order); err != nil {
					metrics.InputsRejected.WithLabelValues(metrics.DeviceTTest, metrics.ReasonDegenerate).Inc()
					d.log.WithError(err).WithFields(logrus.Fields{"order": order, "class1": i, "class2": j}).Error("t-values failed")

					return fmt.Errorf("classes (%d,%d) order %d: %w", i, j, order, err)
				}
			}
		}
	}
	for i := range d.results {
		d.spare[i] = d.results[i].replace(d.spare[i])
	}
	d.computed = true
	d.log.Info("t-values computed")

	return nil
}

// GetTValues copies up to len(buf) unread bytes of the (class1, class2, order)
// result and advances its cursor; 0 once exhausted. class1 must be < class2.
func (d *TTest) GetTValues(buf []byte, class1, class2, order int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.stream(class1, class2, order)
	if err != nil {
		return 0, err
	}

	return r.read(buf), nil
}

// AvailableBytes is the number of unread bytes of the (class1, class2, order) result.
func (d *TTest) AvailableBytes(class1, class2, order int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.stream(class1, class2, order)
	if err != nil {
		return 0, err
	}

	return r.available(), nil
}

func (d *TTest) stream(class1, class2, order int) (*resultStream, error) {
	if order < 1 || order > d.cfg.Order {
		return nil, fmt.Errorf("ttest: order %d not in 1..%d: %w", order, d.cfg.Order, ErrOrderRange)
	}
	if class1 < 0 || class2 >= d.cfg.Classes || class1 >= class2 {
		return nil, fmt.Errorf("ttest: class pair (%d,%d) needs 0 <= class1 < class2 < %d: %w",
			class1, class2, d.cfg.Classes, ErrClassRange)
	}

	return &d.results[(order-1)*d.cfg.PairCount()+d.cfg.PairIndex(class1, class2)], nil
}

// MaxAbsT returns the largest |t| of the (class1, class2, order) result and
// its sample index.
func (d *TTest) MaxAbsT(class1, class2, order int) (float64, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.stream(class1, class2, order)
	if err != nil {
		return 0, -1, err
	}
	if !d.computed {
		return 0, -1, ErrNotComputed
	}
	t, at := ttest.MaxAbsT(r.m)

	return t, at, nil
}

// Summary condenses one (class1, class2, order) result.
type Summary struct {
	MaxAbsT float64       // largest |t|
	Sample  int           // index of MaxAbsT
	PValue  float64       // two-sided p-value at Sample
	Leaking []int         // samples with |t| above the threshold
	Verdict ttest.Verdict // MaxAbsT judged against the threshold
}

// Summarize reports the strongest sample, its p-value and every sample over
// threshold (ttest.DefaultThreshold when <= 0).
func (d *TTest) Summarize(class1, class2, order int, threshold float64) (Summary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.stream(class1, class2, order)
	if err != nil {
		return Summary{}, err
	}
	if !d.computed {
		return Summary{Sample: -1}, ErrNotComputed
	}
	s := Summary{Leaking: ttest.Leaks(r.m, threshold)}
	s.MaxAbsT, s.Sample = ttest.MaxAbsT(r.m)
	s.Verdict = ttest.Judge(s.MaxAbsT, threshold)
	if s.Sample >= 0 {
		s.PValue = ttest.PValue(r.m.At(s.Sample, ttest.RowT), r.m.At(s.Sample, ttest.RowDOF))
	}

	return s, nil
}

// Reset zeroes every class context and result, drops pending records and
// rewinds every cursor. The configuration is kept.
func (d *TTest) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.classes {
		c.Reset()
	}
	d.traces.reset()
	d.labels.reset()
	for i := range d.results {
		d.results[i].clear()
	}
	d.computed = false
	d.log.Debug("reset")
}

// Cardinality is the number of traces merged into class.
func (d *TTest) Cardinality(class int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if class < 0 || class >= d.cfg.Classes {
		return 0, fmt.Errorf("ttest: class %d: %w", class, ErrClassRange)
	}

	return d.classes[class].P1Card(), nil
}

// Pending returns the queued, not yet paired trace and label records.
func (d *TTest) Pending() (traces, labels int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.cfg.Labeled {
		return 0, 0
	}

	return d.traces.len(), d.labels.len()
}
