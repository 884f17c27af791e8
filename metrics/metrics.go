// SPDX-License-Identifier: MIT

// Package metrics declares the Prometheus collectors of the analytical
// devices. Collectors are registered on the default registry at init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric name.
const Namespace = "leakage"

// Label values shared by the devices.
const (
	DeviceCPA   = "cpa"
	DeviceTTest = "ttest"

	StreamTraces      = "traces"
	StreamPredictions = "predictions"
	StreamLabels      = "labels"

	ReasonPartialRecord = "partial_record"
	ReasonLabelRange    = "label_range"
	ReasonClassRange    = "class_range"
	ReasonDegenerate    = "degenerate"
)

var (
	// RecordsIngested counts decoded records accepted per device and stream.
	RecordsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_ingested_total",
		Help:      "Counter of records decoded and queued by a device.",
	}, []string{"device", "stream"})

	// TracesMerged counts traces merged into moment contexts.
	TracesMerged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "traces_merged_total",
		Help:      "Counter of traces merged into a moment context.",
	}, []string{"device"})

	// InputsRejected counts rejected inputs per device and reason.
	InputsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "inputs_rejected_total",
		Help:      "Counter of buffers, labels or finalize calls rejected by a device.",
	}, []string{"device", "reason"})

	// FinalizeSeconds observes how long a finalize call took.
	FinalizeSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "finalize_duration_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10), // 0.5ms .. ~131s
		Help:      "Histogram of the time (in seconds) a device spent computing its results.",
	}, []string{"device"})
)

func init() {
	prometheus.MustRegister(RecordsIngested, TracesMerged, InputsRejected, FinalizeSeconds)
}
