// Package metrics exposes pipeline counters and timings to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	HarvestsTotal    *prometheus.CounterVec
	ScrollIterations prometheus.Histogram
	RecordsTotal     prometheus.Counter
	GapsTotal        *prometheus.CounterVec
	SinkWritesTotal  *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HarvestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cataloger_harvests_total",
			Help: "Harvests by fetch mode and outcome.",
		}, []string{"mode", "outcome"}), // outcome: settled, error, max_scrolls, budget, failed
		ScrollIterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cataloger_scroll_iterations",
			Help:    "Scroll iterations per browser harvest.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9),
		}),
		RecordsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "cataloger_records_extracted_total",
			Help: "Product records extracted.",
		}),
		GapsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cataloger_extraction_gaps_total",
			Help: "Product containers skipped, by reason.",
		}, []string{"reason"}),
		SinkWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cataloger_sink_writes_total",
			Help: "Batch writes by sink and result.",
		}, []string{"sink", "result"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cataloger_stage_duration_seconds",
			Help:    "Time spent per pipeline stage.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
	}
}

// ObserveHarvest records one harvest. outcome is the convergence outcome,
// or "failed" when no page was produced.
func (m *Metrics) ObserveHarvest(mode, outcome string, scrolls int, d time.Duration) {
	if m == nil {
		return
	}
	m.HarvestsTotal.WithLabelValues(mode, outcome).Inc()
	if scrolls > 0 {
		m.ScrollIterations.Observe(float64(scrolls))
	}
	m.StageDuration.WithLabelValues("harvest").Observe(d.Seconds())
}

// ObserveExtract records one extraction.
func (m *Metrics) ObserveExtract(records int, gaps map[string]int, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(records))
	for reason, n := range gaps {
		m.GapsTotal.WithLabelValues(reason).Add(float64(n))
	}
	m.StageDuration.WithLabelValues("extract").Observe(d.Seconds())
}

// ObserveSink records one sink write.
func (m *Metrics) ObserveSink(sink string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkWritesTotal.WithLabelValues(sink, result).Inc()
	m.StageDuration.WithLabelValues("sink").Observe(d.Seconds())
}
