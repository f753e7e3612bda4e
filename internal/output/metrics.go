/*
PURPOSE:
  Exports run results as a Prometheus textfile (node_exporter collector).

REQUIREMENTS:
  Implementation-discovered:
  - Latency histogram, peak memory gauge and record counter per (model, task).
  - Private registry so Go runtime metrics are not included.

USAGE:
  err := output.WriteMetricsFile("metrics/vlm_bench.prom", records)
*/

package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daryltucker/vlm-bench/internal/model"
)

// Metrics holds the Prometheus series for one benchmark run.
// It uses a private registry so the textfile only carries these series.
type Metrics struct {
	Registry *prometheus.Registry

	Latency *prometheus.HistogramVec
	PeakMem *prometheus.GaugeVec
	Records *prometheus.CounterVec

	peaks map[[2]string]float64
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	labels := []string{"model", "task"}

	m := &Metrics{
		Registry: reg,
		peaks:    make(map[[2]string]float64),

		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vlm_bench_inference_latency_seconds",
			Help:    "Latency of single inference calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, labels),
		PeakMem: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vlm_bench_peak_memory_megabytes",
			Help: "Highest peak accelerator memory seen for a single call.",
		}, labels),
		Records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vlm_bench_records_total",
			Help: "Number of leaderboard records produced.",
		}, labels),
	}

	reg.MustRegister(m.Latency, m.PeakMem, m.Records)
	return m
}

// Observe folds one record into the series.
func (m *Metrics) Observe(r model.Record) {
	m.Latency.WithLabelValues(r.Model, r.Task).Observe(r.LatencyS)
	m.Records.WithLabelValues(r.Model, r.Task).Inc()

	key := [2]string{r.Model, r.Task}
	if peak, ok := m.peaks[key]; !ok || r.MemoryMB > peak {
		m.peaks[key] = r.MemoryMB
		m.PeakMem.WithLabelValues(r.Model, r.Task).Set(r.MemoryMB)
	}
}

// WriteMetricsFile writes records as a node_exporter textfile.
func WriteMetricsFile(path string, records []model.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory for %s: %w", path, err)
	}
	m := NewMetrics()
	for _, r := range records {
		m.Observe(r)
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
