package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/cpu"
)

const namespace = "markethealth"

// Metrics is the collection of prometheus metrics exported by the service.
type Metrics struct {
	registry   *prometheus.Registry
	hostWindow time.Duration

	Batches          *prometheus.CounterVec
	Queries          *prometheus.CounterVec
	Rows             *prometheus.GaugeVec
	BatchDuration    prometheus.Histogram
	LastSuccess      prometheus.Gauge
	HealthState      prometheus.Gauge
	ConsecutiveFails prometheus.Gauge
	CPUUsage         prometheus.Gauge
}

// New creates and registers all metrics on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry:   prometheus.NewRegistry(),
		hostWindow: hostSampleWindow,
	}

	m.Batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches by outcome (succeeded, failed, skipped).",
		},
		[]string{"outcome"},
	)
	m.Queries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Screener queries by query label and outcome (succeeded, no_data, failed).",
		},
		[]string{"query", "outcome"},
	)
	m.Rows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "query_rows",
			Help:      "Rows returned by the last successful run of a query.",
		},
		[]string{"query"},
	)
	m.BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch, from session open to publish.",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	m.LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last batch that published data.",
		},
	)
	m.HealthState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_state",
			Help:      "0 = healthy, 1 = degraded, 2 = broken.",
		},
	)
	m.ConsecutiveFails = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Batches failed in a row.",
		},
	)
	m.CPUUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_cpu_usage_percent",
			Help:      "Host CPU usage averaged over the last 30 seconds.",
		},
	)

	m.registry.MustRegister(
		m.Batches,
		m.Queries,
		m.Rows,
		m.BatchDuration,
		m.LastSuccess,
		m.HealthState,
		m.ConsecutiveFails,
		m.CPUUsage,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// hostSampleWindow is both the window cpu usage is averaged over and the
// interval between samples.
const hostSampleWindow = time.Second * 30

// SampleHost records host cpu usage, averaged over consecutive
// hostSampleWindow windows, until ctx is done.
func (m *Metrics) SampleHost(ctx context.Context) {
	go func() {
		for ctx.Err() == nil {
			// blocks for the whole window
			usage, err := cpu.PercentWithContext(ctx, m.hostWindow, false)
			if err != nil || len(usage) == 0 {
				if ctx.Err() != nil {
					return
				}
				slog.Debug("failed to read cpu usage", "err", err)
				select {
				case <-time.After(m.hostWindow):
				case <-ctx.Done():
				}
				continue
			}
			m.CPUUsage.Set(usage[0])
		}
	}()
}
