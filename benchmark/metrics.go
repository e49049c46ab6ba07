package benchmark

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storebench/store"
)

// Metrics exports per-operation latencies and per-phase throughput. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	reg        *prometheus.Registry
	opLatency  *prometheus.HistogramVec
	opErrors   *prometheus.CounterVec
	throughput *prometheus.GaugeVec
}

// NewMetrics registers the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storebench",
			Name:      "op_duration_seconds",
			Help:      "Duration of single store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"phase", "workers"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storebench",
			Name:      "op_errors_total",
			Help:      "Failed store operations by kind.",
		}, []string{"phase", "kind"}),
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "storebench",
			Name:      "phase_throughput_bytes",
			Help:      "Throughput of the last completed phase in bytes per second.",
		}, []string{"phase", "workers"}),
	}
	m.reg.MustRegister(m.opLatency, m.opErrors, m.throughput)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOp(phase string, workers int, d time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.opErrors.WithLabelValues(phase, errorKind(err)).Inc()
		return
	}
	m.opLatency.WithLabelValues(phase, strconv.Itoa(workers)).Observe(d.Seconds())
}

func (m *Metrics) observePhase(p *PhaseResult, workers int) {
	if m == nil {
		return
	}
	m.throughput.WithLabelValues(p.Op, strconv.Itoa(workers)).Set(p.Throughput())
}

func errorKind(err error) string {
	switch {
	case store.IsThrottled(err):
		return "throttled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
