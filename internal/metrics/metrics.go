package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the alert engine. All methods
// are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal        prometheus.Counter
	CycleDuration      prometheus.Histogram
	FetchFailures      *prometheus.CounterVec // labels: source
	SymbolsUnavailable prometheus.Gauge
	AlertsFired        *prometheus.CounterVec // labels: kind
	DeliveryFailures   *prometheus.CounterVec // labels: channel
	SoundLoops         prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_cycles_total",
			Help: "Evaluation cycles completed",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Evaluation cycle latency including provider requests",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_failures_total",
			Help: "Failed provider requests by source",
		}, []string{"source"}),
		SymbolsUnavailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_symbols_unavailable",
			Help: "Monitored symbols without a fresh quote in the last cycle",
		}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_fired_total",
			Help: "Alert rules that transitioned from armed to fired, by rule type",
		}, []string{"kind"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_delivery_failures_total",
			Help: "Failed external notification pushes by channel",
		}, []string{"channel"}),
		SoundLoops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_sound_loops_active",
			Help: "Alert sounds currently looping",
		}),
	}

	m.Registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.FetchFailures,
		m.SymbolsUnavailable,
		m.AlertsFired,
		m.DeliveryFailures,
		m.SoundLoops,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CycleCompleted(d time.Duration, unavailable int) {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(d.Seconds())
	m.SymbolsUnavailable.Set(float64(unavailable))
}

func (m *Metrics) FetchFailed(source string) {
	if m == nil {
		return
	}
	m.FetchFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) AlertFired(kind string) {
	if m == nil {
		return
	}
	m.AlertsFired.WithLabelValues(kind).Inc()
}

func (m *Metrics) DeliveryFailed(channel string) {
	if m == nil {
		return
	}
	m.DeliveryFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) SetSoundLoops(n int) {
	if m == nil {
		return
	}
	m.SoundLoops.Set(float64(n))
}
