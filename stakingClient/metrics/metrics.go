// Package metrics exposes Prometheus collectors for relays, the metadata store
// and the staking state machine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "easystake"

// Relay outcomes
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeTerminated = "terminated"
)

type Metrics struct {
	registry prometheus.Gatherer

	relayDuration      *prometheus.HistogramVec
	relayResults       *prometheus.CounterVec
	relaysInFlight     prometheus.Gauge
	metaWrites         *prometheus.CounterVec
	metaReads          *prometheus.CounterVec
	selectedValidators prometheus.Gauge
	actions            *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := newWith(reg)
	m.registry = reg
	return m
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		relayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "duration_seconds",
			Help:      "Time from relay start to its single response.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"relay"}),
		relayResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "results_total",
			Help:      "Relay completions by outcome.",
		}, []string{"relay", "outcome"}),
		relaysInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "in_flight",
			Help:      "Relays started and not yet finished or terminated.",
		}),
		metaWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metastore",
			Name:      "writes_total",
			Help:      "Metadata updates by key and result (written or unchanged).",
		}, []string{"key", "result"}),
		metaReads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metastore",
			Name:      "reads_total",
			Help:      "Metadata loads by key and result (hit, miss, other_chain).",
		}, []string{"key", "result"}),
		selectedValidators: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "selected_validators",
			Help:      "Validators picked by the last automatic selection.",
		}),
		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "staking",
			Name:      "action_transitions_total",
			Help:      "Staking action triggers by action and outcome (begun, ignored, reset).",
		}, []string{"action", "outcome"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RelayStarted() {
	if m == nil {
		return
	}
	m.relaysInFlight.Inc()
}

func (m *Metrics) RelayFinished(relay string, took time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.relaysInFlight.Dec()
	m.relayResults.WithLabelValues(relay, outcome).Inc()
	if outcome != OutcomeTerminated {
		m.relayDuration.WithLabelValues(relay).Observe(took.Seconds())
	}
}

func (m *Metrics) MetaWrite(key string, written bool) {
	if m == nil {
		return
	}
	result := "unchanged"
	if written {
		result = "written"
	}
	m.metaWrites.WithLabelValues(key, result).Inc()
}

func (m *Metrics) MetaRead(key, result string) {
	if m == nil {
		return
	}
	m.metaReads.WithLabelValues(key, result).Inc()
}

func (m *Metrics) SetSelected(n int) {
	if m == nil {
		return
	}
	m.selectedValidators.Set(float64(n))
}

func (m *Metrics) Action(action, outcome string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, outcome).Inc()
}
