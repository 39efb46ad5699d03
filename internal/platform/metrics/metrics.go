// Package metrics exposes Prometheus collectors for the arena backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service records to.
type Metrics struct {
	registry *prometheus.Registry

	// Chain reads
	ChainReads       *prometheus.CounterVec
	ChainReadLatency *prometheus.HistogramVec
	StaleReadings    *prometheus.CounterVec
	PollFailures     prometheus.Counter

	// Session gate
	GateDecisions *prometheus.CounterVec
	ActiveMounts  prometheus.Gauge
	LinkFailures  prometheus.Counter

	// Actions
	ActionsTotal     *prometheus.CounterVec
	ActionDuration   *prometheus.HistogramVec
	StaleCompletions *prometheus.CounterVec

	// Streaming
	StreamClients prometheus.Gauge
}

// New creates collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ChainReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deathmatch_chain_reads_total",
				Help: "Contract reads by query and result",
			},
			[]string{"query", "result"},
		),
		ChainReadLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deathmatch_chain_read_seconds",
				Help:    "Latency of contract reads that reached the RPC endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		StaleReadings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deathmatch_stale_readings_total",
				Help: "Readings served from last-known-good after a failed refresh",
			},
			[]string{"query"},
		),
		PollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deathmatch_poll_failures_total",
			Help: "Poll cycles in which at least one read failed",
		}),

		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deathmatch_gate_decisions_total",
				Help: "Session gate outcomes",
			},
			[]string{"outcome"},
		),
		ActiveMounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deathmatch_active_mounts",
			Help: "Page mounts currently tracked",
		}),
		LinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deathmatch_identity_link_failures_total",
			Help: "Wallet to social identity link attempts that failed",
		}),

		ActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deathmatch_actions_total",
				Help: "Join and bet flows by terminal result",
			},
			[]string{"action", "result"},
		),
		ActionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deathmatch_action_seconds",
				Help:    "Time from submission to confirmation",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"action"},
		),
		StaleCompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deathmatch_stale_completions_total",
				Help: "Confirmations ignored because the flow moved on",
			},
			[]string{"action"},
		),

		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "deathmatch_stream_clients",
			Help: "Connected websocket clients",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ChainReads,
		m.ChainReadLatency,
		m.StaleReadings,
		m.PollFailures,
		m.GateDecisions,
		m.ActiveMounts,
		m.LinkFailures,
		m.ActionsTotal,
		m.ActionDuration,
		m.StaleCompletions,
		m.StreamClients,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
