// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metric wraps prometheus/client_golang, the same way the teacher's
// pkg/metric wraps it — except the teacher went through a sibling monorepo
// facade (luxfi/metric) that this workspace cannot fetch; we build the
// counters/gauges/histograms directly against a prometheus.Registry instead.
package metric

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge/histogram the protocol emits.
type Metrics struct {
	Registry *prometheus.Registry

	SessionsOpened    prometheus.Counter
	SessionsTerminal  *prometheus.CounterVec // label: outcome
	SettlementAttempt *prometheus.CounterVec // label: provider, result
	SettlementLatency prometheus.Histogram
	ReconcileSweeps   prometheus.Counter
	ReconcileResolved *prometheus.CounterVec // label: to_status
	DisputesOpened    prometheus.Counter
	DisputesResolved  *prometheus.CounterVec // label: outcome
	ReplayFailures    *prometheus.CounterVec // label: code
}

// New creates a fresh Metrics instance registered against its own registry,
// matching the teacher's NewMetrics() constructor shape.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pact_sessions_opened_total",
			Help: "Total number of negotiation sessions opened.",
		}),
		SessionsTerminal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pact_sessions_terminal_total",
			Help: "Total number of sessions reaching a terminal status, by outcome.",
		}, []string{"outcome"}),
		SettlementAttempt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pact_settlement_attempts_total",
			Help: "Total settlement attempts, by provider and result.",
		}, []string{"provider", "result"}),
		SettlementLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pact_settlement_latency_ms",
			Help:    "Latency of settlement commit/poll loops in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}),
		ReconcileSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pact_reconcile_sweeps_total",
			Help: "Total reconciler sweep passes.",
		}),
		ReconcileResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pact_reconcile_resolved_total",
			Help: "Handles resolved by the reconciler, by resulting status.",
		}, []string{"to_status"}),
		DisputesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pact_disputes_opened_total",
			Help: "Total disputes opened.",
		}),
		DisputesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pact_disputes_resolved_total",
			Help: "Total disputes resolved, by outcome.",
		}, []string{"outcome"}),
		ReplayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pact_replay_failures_total",
			Help: "Transcript replay failures, by failure code.",
		}, []string{"code"}),
	}
	reg.MustRegister(
		m.SessionsOpened, m.SessionsTerminal, m.SettlementAttempt, m.SettlementLatency,
		m.ReconcileSweeps, m.ReconcileResolved, m.DisputesOpened, m.DisputesResolved, m.ReplayFailures,
	)
	return m
}
