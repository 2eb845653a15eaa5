package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are the engine's domain counters, served on /metrics from their
// own registry alongside the standard process and Go collectors.
type Metrics struct {
	Registry *prometheus.Registry

	DocumentCalculations    prometheus.Counter
	LedgerPayments          *prometheus.CounterVec
	ShiftCloses             *prometheus.CounterVec
	SubscriptionTransitions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		DocumentCalculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tendo",
			Name:      "document_calculations_total",
			Help:      "Document total calculations performed.",
		}),
		LedgerPayments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendo",
			Name:      "ledger_payments_total",
			Help:      "Payments registered, by ledger side.",
		}, []string{"ledger"}),
		ShiftCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendo",
			Name:      "shift_closes_total",
			Help:      "Register shift closes, by variance class.",
		}, []string{"variance_class"}),
		SubscriptionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tendo",
			Name:      "subscription_transitions_total",
			Help:      "Subscription lifecycle transitions, by action.",
		}, []string{"action"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DocumentCalculations,
		m.LedgerPayments,
		m.ShiftCloses,
		m.SubscriptionTransitions,
	)
	return m
}
