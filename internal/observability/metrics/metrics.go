// Package metrics exposes prometheus counters for the order engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type Metrics struct {
	ordersCreated  *prometheus.CounterVec
	refunds        *prometheus.CounterVec
	refundedCents  *prometheus.CounterVec
	ledgerEntries  *prometheus.CounterVec
	outboxDispatch *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderway_orders_created_total",
			Help: "Orders created, labelled by payment source.",
		}, []string{"source"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderway_refunds_total",
			Help: "Settlement reversals, labelled by kind (full, partial, external).",
		}, []string{"kind"}),
		refundedCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderway_refunded_cents_total",
			Help: "Wallet cents credited back by settlement.",
		}, []string{"kind"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderway_ledger_entries_total",
			Help: "Ledger entries written, labelled by type.",
		}, []string{"type"}),
		outboxDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderway_outbox_dispatch_total",
			Help: "Outbox relay deliveries, labelled by outcome.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.ordersCreated,
		m.refunds,
		m.refundedCents,
		m.ledgerEntries,
		m.outboxDispatch,
	)
	return m
}

func (m *Metrics) RecordOrderCreated(source string, count int) {
	m.ordersCreated.WithLabelValues(source).Add(float64(count))
}

func (m *Metrics) RecordRefund(kind string, cents int64) {
	m.refunds.WithLabelValues(kind).Inc()
	if cents > 0 {
		m.refundedCents.WithLabelValues(kind).Add(float64(cents))
	}
}

func (m *Metrics) RecordLedgerEntry(entryType string) {
	m.ledgerEntries.WithLabelValues(entryType).Inc()
}

func (m *Metrics) RecordOutboxDispatch(status string) {
	m.outboxDispatch.WithLabelValues(status).Inc()
}

func provideRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

func provideMetrics(reg *prometheus.Registry) *Metrics {
	return New(reg)
}

var Module = fx.Module("observability.metrics",
	fx.Provide(
		provideRegistry,
		provideMetrics,
	),
)
