// Package metrics exposes prometheus counters for the ledger core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_transactions_recorded_total",
		Help: "Transactions committed to the ledger, by kind.",
	}, []string{"kind"})

	Propagations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_status_propagations_total",
		Help: "Household payment propagation passes committed.",
	})

	PropagatedMembers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_propagated_members_total",
		Help: "Member rows marked paid by propagation passes.",
	})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_audit_entries_total",
		Help: "Audit entries written, by entity.",
	}, []string{"entity"})

	ConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_conflict_retries_total",
		Help: "Atomic units retried after a concurrency conflict.",
	})

	AttachmentsLinked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_attachments_linked_total",
		Help: "Attachments linked to transactions.",
	})

	ExportedTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_exported_transactions_total",
		Help: "Transactions exported to the treasurer sheet, by outcome.",
	}, []string{"outcome"})
)
