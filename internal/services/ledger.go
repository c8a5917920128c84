// Package services holds the ledger orchestration: the transaction recorder,
// status propagator, attachment linker, category registry and enrollment
// paths, each committing through a single atomic storage unit.
package services

import (
	"context"
	"errors"
	"log/slog"

	"quote/internal/core"
	"quote/internal/metrics"
	"quote/internal/storage"
)

// conflictRetries bounds transparent retries of an atomic unit that lost an
// optimistic-lock race. Exhaustion surfaces core.ErrConcurrencyConflict.
const conflictRetries = 3

// EventPublisher is notified after an atomic unit has committed. A failed
// publish never fails the recorded transaction; the export worker's pending
// scan picks up the slack.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, tr core.Transaction) error
}

// Ledger is the single entry point through which money movements enter the
// system. Authorization is the caller's responsibility; every mutating call
// takes the acting principal explicitly and threads it to the audit trail.
type Ledger struct {
	store  *storage.Store
	events EventPublisher
}

func NewLedger(store *storage.Store, events EventPublisher) *Ledger {
	return &Ledger{store: store, events: events}
}

// inUnit runs fn as one atomic unit, transparently retrying a bounded number
// of times when the unit aborts on a concurrency conflict.
func (l *Ledger) inUnit(ctx context.Context, fn func(tx *storage.Tx) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = l.store.InTx(ctx, fn)
		if !errors.Is(err, core.ErrConcurrencyConflict) {
			return err
		}
		metrics.ConflictRetries.Inc()
		slog.WarnContext(ctx, "Atomic unit hit concurrency conflict, retrying",
			"attempt", attempt+1)
	}
	return err
}

func (l *Ledger) publishRecorded(ctx context.Context, tr core.Transaction) {
	if l.events == nil {
		return
	}
	if err := l.events.PublishTransactionRecorded(ctx, tr); err != nil {
		// The transaction is already durable; the pending-export scan
		// recovers anything a lost event leaves behind.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", tr.ID,
			"number", tr.Number,
			"error", err)
	}
}
