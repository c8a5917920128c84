package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quote/internal/amqp"
	"quote/internal/core"
	"quote/internal/sheets/memory"
	"quote/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "quote.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTransaction(t *testing.T, s *storage.Store, amountCents int64) core.Transaction {
	t.Helper()
	ctx := context.Background()

	var tr core.Transaction
	err := s.InTx(ctx, func(tx *storage.Tx) error {
		c := core.Category{Kind: core.Expense, Name: "supplies", Active: true}
		if err := tx.InsertCategory(ctx, &c); err != nil {
			if !errors.Is(err, core.ErrDuplicateCategory) {
				return err
			}
			existing, err := tx.GetCategory(ctx, 1)
			if err != nil {
				return err
			}
			c = existing
		}

		number, err := tx.NextTransactionNumber(ctx, core.Expense)
		if err != nil {
			return err
		}
		tr = core.Transaction{
			Kind:       core.Expense,
			Number:     number,
			CategoryID: c.ID,
			Amount:     core.Money{Cents: amountCents},
			Method:     core.MethodCash,
			RecordedBy: "treasurer",
			RecordedAt: time.Now().UTC(),
		}
		return tx.InsertTransaction(ctx, &tr)
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tr
}

func TestHandleRecordedMessageExports(t *testing.T) {
	s := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(s, writer, 10)
	ctx := context.Background()

	tr := seedTransaction(t, s, 4200)
	msg := amqp.NewTransactionRecordedMessage(tr)

	if err := w.HandleRecordedMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("exported rows: got %d, want 1", len(rows))
	}
	if rows[0].TransactionID != tr.ID || rows[0].Number != tr.Number || rows[0].AmountCents != 4200 {
		t.Errorf("row: %+v", rows[0])
	}
	if rows[0].Category != "supplies" {
		t.Errorf("category name not denormalized: %+v", rows[0])
	}

	// Nothing left for the backup scan.
	pending, err := s.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("still pending: %d", len(pending))
	}
}

func TestHandleRecordedMessageUnknownTransaction(t *testing.T) {
	s := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(s, writer, 10)

	// An event for a since-deleted transaction is acknowledged, not
	// redelivered: the handler returns nil and appends nothing.
	msg := &amqp.TransactionRecordedMessage{EventID: "x", ID: 9999}
	if err := w.HandleRecordedMessage(context.Background(), msg); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
	if rows := writer.Rows(); len(rows) != 0 {
		t.Fatalf("appended %d rows for a missing transaction", len(rows))
	}
}

func TestProcessPendingDrainsBacklog(t *testing.T) {
	s := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(s, writer, 10)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		seedTransaction(t, s, int64(100*(i+1)))
	}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if got := len(writer.Rows()); got != 3 {
		t.Fatalf("exported rows: got %d, want 3", got)
	}

	// A second scan finds nothing new.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if got := len(writer.Rows()); got != 3 {
		t.Errorf("re-exported rows: got %d, want 3", got)
	}
}

func TestExportFailureFlagsRow(t *testing.T) {
	s := newTestStore(t)
	writer := memory.New()
	w := NewExportWorker(s, writer, 10)
	ctx := context.Background()

	ok := seedTransaction(t, s, 100)
	bad := seedTransaction(t, s, 200)
	writer.FailOn = map[int64]error{bad.ID: errors.New("sheet unavailable")}

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 || rows[0].TransactionID != ok.ID {
		t.Fatalf("exported rows: %+v", rows)
	}

	// The failed row left the pending set; the scan stops retrying it.
	pending, err := s.PendingExport(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("error-state row still pending: %+v", pending)
	}
}
