package services

import (
	"context"
	"errors"
	"testing"

	"quote/internal/core"
)

func TestAttachExclusivityGate(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	income, err := f.ledger.RecordIncome(ctx, RecordParams{
		CategoryID:  f.annualFee.ID,
		AmountCents: 25000,
		HouseholdID: f.household.ID,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("record income: %v", err)
	}
	expense, err := f.ledger.RecordExpense(ctx, RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 4200,
		Method:      core.MethodCard,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}

	base := AttachParams{
		FileName:  "receipt.pdf",
		BlobRef:   "blob://receipts/abc",
		Principal: "treasurer",
	}

	t.Run("neither transaction set", func(t *testing.T) {
		_, err := f.ledger.Attach(ctx, base)
		if !errors.Is(err, core.ErrInvalidAssociation) {
			t.Fatalf("got %v, want ErrInvalidAssociation", err)
		}
	})

	t.Run("both transactions set", func(t *testing.T) {
		p := base
		p.IncomeTxID = income.ID
		p.ExpenseTxID = expense.ID
		_, err := f.ledger.Attach(ctx, p)
		if !errors.Is(err, core.ErrInvalidAssociation) {
			t.Fatalf("got %v, want ErrInvalidAssociation", err)
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		p := base
		p.IncomeTxID = 9999
		_, err := f.ledger.Attach(ctx, p)
		if !errors.Is(err, core.ErrUnknownTransaction) {
			t.Fatalf("got %v, want ErrUnknownTransaction", err)
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		// Referencing an expense transaction through the income slot is an
		// unknown income transaction.
		p := base
		p.IncomeTxID = expense.ID
		_, err := f.ledger.Attach(ctx, p)
		if !errors.Is(err, core.ErrUnknownTransaction) {
			t.Fatalf("got %v, want ErrUnknownTransaction", err)
		}
	})

	t.Run("valid income attachment", func(t *testing.T) {
		p := base
		p.IncomeTxID = income.ID
		p.ContentType = "application/pdf"
		p.SizeBytes = 12345
		a, err := f.ledger.Attach(ctx, p)
		if err != nil {
			t.Fatalf("attach: %v", err)
		}
		if a.ID == 0 {
			t.Errorf("expected attachment ID")
		}
		if n := f.auditCount(t, core.EntityAttachment, a.ID); n != 1 {
			t.Errorf("audit entries: got %d, want 1", n)
		}

		got, err := f.store.GetAttachment(ctx, a.ID)
		if err != nil {
			t.Fatalf("get attachment: %v", err)
		}
		if got.BlobRef != p.BlobRef {
			t.Errorf("blob_ref stored verbatim: got %q", got.BlobRef)
		}
		if got.IncomeTxID != income.ID || got.ExpenseTxID != 0 {
			t.Errorf("association: %+v", got)
		}
	})
}

func TestAttachMissingMetadata(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	tr, err := f.ledger.RecordExpense(ctx, RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 100,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	if _, err := f.ledger.Attach(ctx, AttachParams{
		ExpenseTxID: tr.ID, BlobRef: "blob://x", Principal: "treasurer",
	}); err == nil {
		t.Errorf("missing file name should fail")
	}
	if _, err := f.ledger.Attach(ctx, AttachParams{
		ExpenseTxID: tr.ID, FileName: "a.pdf", Principal: "treasurer",
	}); err == nil {
		t.Errorf("missing blob ref should fail")
	}
}
