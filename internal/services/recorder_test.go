package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"quote/internal/core"
)

func TestRecordIncomeHouseholdScoped(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	tr, err := f.ledger.RecordIncome(ctx, RecordParams{
		CategoryID:  f.annualFee.ID,
		AmountCents: 25000,
		HouseholdID: f.household.ID,
		Method:      core.MethodCash,
		Reference:   "receipt 17",
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("RecordIncome failed: %v", err)
	}

	if tr.Number != "INC-000001" {
		t.Errorf("number: got %q, want INC-000001", tr.Number)
	}
	if tr.ID == 0 {
		t.Errorf("expected transaction ID to be assigned")
	}

	// Household and every member linked at payment time are paid.
	h, err := f.store.GetHousehold(ctx, f.household.ID)
	if err != nil {
		t.Fatalf("get household: %v", err)
	}
	if !h.Paid {
		t.Errorf("household not marked paid")
	}
	if h.PaidAt == nil || !h.PaidAt.Equal(tr.RecordedAt) {
		t.Errorf("paid_at: got %v, want %v", h.PaidAt, tr.RecordedAt)
	}
	for _, m := range f.members {
		got, err := f.store.GetMember(ctx, m.ID)
		if err != nil {
			t.Fatalf("get member %d: %v", m.ID, err)
		}
		if !got.Paid {
			t.Errorf("member %s not marked paid", got.Code)
		}
	}

	// Exactly one audit entry per mutated record: the transaction insert,
	// the household update and one per member — 4 total for 2 members.
	if n := f.auditCount(t, core.EntityTransaction, tr.ID); n != 1 {
		t.Errorf("transaction audit entries: got %d, want 1", n)
	}
	if n := f.auditCount(t, core.EntityHousehold, f.household.ID); n != 2 { // register + paid update
		t.Errorf("household audit entries: got %d, want 2", n)
	}
	for _, m := range f.members {
		if n := f.auditCount(t, core.EntityMember, m.ID); n != 2 { // enroll + paid update
			t.Errorf("member %d audit entries: got %d, want 2", m.ID, n)
		}
	}
}

func TestRecordIncomeInvalidAmountPersistsNothing(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	for _, cents := range []int64{0, -250} {
		_, err := f.ledger.RecordIncome(ctx, RecordParams{
			CategoryID:  f.annualFee.ID,
			AmountCents: cents,
			HouseholdID: f.household.ID,
			Method:      core.MethodCash,
			Principal:   "treasurer",
		})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %d: got %v, want ErrInvalidAmount", cents, err)
		}
	}

	h, _ := f.store.GetHousehold(ctx, f.household.ID)
	if h.Paid {
		t.Errorf("household must not be paid after failed records")
	}
	if _, err := f.store.GetTransaction(ctx, 1); !errors.Is(err, core.ErrUnknownTransaction) {
		t.Errorf("no transaction should exist, got %v", err)
	}
}

func TestRecordIncomeUnknownCategory(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.ledger.RecordIncome(context.Background(), RecordParams{
		CategoryID:  9999,
		AmountCents: 100,
		HouseholdID: f.household.ID,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("got %v, want ErrUnknownCategory", err)
	}

	// An expense category is not a valid income category either.
	_, err = f.ledger.RecordIncome(context.Background(), RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 100,
		HouseholdID: f.household.ID,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("wrong kind: got %v, want ErrUnknownCategory", err)
	}
}

func TestRecordIncomeScopeMismatch(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	t.Run("member-scoped without member", func(t *testing.T) {
		_, err := f.ledger.RecordIncome(ctx, RecordParams{
			CategoryID:  f.campFee.ID,
			AmountCents: 5000,
			HouseholdID: f.household.ID,
			Method:      core.MethodCash,
			Principal:   "treasurer",
		})
		if !errors.Is(err, core.ErrScopeMismatch) {
			t.Fatalf("got %v, want ErrScopeMismatch", err)
		}
	})

	t.Run("household-scoped with member", func(t *testing.T) {
		_, err := f.ledger.RecordIncome(ctx, RecordParams{
			CategoryID:  f.annualFee.ID,
			AmountCents: 25000,
			HouseholdID: f.household.ID,
			MemberID:    f.members[0].ID,
			Method:      core.MethodCash,
			Principal:   "treasurer",
		})
		if !errors.Is(err, core.ErrScopeMismatch) {
			t.Fatalf("got %v, want ErrScopeMismatch", err)
		}
	})

	t.Run("member of another household", func(t *testing.T) {
		other, err := f.enrollment.RegisterHousehold(ctx, HouseholdParams{Name: "Rossi", Principal: "admin"})
		if err != nil {
			t.Fatalf("register other household: %v", err)
		}
		_, err = f.ledger.RecordIncome(ctx, RecordParams{
			CategoryID:  f.campFee.ID,
			AmountCents: 5000,
			HouseholdID: other.ID,
			MemberID:    f.members[0].ID,
			Method:      core.MethodCash,
			Principal:   "treasurer",
		})
		if !errors.Is(err, core.ErrScopeMismatch) {
			t.Fatalf("got %v, want ErrScopeMismatch", err)
		}
	})
}

func TestRecordMemberScopedIncomeDoesNotPropagate(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, err := f.ledger.RecordIncome(ctx, RecordParams{
		CategoryID:  f.campFee.ID,
		AmountCents: 5000,
		HouseholdID: f.household.ID,
		MemberID:    f.members[0].ID,
		Method:      core.MethodBank,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("RecordIncome failed: %v", err)
	}

	h, _ := f.store.GetHousehold(ctx, f.household.ID)
	if h.Paid {
		t.Errorf("member-scoped fee must not mark the household paid")
	}
	m, _ := f.store.GetMember(ctx, f.members[0].ID)
	if m.Paid {
		t.Errorf("member-scoped fee must not flip the household-fee paid flag")
	}
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	tr, err := f.ledger.RecordExpense(ctx, RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 4200,
		Method:      core.MethodCard,
		Notes:       "markers and paper",
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	if tr.Number != "EXP-000001" {
		t.Errorf("number: got %q, want EXP-000001", tr.Number)
	}
	if n := f.auditCount(t, core.EntityTransaction, tr.ID); n != 1 {
		t.Errorf("audit entries: got %d, want 1", n)
	}

	// Expenses never carry household or member references.
	_, err = f.ledger.RecordExpense(ctx, RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 100,
		HouseholdID: f.household.ID,
		Method:      core.MethodCard,
		Principal:   "treasurer",
	})
	if !errors.Is(err, core.ErrScopeMismatch) {
		t.Fatalf("got %v, want ErrScopeMismatch", err)
	}
}

func TestTransactionNumbersAreSequentialPerKind(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	want := []string{"INC-000001", "INC-000002", "INC-000003"}
	for _, w := range want {
		tr, err := f.ledger.RecordIncome(ctx, RecordParams{
			CategoryID:  f.annualFee.ID,
			AmountCents: 25000,
			HouseholdID: f.household.ID,
			Method:      core.MethodCash,
			Principal:   "treasurer",
		})
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if tr.Number != w {
			t.Fatalf("got %q, want %q", tr.Number, w)
		}
	}

	tr, err := f.ledger.RecordExpense(ctx, RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 100,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("record expense: %v", err)
	}
	if tr.Number != "EXP-000001" {
		t.Fatalf("expense counter must be independent, got %q", tr.Number)
	}
}

func TestRecordIncomeAuditSnapshotShape(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	tr, err := f.ledger.RecordIncome(ctx, RecordParams{
		CategoryID:  f.annualFee.ID,
		AmountCents: 25000,
		HouseholdID: f.household.ID,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, _, err := f.ledger.AuditTrail(ctx, core.EntityTransaction, tr.ID, 0, 10)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Op != core.OpInsert || e.Prior != nil || e.Next == nil {
		t.Fatalf("insert entry malformed: op=%s prior=%v next=%v", e.Op, e.Prior != nil, e.Next != nil)
	}
	if e.Principal != "treasurer" {
		t.Errorf("principal: got %q", e.Principal)
	}

	var snap core.Transaction
	if err := json.Unmarshal(e.Next, &snap); err != nil {
		t.Fatalf("unmarshal next snapshot: %v", err)
	}
	if snap.Number != tr.Number || snap.Amount.Cents != 25000 {
		t.Errorf("snapshot mismatch: %+v", snap)
	}

	// The household update entry carries both snapshots.
	hEntries, _, err := f.ledger.AuditTrail(ctx, core.EntityHousehold, f.household.ID, 0, 10)
	if err != nil {
		t.Fatalf("household trail: %v", err)
	}
	last := hEntries[len(hEntries)-1]
	if last.Op != core.OpUpdate || last.Prior == nil || last.Next == nil {
		t.Fatalf("update entry malformed: op=%s", last.Op)
	}
	var prior, next core.Household
	if err := json.Unmarshal(last.Prior, &prior); err != nil {
		t.Fatalf("unmarshal prior: %v", err)
	}
	if err := json.Unmarshal(last.Next, &next); err != nil {
		t.Fatalf("unmarshal next: %v", err)
	}
	if prior.Paid || !next.Paid {
		t.Errorf("snapshots must capture the paid transition: prior=%v next=%v", prior.Paid, next.Paid)
	}
}

func TestDeleteTransactionCascadesAttachments(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	tr, err := f.ledger.RecordExpense(ctx, RecordParams{
		CategoryID:  f.supplies.ID,
		AmountCents: 4200,
		Method:      core.MethodCard,
		Principal:   "treasurer",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var attIDs []int64
	for i := 0; i < 2; i++ {
		a, err := f.ledger.Attach(ctx, AttachParams{
			ExpenseTxID: tr.ID,
			FileName:    "receipt.pdf",
			BlobRef:     "blob://receipts/x",
			Principal:   "treasurer",
		})
		if err != nil {
			t.Fatalf("attach %d: %v", i, err)
		}
		attIDs = append(attIDs, a.ID)
	}

	if err := f.ledger.DeleteTransaction(ctx, tr.ID, "treasurer"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.store.GetTransaction(ctx, tr.ID); !errors.Is(err, core.ErrUnknownTransaction) {
		t.Errorf("transaction should be gone, got %v", err)
	}
	for _, id := range attIDs {
		if _, err := f.store.GetAttachment(ctx, id); err == nil {
			t.Errorf("attachment %d should be gone", id)
		}
		// insert + cascade delete
		if n := f.auditCount(t, core.EntityAttachment, id); n != 2 {
			t.Errorf("attachment %d audit entries: got %d, want 2", id, n)
		}
		entries, _, _ := f.ledger.AuditTrail(ctx, core.EntityAttachment, id, 0, 10)
		last := entries[len(entries)-1]
		if last.Op != core.OpDelete || last.Prior == nil || last.Next != nil {
			t.Errorf("delete entry malformed: op=%s", last.Op)
		}
	}
	if n := f.auditCount(t, core.EntityTransaction, tr.ID); n != 2 {
		t.Errorf("transaction audit entries: got %d, want 2", n)
	}
}

func TestRecordIncomeInactiveCategory(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if err := f.registry.Deactivate(ctx, f.annualFee.ID, "admin"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := f.ledger.RecordIncome(ctx, RecordParams{
		CategoryID:  f.annualFee.ID,
		AmountCents: 25000,
		HouseholdID: f.household.ID,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if !errors.Is(err, core.ErrCategoryInactive) {
		t.Fatalf("got %v, want ErrCategoryInactive", err)
	}
}

func TestRecordIncomeUnknownHousehold(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.ledger.RecordIncome(context.Background(), RecordParams{
		CategoryID:  f.annualFee.ID,
		AmountCents: 25000,
		HouseholdID: 4242,
		Method:      core.MethodCash,
		Principal:   "treasurer",
	})
	if !errors.Is(err, core.ErrUnknownHousehold) {
		t.Fatalf("got %v, want ErrUnknownHousehold", err)
	}
}

func TestRecordIncomeExplicitTimestamp(t *testing.T) {
	f := newFixture(t, 0)
	when := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	tr, err := f.ledger.RecordIncome(context.Background(), RecordParams{
		CategoryID:  f.annualFee.ID,
		AmountCents: 25000,
		HouseholdID: f.household.ID,
		Method:      core.MethodBank,
		Principal:   "treasurer",
		When:        when,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !tr.RecordedAt.Equal(when) {
		t.Errorf("recorded_at: got %v, want %v", tr.RecordedAt, when)
	}
}
