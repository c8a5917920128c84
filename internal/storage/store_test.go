package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"quote/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quote.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	h := core.Household{Name: "Cruz"}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertHousehold(ctx, &h); err != nil {
			return err
		}
		m := core.Member{HouseholdID: h.ID, Code: "Q-01", FirstName: "Ana", LastName: "Cruz"}
		if err := tx.InsertMember(ctx, &m); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	// Neither row survived the rollback.
	if _, err := s.GetHousehold(ctx, h.ID); !errors.Is(err, core.ErrUnknownHousehold) {
		t.Errorf("household survived rollback: %v", err)
	}
	members, err := s.ListMembersByHousehold(ctx, h.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("members survived rollback: %d", len(members))
	}
}

func TestTransactionCountersAdvancePerKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var numbers []string
	err := s.InTx(ctx, func(tx *Tx) error {
		for _, kind := range []core.TransactionKind{core.Income, core.Income, core.Expense, core.Income} {
			n, err := tx.NextTransactionNumber(ctx, kind)
			if err != nil {
				return err
			}
			numbers = append(numbers, n)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("in tx: %v", err)
	}

	want := []string{"INC-000001", "INC-000002", "EXP-000001", "INC-000003"}
	for i, w := range want {
		if numbers[i] != w {
			t.Errorf("number %d: got %s, want %s", i, numbers[i], w)
		}
	}
}

func TestUpdateHouseholdPaidVersionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := core.Household{Name: "Cruz"}
	if err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertHousehold(ctx, &h)
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	stale := h
	now := time.Now().UTC()
	h.Paid = true
	h.PaidAt = &now
	if err := s.InTx(ctx, func(tx *Tx) error {
		return tx.UpdateHouseholdPaid(ctx, &h)
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// A writer holding the pre-update version loses.
	stale.Paid = true
	stale.PaidAt = &now
	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.UpdateHouseholdPaid(ctx, &stale)
	})
	if !errors.Is(err, core.ErrConcurrencyConflict) {
		t.Fatalf("got %v, want ErrConcurrencyConflict", err)
	}

	got, err := s.GetHousehold(ctx, h.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != h.Version {
		t.Errorf("version: got %d, want %d", got.Version, h.Version)
	}
	if !got.Paid || got.PaidAt == nil || !got.PaidAt.Equal(now) {
		t.Errorf("paid state: %+v", got)
	}
}

func TestAuditTrailCursorPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := core.Household{Name: "Cruz"}
	if err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertHousehold(ctx, &h); err != nil {
			return err
		}
		for i := 0; i < 5; i++ {
			e := core.AuditEntry{
				Entity:    core.EntityHousehold,
				EntityID:  h.ID,
				Op:        core.OpUpdate,
				Prior:     []byte(`{"paid":false}`),
				Next:      []byte(`{"paid":true}`),
				Principal: "treasurer",
			}
			if err := tx.InsertAuditEntry(ctx, &e); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	first, err := s.ListAuditTrail(ctx, core.EntityHousehold, h.ID, 0, 3)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("first page: got %d entries, want 3", len(first))
	}

	rest, err := s.ListAuditTrail(ctx, core.EntityHousehold, h.ID, first[len(first)-1].ID, 3)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("second page: got %d entries, want 2", len(rest))
	}
	if rest[0].ID <= first[len(first)-1].ID {
		t.Errorf("cursor not respected: %d after %d", rest[0].ID, first[len(first)-1].ID)
	}
}

func TestDeleteHouseholdWithMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h := core.Household{Name: "Cruz"}
	if err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.InsertHousehold(ctx, &h); err != nil {
			return err
		}
		m := core.Member{HouseholdID: h.ID, Code: "Q-01", FirstName: "Ana", LastName: "Cruz"}
		return tx.InsertMember(ctx, &m)
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.DeleteHousehold(ctx, h.ID)
	})
	if !errors.Is(err, core.ErrHouseholdHasMember) {
		t.Fatalf("got %v, want ErrHouseholdHasMember", err)
	}
}
