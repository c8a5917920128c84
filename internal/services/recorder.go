package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quote/internal/core"
	"quote/internal/metrics"
	"quote/internal/storage"
)

// numberRetries bounds regeneration attempts after a transaction-number
// uniqueness conflict before ErrNumberGenerationFailed is surfaced.
const numberRetries = 3

// RecordParams carries one money movement into the recorder. HouseholdID is
// required for income; MemberID only when the category is member-scoped.
type RecordParams struct {
	CategoryID  int64
	AmountCents int64
	HouseholdID int64
	MemberID    int64
	Method      core.PaymentMethod
	Reference   string
	Notes       string
	Principal   string
	When        time.Time
}

// RecordIncome validates and persists an income transaction. When the
// category is household-scoped, the paid status of the household and of
// every member currently linked to it is propagated in the same commit.
func (l *Ledger) RecordIncome(ctx context.Context, p RecordParams) (core.Transaction, error) {
	return l.record(ctx, core.Income, p)
}

// RecordExpense validates and persists an expense transaction.
func (l *Ledger) RecordExpense(ctx context.Context, p RecordParams) (core.Transaction, error) {
	if p.HouseholdID != 0 || p.MemberID != 0 {
		return core.Transaction{}, core.ErrScopeMismatch
	}
	return l.record(ctx, core.Expense, p)
}

func (l *Ledger) record(ctx context.Context, kind core.TransactionKind, p RecordParams) (core.Transaction, error) {
	if p.AmountCents <= 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	if !p.Method.Valid() {
		return core.Transaction{}, core.ErrInvalidMethod
	}
	when := p.When
	if when.IsZero() {
		when = time.Now().UTC()
	}

	tr := core.Transaction{
		Kind:        kind,
		CategoryID:  p.CategoryID,
		Amount:      core.Money{Cents: p.AmountCents},
		HouseholdID: p.HouseholdID,
		MemberID:    p.MemberID,
		Method:      p.Method,
		Reference:   p.Reference,
		Notes:       p.Notes,
		RecordedBy:  p.Principal,
		RecordedAt:  when,
	}
	if err := tr.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var propagate bool
	err := l.inUnit(ctx, func(tx *storage.Tx) error {
		// The unit may be retried; reset state written by a rolled-back pass.
		tr.ID = 0
		propagate = false

		cat, err := tx.GetCategory(ctx, p.CategoryID)
		if err != nil {
			return err
		}
		if cat.Kind != kind {
			return core.ErrUnknownCategory
		}
		if !cat.Active {
			return core.ErrCategoryInactive
		}

		if kind == core.Income {
			if err := checkIncomeScope(ctx, tx, cat, p); err != nil {
				return err
			}
			if _, err := tx.GetHousehold(ctx, p.HouseholdID); err != nil {
				return err
			}
			propagate = cat.Scope == core.ScopeHousehold
		}

		if err := withAudit(ctx, tx, p.Principal, when, func() (Mutation, error) {
			if err := insertNumbered(ctx, tx, &tr); err != nil {
				return Mutation{}, err
			}
			return inserted(core.EntityTransaction, tr.ID, tr), nil
		}); err != nil {
			return err
		}

		if propagate {
			if err := l.propagate(ctx, tx, tr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	metrics.TransactionsRecorded.WithLabelValues(string(kind)).Inc()
	slog.InfoContext(ctx, "Transaction recorded",
		"kind", kind,
		"number", tr.Number,
		"amount_cents", tr.Amount.Cents,
		"category_id", tr.CategoryID,
		"household_id", tr.HouseholdID,
		"propagated", propagate,
		"principal", p.Principal)

	l.publishRecorded(ctx, tr)
	return tr, nil
}

func checkIncomeScope(ctx context.Context, tx *storage.Tx, cat core.Category, p RecordParams) error {
	switch cat.Scope {
	case core.ScopeMember:
		if p.MemberID == 0 {
			return core.ErrScopeMismatch
		}
		m, err := tx.GetMember(ctx, p.MemberID)
		if err != nil {
			return err
		}
		if m.HouseholdID != p.HouseholdID {
			return core.ErrScopeMismatch
		}
	case core.ScopeHousehold:
		if p.MemberID != 0 {
			return core.ErrScopeMismatch
		}
	}
	return nil
}

// insertNumbered assigns a fresh transaction number and inserts the row,
// regenerating on a uniqueness conflict up to a small bound.
func insertNumbered(ctx context.Context, tx *storage.Tx, tr *core.Transaction) error {
	var err error
	for attempt := 0; attempt < numberRetries; attempt++ {
		tr.Number, err = tx.NextTransactionNumber(ctx, tr.Kind)
		if err != nil {
			return err
		}
		err = tx.InsertTransaction(ctx, tr)
		if !errors.Is(err, core.ErrNumberGenerationFailed) {
			return err
		}
	}
	return core.ErrNumberGenerationFailed
}

// DeleteTransaction removes a transaction together with its attachments,
// producing one audit entry per deleted record, all in one atomic unit.
// Paid status already propagated by the transaction is left as is.
func (l *Ledger) DeleteTransaction(ctx context.Context, id int64, principal string) error {
	now := time.Now().UTC()
	err := l.inUnit(ctx, func(tx *storage.Tx) error {
		tr, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		attachments, err := tx.ListAttachmentsByTransaction(ctx, tr.Kind, tr.ID)
		if err != nil {
			return err
		}
		for _, a := range attachments {
			a := a
			if err := withAudit(ctx, tx, principal, now, func() (Mutation, error) {
				if err := tx.DeleteAttachment(ctx, a.ID); err != nil {
					return Mutation{}, err
				}
				return deleted(core.EntityAttachment, a.ID, a), nil
			}); err != nil {
				return err
			}
		}

		return withAudit(ctx, tx, principal, now, func() (Mutation, error) {
			if err := tx.DeleteTransaction(ctx, tr.ID); err != nil {
				return Mutation{}, err
			}
			return deleted(core.EntityTransaction, tr.ID, tr), nil
		})
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "principal", principal)
	return nil
}
