package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quote/internal/core"
)

const transactionColumns = "id, kind, number, category_id, amount_cents, household_id, member_id, method, reference, notes, recorded_by, recorded_at"

func scanTransactionRow(scan func(dest ...any) error) (core.Transaction, error) {
	var tr core.Transaction
	var householdID, memberID sql.NullInt64
	var recordedAt int64
	err := scan(&tr.ID, &tr.Kind, &tr.Number, &tr.CategoryID, &tr.Amount.Cents,
		&householdID, &memberID, &tr.Method, &tr.Reference, &tr.Notes, &tr.RecordedBy, &recordedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	tr.HouseholdID = householdID.Int64
	tr.MemberID = memberID.Int64
	tr.RecordedAt = fromUnixNano(recordedAt)
	return tr, nil
}

func getTransaction(ctx context.Context, q dbtx, id int64) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	tr, err := scanTransactionRow(row.Scan)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrUnknownTransaction
	}
	if err != nil {
		return core.Transaction{}, storeErr("get transaction", err)
	}
	return tr, nil
}

func (t *Tx) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, t.tx, id)
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return getTransaction(ctx, s.db, id)
}

// NextTransactionNumber bumps the per-kind counter and formats the next
// human-readable number, e.g. INC-000042. The counter row lives in the same
// atomic unit as the insert, so a rolled-back unit never burns a number
// that another committed transaction skipped over.
func (t *Tx) NextTransactionNumber(ctx context.Context, kind core.TransactionKind) (string, error) {
	var seq int64
	err := t.tx.QueryRowContext(ctx, "SELECT next_seq FROM transaction_counters WHERE kind = ?", kind).Scan(&seq)
	if err != nil {
		return "", storeErr("read transaction counter", err)
	}
	if _, err := t.tx.ExecContext(ctx, "UPDATE transaction_counters SET next_seq = next_seq + 1 WHERE kind = ?", kind); err != nil {
		return "", storeErr("bump transaction counter", err)
	}
	return fmt.Sprintf("%s-%06d", kind.Prefix(), seq), nil
}

// InsertTransaction persists a transaction record. A duplicate (kind, number)
// pair surfaces as ErrNumberGenerationFailed so the recorder can regenerate.
func (t *Tx) InsertTransaction(ctx context.Context, tr *core.Transaction) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions (kind, number, category_id, amount_cents, household_id, member_id, method, reference, notes, recorded_by, recorded_at, export_state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?)`,
		tr.Kind, tr.Number, tr.CategoryID, tr.Amount.Cents, nullID(tr.HouseholdID), nullID(tr.MemberID),
		tr.Method, tr.Reference, tr.Notes, tr.RecordedBy, toUnixNano(tr.RecordedAt), toUnixNano(now), toUnixNano(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrNumberGenerationFailed
		}
		return storeErr("insert transaction", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert transaction id", err)
	}
	tr.ID = id
	return nil
}

// DeleteTransaction removes the row. Attachments are cascaded by the caller
// inside the same unit so each deletion gets its own audit entry.
func (t *Tx) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return storeErr("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete transaction rows", err)
	}
	if n == 0 {
		return core.ErrUnknownTransaction
	}
	return nil
}

// ExportRow is the denormalized shape appended to the treasurer spreadsheet.
type ExportRow struct {
	TransactionID int64
	Number        string
	Kind          core.TransactionKind
	Category      string
	Household     string
	Member        string
	AmountCents   int64
	Method        core.PaymentMethod
	RecordedBy    string
	RecordedAt    time.Time
}

// PendingExport lists committed transactions not yet exported, oldest first.
// This is the backup scan for events lost between commit and publish.
func (s *Store) PendingExport(ctx context.Context, limit int) ([]ExportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.number, t.kind, c.name,
		       COALESCE(h.name, ''), COALESCE(m.first_name || ' ' || m.last_name, ''),
		       t.amount_cents, t.method, t.recorded_by, t.recorded_at
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		LEFT JOIN households h ON h.id = t.household_id
		LEFT JOIN members m ON m.id = t.member_id
		WHERE t.export_state = 'pending'
		ORDER BY t.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list pending export", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var r ExportRow
		var recordedAt int64
		if err := rows.Scan(&r.TransactionID, &r.Number, &r.Kind, &r.Category, &r.Household, &r.Member,
			&r.AmountCents, &r.Method, &r.RecordedBy, &recordedAt); err != nil {
			return nil, storeErr("scan pending export", err)
		}
		r.RecordedAt = fromUnixNano(recordedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate pending export", err)
	}
	return out, nil
}

// ExportRowByID loads the export shape for a single transaction.
func (s *Store) ExportRowByID(ctx context.Context, id int64) (ExportRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT t.id, t.number, t.kind, c.name,
		       COALESCE(h.name, ''), COALESCE(m.first_name || ' ' || m.last_name, ''),
		       t.amount_cents, t.method, t.recorded_by, t.recorded_at
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		LEFT JOIN households h ON h.id = t.household_id
		LEFT JOIN members m ON m.id = t.member_id
		WHERE t.id = ?`, id)

	var r ExportRow
	var recordedAt int64
	err := row.Scan(&r.TransactionID, &r.Number, &r.Kind, &r.Category, &r.Household, &r.Member,
		&r.AmountCents, &r.Method, &r.RecordedBy, &recordedAt)
	if err == sql.ErrNoRows {
		return ExportRow{}, core.ErrUnknownTransaction
	}
	if err != nil {
		return ExportRow{}, storeErr("get export row", err)
	}
	r.RecordedAt = fromUnixNano(recordedAt)
	return r, nil
}

// MarkExported flips export_state after a successful append.
func (s *Store) MarkExported(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET export_state = 'exported', updated_at = ? WHERE id = ?", toUnixNano(time.Now().UTC()), id); err != nil {
		return storeErr("mark exported", err)
	}
	return nil
}

// MarkExportError flags a transaction whose export repeatedly failed so the
// periodic scan stops retrying it.
func (s *Store) MarkExportError(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET export_state = 'error', updated_at = ? WHERE id = ?", toUnixNano(time.Now().UTC()), id); err != nil {
		return storeErr("mark export error", err)
	}
	return nil
}
