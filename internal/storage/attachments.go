package storage

import (
	"context"
	"database/sql"
	"time"

	"quote/internal/core"
)

const attachmentColumns = "id, income_tx_id, expense_tx_id, file_name, content_type, size_bytes, blob_ref, uploaded_by, created_at"

func scanAttachmentRow(scan func(dest ...any) error) (core.Attachment, error) {
	var a core.Attachment
	var incomeID, expenseID sql.NullInt64
	var createdAt int64
	err := scan(&a.ID, &incomeID, &expenseID, &a.FileName, &a.ContentType, &a.SizeBytes, &a.BlobRef, &a.UploadedBy, &createdAt)
	if err != nil {
		return core.Attachment{}, err
	}
	a.IncomeTxID = incomeID.Int64
	a.ExpenseTxID = expenseID.Int64
	a.CreatedAt = fromUnixNano(createdAt)
	return a, nil
}

func (t *Tx) InsertAttachment(ctx context.Context, a *core.Attachment) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO attachments (income_tx_id, expense_tx_id, file_name, content_type, size_bytes, blob_ref, uploaded_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		nullID(a.IncomeTxID), nullID(a.ExpenseTxID), a.FileName, a.ContentType, a.SizeBytes, a.BlobRef, a.UploadedBy, toUnixNano(now),
	)
	if err != nil {
		return storeErr("insert attachment", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert attachment id", err)
	}
	a.ID = id
	a.CreatedAt = now
	return nil
}

// ListAttachmentsByTransaction returns the attachments owned by a
// transaction of the given kind, inside the caller's atomic unit.
func (t *Tx) ListAttachmentsByTransaction(ctx context.Context, kind core.TransactionKind, txID int64) ([]core.Attachment, error) {
	column := "income_tx_id"
	if kind == core.Expense {
		column = "expense_tx_id"
	}
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE "+column+" = ? ORDER BY id", txID)
	if err != nil {
		return nil, storeErr("list attachments", err)
	}
	defer rows.Close()

	var out []core.Attachment
	for rows.Next() {
		a, err := scanAttachmentRow(rows.Scan)
		if err != nil {
			return nil, storeErr("scan attachment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate attachments", err)
	}
	return out, nil
}

func (s *Store) GetAttachment(ctx context.Context, id int64) (core.Attachment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE id = ?", id)
	a, err := scanAttachmentRow(row.Scan)
	if err == sql.ErrNoRows {
		return core.Attachment{}, core.ErrUnknownTransaction
	}
	if err != nil {
		return core.Attachment{}, storeErr("get attachment", err)
	}
	return a, nil
}

func (t *Tx) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id)
	if err != nil {
		return storeErr("delete attachment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete attachment rows", err)
	}
	if n == 0 {
		return core.ErrUnknownTransaction
	}
	return nil
}
