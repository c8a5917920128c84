package services

import (
	"context"
	"log/slog"
	"time"

	"quote/internal/core"
	"quote/internal/metrics"
	"quote/internal/storage"
)

// AttachParams links a stored blob to its owning transaction. Exactly one of
// IncomeTxID and ExpenseTxID must be set. BlobRef comes verbatim from the
// blob store collaborator.
type AttachParams struct {
	IncomeTxID  int64
	ExpenseTxID int64
	FileName    string
	ContentType string
	SizeBytes   int64
	BlobRef     string
	Principal   string
}

// Attach validates the association gate and persists the attachment with its
// audit entry in one atomic unit.
func (l *Ledger) Attach(ctx context.Context, p AttachParams) (core.Attachment, error) {
	a := core.Attachment{
		IncomeTxID:  p.IncomeTxID,
		ExpenseTxID: p.ExpenseTxID,
		FileName:    p.FileName,
		ContentType: p.ContentType,
		SizeBytes:   p.SizeBytes,
		BlobRef:     p.BlobRef,
		UploadedBy:  p.Principal,
	}
	if err := a.Validate(); err != nil {
		return core.Attachment{}, err
	}

	now := time.Now().UTC()
	err := l.inUnit(ctx, func(tx *storage.Tx) error {
		a.ID = 0

		// The owning transaction must exist and be of the referenced kind.
		wantKind, txID := core.Income, a.IncomeTxID
		if a.ExpenseTxID != 0 {
			wantKind, txID = core.Expense, a.ExpenseTxID
		}
		tr, err := tx.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if tr.Kind != wantKind {
			return core.ErrUnknownTransaction
		}

		return withAudit(ctx, tx, p.Principal, now, func() (Mutation, error) {
			if err := tx.InsertAttachment(ctx, &a); err != nil {
				return Mutation{}, err
			}
			return inserted(core.EntityAttachment, a.ID, a), nil
		})
	})
	if err != nil {
		return core.Attachment{}, err
	}

	metrics.AttachmentsLinked.Inc()
	slog.InfoContext(ctx, "Attachment linked",
		"attachment_id", a.ID,
		"income_tx_id", a.IncomeTxID,
		"expense_tx_id", a.ExpenseTxID,
		"file_name", a.FileName,
		"principal", p.Principal)
	return a, nil
}
