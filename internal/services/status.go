package services

import (
	"context"
	"time"

	"quote/internal/core"
)

// PaymentStatus is the read-path answer for a household or member.
type PaymentStatus struct {
	Paid   bool       `json:"paid"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

func (l *Ledger) HouseholdStatus(ctx context.Context, householdID int64) (PaymentStatus, error) {
	h, err := l.store.GetHousehold(ctx, householdID)
	if err != nil {
		return PaymentStatus{}, err
	}
	return PaymentStatus{Paid: h.Paid, PaidAt: h.PaidAt}, nil
}

// MemberStatus reports the member's own paid flag together with the
// household's paid_at stamp, which is the authoritative payment time for
// household-scoped fees.
func (l *Ledger) MemberStatus(ctx context.Context, memberID int64) (PaymentStatus, error) {
	m, err := l.store.GetMember(ctx, memberID)
	if err != nil {
		return PaymentStatus{}, err
	}
	status := PaymentStatus{Paid: m.Paid}
	if m.Paid {
		h, err := l.store.GetHousehold(ctx, m.HouseholdID)
		if err != nil {
			return PaymentStatus{}, err
		}
		status.PaidAt = h.PaidAt
	}
	return status, nil
}

// AuditTrail returns one page of an entity's audit history, oldest first.
// The returned cursor is the last entry's sequence; pass it back as after
// to resume. A zero cursor with an empty page means the trail is exhausted.
func (l *Ledger) AuditTrail(ctx context.Context, entity string, entityID int64, after int64, limit int) ([]core.AuditEntry, int64, error) {
	entries, err := l.store.ListAuditTrail(ctx, entity, entityID, after, limit)
	if err != nil {
		return nil, 0, err
	}
	var cursor int64
	if len(entries) > 0 {
		cursor = entries[len(entries)-1].ID
	}
	return entries, cursor, nil
}

// Transaction loads a single transaction by ID.
func (l *Ledger) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	return l.store.GetTransaction(ctx, id)
}
