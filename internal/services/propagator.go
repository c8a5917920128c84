package services

import (
	"context"
	"log/slog"

	"quote/internal/core"
	"quote/internal/metrics"
	"quote/internal/storage"
)

// propagate fans a committed household-scoped payment out to derived paid
// state: the household itself and every member currently linked to it, each
// update with its own audit entry, all inside the caller's atomic unit.
// It is never invoked outside the recorder.
//
// PaidAt only moves forward: a duplicate payment whose timestamp precedes
// the stamp already on the household re-asserts paid without regressing the
// timestamp, so concurrent duplicates converge on the later of the two.
//
// Members enrolled after the payment are deliberately untouched; enrollment
// decides whether to copy the household's paid flag forward.
func (l *Ledger) propagate(ctx context.Context, tx *storage.Tx, tr core.Transaction) error {
	h, err := tx.GetHousehold(ctx, tr.HouseholdID)
	if err != nil {
		return err
	}

	prior := h
	h.Paid = true
	if h.PaidAt == nil || tr.RecordedAt.After(*h.PaidAt) {
		paidAt := tr.RecordedAt
		h.PaidAt = &paidAt
	}
	if err := withAudit(ctx, tx, tr.RecordedBy, tr.RecordedAt, func() (Mutation, error) {
		if err := tx.UpdateHouseholdPaid(ctx, &h); err != nil {
			return Mutation{}, err
		}
		return updated(core.EntityHousehold, h.ID, prior, h), nil
	}); err != nil {
		return err
	}

	members, err := tx.ListMembersByHousehold(ctx, h.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		m := m
		priorMember := m
		m.Paid = true
		if err := withAudit(ctx, tx, tr.RecordedBy, tr.RecordedAt, func() (Mutation, error) {
			if err := tx.UpdateMemberPaid(ctx, &m); err != nil {
				return Mutation{}, err
			}
			return updated(core.EntityMember, m.ID, priorMember, m), nil
		}); err != nil {
			return err
		}
	}

	metrics.Propagations.Inc()
	metrics.PropagatedMembers.Add(float64(len(members)))
	slog.InfoContext(ctx, "Payment status propagated",
		"household_id", h.ID,
		"members", len(members),
		"paid_at", h.PaidAt,
		"transaction_number", tr.Number)
	return nil
}
