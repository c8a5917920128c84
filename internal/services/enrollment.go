package services

import (
	"context"
	"log/slog"
	"time"

	"quote/internal/core"
	"quote/internal/storage"
)

// Enrollment creates the reference records the ledger reads: households and
// the members linked to them. It owns the one policy decision the status
// propagator explicitly stays out of — whether a member joining an
// already-paid household inherits the paid flag.
type Enrollment struct {
	store *storage.Store

	// CopyPaidOnEnroll copies the household's current paid flag onto newly
	// enrolled members. Off by default: propagation is not retroactive.
	CopyPaidOnEnroll bool
}

func NewEnrollment(store *storage.Store) *Enrollment {
	return &Enrollment{store: store}
}

// HouseholdParams describes a household registration.
type HouseholdParams struct {
	Name      string
	Phone     string
	Email     string
	Address   string
	Principal string
}

func (e *Enrollment) RegisterHousehold(ctx context.Context, p HouseholdParams) (core.Household, error) {
	h := core.Household{
		Name:    p.Name,
		Phone:   p.Phone,
		Email:   p.Email,
		Address: p.Address,
	}
	if err := h.Validate(); err != nil {
		return core.Household{}, err
	}

	now := time.Now().UTC()
	err := e.store.InTx(ctx, func(tx *storage.Tx) error {
		return withAudit(ctx, tx, p.Principal, now, func() (Mutation, error) {
			if err := tx.InsertHousehold(ctx, &h); err != nil {
				return Mutation{}, err
			}
			return inserted(core.EntityHousehold, h.ID, h), nil
		})
	})
	if err != nil {
		return core.Household{}, err
	}

	slog.InfoContext(ctx, "Household registered", "household_id", h.ID, "name", h.Name, "principal", p.Principal)
	return h, nil
}

// MemberParams describes a member enrollment.
type MemberParams struct {
	HouseholdID int64
	Code        string
	FirstName   string
	LastName    string
	Group       string
	Principal   string
}

// EnrollMember links a new member to an existing household. The member
// starts unpaid unless CopyPaidOnEnroll is set and the household has
// already paid.
func (e *Enrollment) EnrollMember(ctx context.Context, p MemberParams) (core.Member, error) {
	m := core.Member{
		HouseholdID: p.HouseholdID,
		Code:        p.Code,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Group:       p.Group,
	}
	if err := m.Validate(); err != nil {
		return core.Member{}, err
	}

	now := time.Now().UTC()
	err := e.store.InTx(ctx, func(tx *storage.Tx) error {
		m.ID = 0

		h, err := tx.GetHousehold(ctx, p.HouseholdID)
		if err != nil {
			return err
		}
		if e.CopyPaidOnEnroll && h.Paid {
			m.Paid = true
		}

		return withAudit(ctx, tx, p.Principal, now, func() (Mutation, error) {
			if err := tx.InsertMember(ctx, &m); err != nil {
				return Mutation{}, err
			}
			return inserted(core.EntityMember, m.ID, m), nil
		})
	})
	if err != nil {
		return core.Member{}, err
	}

	slog.InfoContext(ctx, "Member enrolled",
		"member_id", m.ID, "household_id", m.HouseholdID, "code", m.Code, "paid", m.Paid, "principal", p.Principal)
	return m, nil
}

// RemoveHousehold deletes a household with no members left. Households that
// still have members are cascade-protected.
func (e *Enrollment) RemoveHousehold(ctx context.Context, id int64, principal string) error {
	now := time.Now().UTC()
	return e.store.InTx(ctx, func(tx *storage.Tx) error {
		prior, err := tx.GetHousehold(ctx, id)
		if err != nil {
			return err
		}
		return withAudit(ctx, tx, principal, now, func() (Mutation, error) {
			if err := tx.DeleteHousehold(ctx, id); err != nil {
				return Mutation{}, err
			}
			return deleted(core.EntityHousehold, id, prior), nil
		})
	})
}
