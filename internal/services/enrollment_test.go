package services

import (
	"context"
	"errors"
	"testing"

	"quote/internal/core"
)

func TestEnrollMemberDuplicateCode(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.enrollment.EnrollMember(ctx, MemberParams{
		HouseholdID: f.household.ID,
		Code:        f.members[0].Code,
		FirstName:   "Ana",
		LastName:    "Cruz",
		Principal:   "admin",
	})
	if !errors.Is(err, core.ErrDuplicateCode) {
		t.Fatalf("got %v, want ErrDuplicateCode", err)
	}
}

func TestEnrollMemberUnknownHousehold(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.enrollment.EnrollMember(context.Background(), MemberParams{
		HouseholdID: 9999,
		Code:        "Q-99",
		FirstName:   "Ana",
		LastName:    "Cruz",
		Principal:   "admin",
	})
	if !errors.Is(err, core.ErrUnknownHousehold) {
		t.Fatalf("got %v, want ErrUnknownHousehold", err)
	}
}

func TestRemoveHousehold(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	t.Run("with members", func(t *testing.T) {
		err := f.enrollment.RemoveHousehold(ctx, f.household.ID, "admin")
		if !errors.Is(err, core.ErrHouseholdHasMember) {
			t.Fatalf("got %v, want ErrHouseholdHasMember", err)
		}
	})

	t.Run("empty household", func(t *testing.T) {
		h, err := f.enrollment.RegisterHousehold(ctx, HouseholdParams{Name: "Reyes", Principal: "admin"})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := f.enrollment.RemoveHousehold(ctx, h.ID, "admin"); err != nil {
			t.Fatalf("remove: %v", err)
		}

		if _, err := f.store.GetHousehold(ctx, h.ID); !errors.Is(err, core.ErrUnknownHousehold) {
			t.Errorf("household still resolvable: %v", err)
		}
		// Register + remove both leave a trail.
		if n := f.auditCount(t, core.EntityHousehold, h.ID); n != 2 {
			t.Errorf("audit entries: got %d, want 2", n)
		}
	})
}
