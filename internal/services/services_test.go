package services

import (
	"context"
	"path/filepath"
	"testing"

	"quote/internal/core"
	"quote/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

type fixture struct {
	store      *storage.Store
	ledger     *Ledger
	registry   *Registry
	enrollment *Enrollment

	annualFee core.Category // income, household-scoped, default 250.00
	campFee   core.Category // income, member-scoped
	supplies  core.Category // expense

	household core.Household
	members   []core.Member
}

// newFixture builds a store with the standard catalog plus one household
// ("Cruz") with the requested number of members.
func newFixture(t *testing.T, memberCount int) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{store: newTestStore(t)}
	f.ledger = NewLedger(f.store, nil)
	f.registry = NewRegistry(f.store)
	f.enrollment = NewEnrollment(f.store)

	var err error
	f.annualFee, err = f.registry.Create(ctx, CategoryParams{
		Kind: core.Income, Name: "annual-fee", Scope: core.ScopeHousehold,
		DefaultAmountCents: 25000, Principal: "admin",
	})
	if err != nil {
		t.Fatalf("create annual-fee: %v", err)
	}
	f.campFee, err = f.registry.Create(ctx, CategoryParams{
		Kind: core.Income, Name: "camp-fee", Scope: core.ScopeMember,
		DefaultAmountCents: 5000, Principal: "admin",
	})
	if err != nil {
		t.Fatalf("create camp-fee: %v", err)
	}
	f.supplies, err = f.registry.Create(ctx, CategoryParams{
		Kind: core.Expense, Name: "supplies",
		BudgetCeilingCents: 100000, Principal: "admin",
	})
	if err != nil {
		t.Fatalf("create supplies: %v", err)
	}

	f.household, err = f.enrollment.RegisterHousehold(ctx, HouseholdParams{
		Name: "Cruz", Email: "cruz@example.org", Principal: "admin",
	})
	if err != nil {
		t.Fatalf("register household: %v", err)
	}

	for i := 0; i < memberCount; i++ {
		m, err := f.enrollment.EnrollMember(ctx, MemberParams{
			HouseholdID: f.household.ID,
			Code:        memberCode(i),
			FirstName:   "Member",
			LastName:    string(rune('A' + i)),
			Principal:   "admin",
		})
		if err != nil {
			t.Fatalf("enroll member %d: %v", i, err)
		}
		f.members = append(f.members, m)
	}
	return f
}

func memberCode(i int) string {
	return "M-" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}

func (f *fixture) auditCount(t *testing.T, entity string, id int64) int64 {
	t.Helper()
	n, err := f.store.CountAuditEntries(context.Background(), entity, id)
	if err != nil {
		t.Fatalf("count audit entries: %v", err)
	}
	return n
}
