package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quote/internal/core"
	"quote/internal/storage"
)

// Registry manages the fee/expense category catalog. Categories referenced
// by historical transactions are never hard-deleted; Deactivate flips the
// active flag and leaves them resolvable.
type Registry struct {
	store *storage.Store
}

func NewRegistry(store *storage.Store) *Registry {
	return &Registry{store: store}
}

// CategoryParams describes a category create or administrative edit.
type CategoryParams struct {
	Kind               core.TransactionKind
	Name               string
	Scope              core.CategoryScope
	DefaultAmountCents int64
	BudgetCeilingCents int64
	Principal          string
}

func (r *Registry) Create(ctx context.Context, p CategoryParams) (core.Category, error) {
	c := core.Category{
		Kind:          p.Kind,
		Name:          strings.TrimSpace(p.Name),
		Scope:         p.Scope,
		DefaultAmount: core.Money{Cents: p.DefaultAmountCents},
		BudgetCeiling: core.Money{Cents: p.BudgetCeilingCents},
		Active:        true,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	now := time.Now().UTC()
	err := r.store.InTx(ctx, func(tx *storage.Tx) error {
		return withAudit(ctx, tx, p.Principal, now, func() (Mutation, error) {
			if err := tx.InsertCategory(ctx, &c); err != nil {
				return Mutation{}, err
			}
			return inserted(core.EntityCategory, c.ID, c), nil
		})
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category created",
		"category_id", c.ID, "kind", c.Kind, "name", c.Name, "principal", p.Principal)
	return c, nil
}

// Update applies administrative edits to name, default amount and budget
// ceiling. Kind and scope are immutable once a category exists.
func (r *Registry) Update(ctx context.Context, id int64, p CategoryParams) (core.Category, error) {
	var c core.Category
	now := time.Now().UTC()
	err := r.store.InTx(ctx, func(tx *storage.Tx) error {
		prior, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		c = prior
		c.Name = strings.TrimSpace(p.Name)
		c.DefaultAmount = core.Money{Cents: p.DefaultAmountCents}
		c.BudgetCeiling = core.Money{Cents: p.BudgetCeilingCents}
		if err := c.Validate(); err != nil {
			return err
		}
		return withAudit(ctx, tx, p.Principal, now, func() (Mutation, error) {
			if err := tx.UpdateCategory(ctx, &c); err != nil {
				return Mutation{}, err
			}
			return updated(core.EntityCategory, c.ID, prior, c), nil
		})
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// Deactivate logically retires a category. Already-inactive categories are
// a no-op.
func (r *Registry) Deactivate(ctx context.Context, id int64, principal string) error {
	now := time.Now().UTC()
	return r.store.InTx(ctx, func(tx *storage.Tx) error {
		prior, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if !prior.Active {
			return nil
		}
		next := prior
		next.Active = false
		return withAudit(ctx, tx, principal, now, func() (Mutation, error) {
			if err := tx.UpdateCategory(ctx, &next); err != nil {
				return Mutation{}, err
			}
			return updated(core.EntityCategory, next.ID, prior, next), nil
		})
	})
}

func (r *Registry) Get(ctx context.Context, id int64) (core.Category, error) {
	return r.store.GetCategory(ctx, id)
}

func (r *Registry) GetByName(ctx context.Context, name string) (core.Category, error) {
	return r.store.GetCategoryByName(ctx, name)
}

func (r *Registry) List(ctx context.Context, kind core.TransactionKind) ([]core.Category, error) {
	return r.store.ListCategories(ctx, kind)
}

// CategorySeed is one entry of the bootstrap catalog.
type CategorySeed struct {
	Kind          core.TransactionKind
	Name          string
	Scope         core.CategoryScope
	DefaultAmount int64
	BudgetCeiling int64
}

// ApplySeed creates any seed categories that do not exist yet. Existing
// categories are left untouched, including administrative edits made since.
func (r *Registry) ApplySeed(ctx context.Context, seeds []CategorySeed) error {
	created := 0
	for _, s := range seeds {
		_, err := r.store.GetCategoryByName(ctx, s.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, core.ErrUnknownCategory) {
			return err
		}
		if _, err := r.Create(ctx, CategoryParams{
			Kind:               s.Kind,
			Name:               s.Name,
			Scope:              s.Scope,
			DefaultAmountCents: s.DefaultAmount,
			BudgetCeilingCents: s.BudgetCeiling,
			Principal:          "system",
		}); err != nil {
			return err
		}
		created++
	}
	if created > 0 {
		slog.InfoContext(ctx, "Category seed applied", "created", created, "total", len(seeds))
	}
	return nil
}
