package storage

import (
	"context"
	"database/sql"
	"time"

	"quote/internal/core"
)

const categoryColumns = "id, kind, name, scope, default_amount_cents, budget_ceiling_cents, active, created_at, updated_at"

func scanCategoryRow(scan func(dest ...any) error) (core.Category, error) {
	var c core.Category
	var scope sql.NullString
	var createdAt, updatedAt int64
	err := scan(&c.ID, &c.Kind, &c.Name, &scope, &c.DefaultAmount.Cents, &c.BudgetCeiling.Cents, &c.Active, &createdAt, &updatedAt)
	if err != nil {
		return core.Category{}, err
	}
	if scope.Valid {
		c.Scope = core.CategoryScope(scope.String)
	}
	c.CreatedAt = fromUnixNano(createdAt)
	c.UpdatedAt = fromUnixNano(updatedAt)
	return c, nil
}

func nullScope(s core.CategoryScope) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(s), Valid: true}
}

func getCategory(ctx context.Context, q dbtx, id int64) (core.Category, error) {
	row := q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	c, err := scanCategoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return core.Category{}, core.ErrUnknownCategory
	}
	if err != nil {
		return core.Category{}, storeErr("get category", err)
	}
	return c, nil
}

func (t *Tx) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return getCategory(ctx, t.tx, id)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return getCategory(ctx, s.db, id)
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE name = ?", name)
	c, err := scanCategoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return core.Category{}, core.ErrUnknownCategory
	}
	if err != nil {
		return core.Category{}, storeErr("get category by name", err)
	}
	return c, nil
}

// ListCategories returns categories of a kind, active first, by name.
// Kind may be empty to list everything.
func (s *Store) ListCategories(ctx context.Context, kind core.TransactionKind) ([]core.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY active DESC, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategoryRow(rows.Scan)
		if err != nil {
			return nil, storeErr("scan category", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate categories", err)
	}
	return cats, nil
}

// InsertCategory persists a new category. Duplicate names surface as
// ErrDuplicateCategory.
func (t *Tx) InsertCategory(ctx context.Context, c *core.Category) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO categories (kind, name, scope, default_amount_cents, budget_ceiling_cents, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		c.Kind, c.Name, nullScope(c.Scope), c.DefaultAmount.Cents, c.BudgetCeiling.Cents, c.Active, toUnixNano(now), toUnixNano(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateCategory
		}
		return storeErr("insert category", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert category id", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// UpdateCategory writes administrative edits (name, default amount, budget
// ceiling, active flag). Kind and scope are immutable once created.
func (t *Tx) UpdateCategory(ctx context.Context, c *core.Category) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"UPDATE categories SET name = ?, default_amount_cents = ?, budget_ceiling_cents = ?, active = ?, updated_at = ? WHERE id = ?",
		c.Name, c.DefaultAmount.Cents, c.BudgetCeiling.Cents, c.Active, toUnixNano(now), c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateCategory
		}
		return storeErr("update category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update category rows", err)
	}
	if n == 0 {
		return core.ErrUnknownCategory
	}
	c.UpdatedAt = now
	return nil
}
