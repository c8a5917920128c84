package storage

import (
	"context"
	"database/sql"
	"time"

	"quote/internal/core"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same row operations
// back the in-unit writes and the plain read paths.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const householdColumns = "id, name, phone, email, address, paid, paid_at, version, created_at, updated_at"

func scanHousehold(row *sql.Row) (core.Household, error) {
	var h core.Household
	var paidAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&h.ID, &h.Name, &h.Phone, &h.Email, &h.Address, &h.Paid, &paidAt, &h.Version, &createdAt, &updatedAt)
	if err != nil {
		return core.Household{}, err
	}
	h.PaidAt = timePtr(paidAt)
	h.CreatedAt = fromUnixNano(createdAt)
	h.UpdatedAt = fromUnixNano(updatedAt)
	return h, nil
}

func getHousehold(ctx context.Context, q dbtx, id int64) (core.Household, error) {
	row := q.QueryRowContext(ctx, "SELECT "+householdColumns+" FROM households WHERE id = ?", id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return core.Household{}, core.ErrUnknownHousehold
	}
	if err != nil {
		return core.Household{}, storeErr("get household", err)
	}
	return h, nil
}

// GetHousehold loads a household inside the current atomic unit.
func (t *Tx) GetHousehold(ctx context.Context, id int64) (core.Household, error) {
	return getHousehold(ctx, t.tx, id)
}

// GetHousehold is the plain read path used by status queries.
func (s *Store) GetHousehold(ctx context.Context, id int64) (core.Household, error) {
	return getHousehold(ctx, s.db, id)
}

// InsertHousehold persists a new household and fills in ID, version and
// timestamps on h.
func (t *Tx) InsertHousehold(ctx context.Context, h *core.Household) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO households (name, phone, email, address, paid, paid_at, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)",
		h.Name, h.Phone, h.Email, h.Address, h.Paid, nullTime(h.PaidAt), toUnixNano(now), toUnixNano(now),
	)
	if err != nil {
		return storeErr("insert household", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert household id", err)
	}
	h.ID = id
	h.Version = 1
	h.CreatedAt = now
	h.UpdatedAt = now
	return nil
}

// UpdateHouseholdPaid writes the paid flag and timestamp under an optimistic
// version check. A zero-row update means another writer got there first and
// surfaces as ErrConcurrencyConflict.
func (t *Tx) UpdateHouseholdPaid(ctx context.Context, h *core.Household) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"UPDATE households SET paid = ?, paid_at = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		h.Paid, nullTime(h.PaidAt), toUnixNano(now), h.ID, h.Version,
	)
	if err != nil {
		return storeErr("update household paid", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update household paid rows", err)
	}
	if n == 0 {
		return core.ErrConcurrencyConflict
	}
	h.Version++
	h.UpdatedAt = now
	return nil
}

// DeleteHousehold removes a household. Households still referenced by
// members are cascade-protected and fail with ErrHouseholdHasMember.
func (t *Tx) DeleteHousehold(ctx context.Context, id int64) error {
	var n int64
	err := t.tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM members WHERE household_id = ?", id).Scan(&n)
	if err != nil {
		return storeErr("count household members", err)
	}
	if n > 0 {
		return core.ErrHouseholdHasMember
	}
	res, err := t.tx.ExecContext(ctx, "DELETE FROM households WHERE id = ?", id)
	if err != nil {
		return storeErr("delete household", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("delete household rows", err)
	}
	if affected == 0 {
		return core.ErrUnknownHousehold
	}
	return nil
}
