package storage

import (
	"context"
	"database/sql"
	"time"

	"quote/internal/core"
)

const memberColumns = "id, household_id, code, first_name, last_name, grp, paid, version, created_at, updated_at"

func scanMemberRow(scan func(dest ...any) error) (core.Member, error) {
	var m core.Member
	var createdAt, updatedAt int64
	err := scan(&m.ID, &m.HouseholdID, &m.Code, &m.FirstName, &m.LastName, &m.Group, &m.Paid, &m.Version, &createdAt, &updatedAt)
	if err != nil {
		return core.Member{}, err
	}
	m.CreatedAt = fromUnixNano(createdAt)
	m.UpdatedAt = fromUnixNano(updatedAt)
	return m, nil
}

func getMember(ctx context.Context, q dbtx, id int64) (core.Member, error) {
	row := q.QueryRowContext(ctx, "SELECT "+memberColumns+" FROM members WHERE id = ?", id)
	m, err := scanMemberRow(row.Scan)
	if err == sql.ErrNoRows {
		return core.Member{}, core.ErrUnknownMember
	}
	if err != nil {
		return core.Member{}, storeErr("get member", err)
	}
	return m, nil
}

func listMembersByHousehold(ctx context.Context, q dbtx, householdID int64) ([]core.Member, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE household_id = ? ORDER BY id", householdID)
	if err != nil {
		return nil, storeErr("list members", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		m, err := scanMemberRow(rows.Scan)
		if err != nil {
			return nil, storeErr("scan member", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate members", err)
	}
	return members, nil
}

func (t *Tx) GetMember(ctx context.Context, id int64) (core.Member, error) {
	return getMember(ctx, t.tx, id)
}

func (s *Store) GetMember(ctx context.Context, id int64) (core.Member, error) {
	return getMember(ctx, s.db, id)
}

// ListMembersByHousehold returns the members currently linked to the
// household, inside the caller's atomic unit.
func (t *Tx) ListMembersByHousehold(ctx context.Context, householdID int64) ([]core.Member, error) {
	return listMembersByHousehold(ctx, t.tx, householdID)
}

func (s *Store) ListMembersByHousehold(ctx context.Context, householdID int64) ([]core.Member, error) {
	return listMembersByHousehold(ctx, s.db, householdID)
}

// InsertMember persists a new member and fills in ID, version and timestamps.
// The member code is unique across the organization.
func (t *Tx) InsertMember(ctx context.Context, m *core.Member) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO members (household_id, code, first_name, last_name, grp, paid, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)",
		m.HouseholdID, m.Code, m.FirstName, m.LastName, m.Group, m.Paid, toUnixNano(now), toUnixNano(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateCode
		}
		return storeErr("insert member", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert member id", err)
	}
	m.ID = id
	m.Version = 1
	m.CreatedAt = now
	m.UpdatedAt = now
	return nil
}

// UpdateMemberPaid writes the paid flag under an optimistic version check.
func (t *Tx) UpdateMemberPaid(ctx context.Context, m *core.Member) error {
	now := time.Now().UTC()
	res, err := t.tx.ExecContext(ctx,
		"UPDATE members SET paid = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?",
		m.Paid, toUnixNano(now), m.ID, m.Version,
	)
	if err != nil {
		return storeErr("update member paid", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update member paid rows", err)
	}
	if n == 0 {
		return core.ErrConcurrencyConflict
	}
	m.Version++
	m.UpdatedAt = now
	return nil
}
