package storage

import (
	"context"
	"database/sql"
	"time"

	"quote/internal/core"
)

// InsertAuditEntry appends one immutable audit record. There is no update or
// delete counterpart anywhere in this package: the trail only grows.
func (t *Tx) InsertAuditEntry(ctx context.Context, e *core.AuditEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO audit_entries (entity, entity_id, op, prior, next, principal, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.Entity, e.EntityID, e.Op, nullBytes(e.Prior), nullBytes(e.Next), e.Principal, toUnixNano(e.RecordedAt),
	)
	if err != nil {
		return storeErr("insert audit entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert audit entry id", err)
	}
	e.ID = id
	return nil
}

func nullBytes(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

// ListAuditTrail returns audit entries for one entity, oldest first,
// starting after the given sequence cursor. Pass after=0 for the first page.
func (s *Store) ListAuditTrail(ctx context.Context, entity string, entityID int64, after int64, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, entity, entity_id, op, prior, next, principal, recorded_at FROM audit_entries WHERE entity = ? AND entity_id = ? AND id > ? ORDER BY id LIMIT ?",
		entity, entityID, after, limit)
	if err != nil {
		return nil, storeErr("list audit trail", err)
	}
	defer rows.Close()

	var entries []core.AuditEntry
	for rows.Next() {
		var e core.AuditEntry
		var prior, next sql.NullString
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Op, &prior, &next, &e.Principal, &recordedAt); err != nil {
			return nil, storeErr("scan audit entry", err)
		}
		if prior.Valid {
			e.Prior = []byte(prior.String)
		}
		if next.Valid {
			e.Next = []byte(next.String)
		}
		e.RecordedAt = fromUnixNano(recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate audit trail", err)
	}
	return entries, nil
}

// CountAuditEntries reports how many entries exist for an entity. Used by
// tests and the operator CLI.
func (s *Store) CountAuditEntries(ctx context.Context, entity string, entityID int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_entries WHERE entity = ? AND entity_id = ?", entity, entityID).Scan(&n)
	if err != nil {
		return 0, storeErr("count audit entries", err)
	}
	return n, nil
}
