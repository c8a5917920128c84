package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quote/internal/core"
	"quote/internal/metrics"
	"quote/internal/storage"
)

// Mutation describes one row change for the audit trail. Prior is nil on
// inserts, Next is nil on deletes, both are set on updates.
type Mutation struct {
	Entity   string
	EntityID int64
	Op       core.AuditOp
	Prior    any
	Next     any
}

// withAudit executes mutate and appends the audit entry describing its
// outcome inside the same atomic unit: either the row change and its entry
// both commit, or neither does.
func withAudit(ctx context.Context, tx *storage.Tx, principal string, when time.Time, mutate func() (Mutation, error)) error {
	m, err := mutate()
	if err != nil {
		return err
	}
	entry, err := newAuditEntry(m, principal, when)
	if err != nil {
		return err
	}
	if err := tx.InsertAuditEntry(ctx, entry); err != nil {
		return err
	}
	metrics.AuditEntries.WithLabelValues(m.Entity).Inc()
	return nil
}

func newAuditEntry(m Mutation, principal string, when time.Time) (*core.AuditEntry, error) {
	entry := &core.AuditEntry{
		Entity:     m.Entity,
		EntityID:   m.EntityID,
		Op:         m.Op,
		Principal:  principal,
		RecordedAt: when,
	}
	if m.Prior != nil {
		b, err := json.Marshal(m.Prior)
		if err != nil {
			return nil, fmt.Errorf("marshal prior snapshot: %w", err)
		}
		entry.Prior = b
	}
	if m.Next != nil {
		b, err := json.Marshal(m.Next)
		if err != nil {
			return nil, fmt.Errorf("marshal next snapshot: %w", err)
		}
		entry.Next = b
	}
	return entry, nil
}

func inserted(entity string, id int64, next any) Mutation {
	return Mutation{Entity: entity, EntityID: id, Op: core.OpInsert, Next: next}
}

func updated(entity string, id int64, prior, next any) Mutation {
	return Mutation{Entity: entity, EntityID: id, Op: core.OpUpdate, Prior: prior, Next: next}
}

func deleted(entity string, id int64, prior any) Mutation {
	return Mutation{Entity: entity, EntityID: id, Op: core.OpDelete, Prior: prior}
}
