// Package memory is an in-memory TransactionWriter used by worker tests and
// local development without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "quote/internal/sheets"
	"quote/internal/storage"
)

type Writer struct {
	mu   sync.Mutex
	rows []storage.ExportRow

	// FailOn makes Append return an error for the given transaction IDs.
	FailOn map[int64]error
}

var _ ports.TransactionWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

// Append stores the row and returns a synthetic row reference.
func (w *Writer) Append(_ context.Context, row storage.ExportRow) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.FailOn[row.TransactionID]; ok {
		return "", err
	}
	w.rows = append(w.rows, row)
	return fmt.Sprintf("mem:%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []storage.ExportRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]storage.ExportRow(nil), w.rows...)
}
