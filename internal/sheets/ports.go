// Package sheets defines the outbound port for the treasurer spreadsheet
// export. The Google adapter implements it for production; the memory
// adapter backs tests.
package sheets

import (
	"context"

	"quote/internal/storage"
)

// TransactionWriter appends one exported ledger row and returns a reference
// to where it landed (sheet row, or a synthetic ref for test doubles).
type TransactionWriter interface {
	Append(ctx context.Context, row storage.ExportRow) (rowRef string, err error)
}
