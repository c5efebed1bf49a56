package sheets

import (
	"context"

	"committee/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerAppender mirrors recorded transactions into an external ledger.
	// ref identifies the message the row came from and makes appends idempotent.
	LedgerAppender interface {
		AppendTransaction(ctx context.Context, ref string, txn core.Transaction) (rowRef string, err error)
	}
)
