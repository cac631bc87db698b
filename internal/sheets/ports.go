// Package sheets defines the outbound export ports the worker writes ledger
// entries through.
package sheets

import (
	"context"

	"pocketbudget/internal/core"
)

// Ports for outbound adapters.
type (
	EntryWriter interface {
		Append(ctx context.Context, e core.LedgerEntry) (rowRef string, err error)
	}

	// EntryLister returns the exported entries for a given month.
	EntryLister interface {
		ListEntries(ctx context.Context, month core.Month) ([]core.LedgerEntry, error)
	}
)
