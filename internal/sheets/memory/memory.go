// Package memory is the in-process export target used in development and
// tests when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"pocketbudget/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.LedgerEntry
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.LedgerEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ListEntries returns stored entries dated in the month.
func (s *Store) ListEntries(_ context.Context, month core.Month) ([]core.LedgerEntry, error) {
	if err := month.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerEntry
	for _, e := range s.items {
		if month.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}
