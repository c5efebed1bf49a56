// Package memory is an in-process ledger mirror, used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"committee/internal/core"
	ports "committee/internal/sheets"
)

type (
	Row struct {
		Ref         string
		Transaction core.Transaction
	}

	Store struct {
		mu   sync.Mutex
		rows []Row
		refs map[string]int
	}
)

var _ ports.LedgerAppender = (*Store)(nil)

func New() *Store {
	return &Store{refs: make(map[string]int)}
}

// AppendTransaction stores the row and returns a synthetic row reference. A
// ref seen before returns the original row without appending.
func (s *Store) AppendTransaction(_ context.Context, ref string, txn core.Transaction) (string, error) {
	if err := txn.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.refs[ref]; ok && ref != "" {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, Row{Ref: ref, Transaction: txn})
	s.refs[ref] = len(s.rows) - 1
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
