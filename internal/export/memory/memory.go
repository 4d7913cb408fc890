// Package memory provides an in-memory row sink for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"splitledger/internal/export"
)

type Store struct {
	mu   sync.Mutex
	rows []export.Row
}

func New() *Store {
	return &Store{}
}

var _ export.RowWriter = (*Store)(nil)

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a snapshot of everything appended so far.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}
