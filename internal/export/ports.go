// Package export defines the outbound port for streaming ledger activity
// to external sinks.
package export

import (
	"context"
	"time"

	"splitledger/internal/core"
)

// Row is one ledger event flattened for an append-only sink.
type Row struct {
	Timestamp time.Time
	Kind      string
	GroupID   int64
	ExpenseID int64
	UserID    int64
	Title     string
	Amount    core.Money
}

// RowWriter appends a row and returns a sink-specific reference to it.
type RowWriter interface {
	Append(ctx context.Context, row Row) (rowRef string, err error)
}
