// Package worker drains the ledger event stream into an export sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"splitledger/internal/amqp"
	"splitledger/internal/core"
	"splitledger/internal/export"
	"splitledger/internal/storage"
)

// ExportWorker turns ledger events into rows on an export sink, enriching
// them with expense titles from storage when the expense still exists.
type ExportWorker struct {
	storage *storage.Repository
	sink    export.RowWriter
}

func NewExportWorker(storage *storage.Repository, sink export.RowWriter) *ExportWorker {
	return &ExportWorker{storage: storage, sink: sink}
}

// HandleEvent processes a single ledger event.
func (w *ExportWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"event_id", event.EventID,
		"kind", event.Kind,
		"group_id", event.GroupID,
		"expense_id", event.ExpenseID)

	row := export.Row{
		Timestamp: event.Timestamp,
		Kind:      event.Kind,
		GroupID:   event.GroupID,
		ExpenseID: event.ExpenseID,
		UserID:    event.UserID,
		Amount:    core.FromCents(event.AmountCents),
	}

	// Deleted expenses are gone from storage; everything else should
	// still resolve to a title.
	if event.Kind != amqp.EventExpenseDeleted {
		expense, err := w.storage.GetExpense(ctx, event.GroupID, event.ExpenseID)
		switch {
		case errors.Is(err, core.ErrExpenseNotFound):
			slog.WarnContext(ctx, "Expense missing during export, exporting without title",
				"event_id", event.EventID,
				"expense_id", event.ExpenseID)
		case err != nil:
			return fmt.Errorf("load expense for export: %w", err)
		default:
			row.Title = expense.Title
		}
	}

	ref, err := w.sink.Append(ctx, row)
	if err != nil {
		return fmt.Errorf("append export row: %w", err)
	}

	slog.InfoContext(ctx, "Exported ledger event",
		"event_id", event.EventID,
		"kind", event.Kind,
		"row_ref", ref)
	return nil
}

// Run consumes events from the queue until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, events *amqp.Client) error {
	return events.ConsumeEvents(ctx, w.HandleEvent)
}
