package worker

import (
	"context"
	"fmt"
	"log/slog"

	"expensekeeper/internal/amqp"
	"expensekeeper/internal/core"
	"expensekeeper/internal/storage"
)

// SheetWriter replaces the mirrored rows.
type SheetWriter interface {
	Replace(ctx context.Context, expenses []core.Expense) (string, error)
}

// SheetsSync keeps a spreadsheet in step with the store. Every expense change
// message rewrites the whole sheet, so a lost message is repaired by the next
// one or by the startup sync.
type SheetsSync struct {
	store storage.ExpenseStore
	sheet SheetWriter
}

func NewSheetsSync(store storage.ExpenseStore, sheet SheetWriter) *SheetsSync {
	return &SheetsSync{store: store, sheet: sheet}
}

// HandleMessage is an amqp consumer handler; a returned error requeues the message.
func (w *SheetsSync) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	if !msg.IsExpenseChange() {
		return nil
	}
	slog.InfoContext(ctx, "Processing expense change",
		"id", msg.ID,
		"type", msg.Type,
		"expense_id", msg.ExpenseID,
		"source", msg.Source)
	return w.Sync(ctx)
}

// Sync writes every stored expense to the sheet.
func (w *SheetsSync) Sync(ctx context.Context) error {
	expenses, err := w.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}
	ref, err := w.sheet.Replace(ctx, expenses)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to sync spreadsheet", "count", len(expenses), "error", err)
		return fmt.Errorf("replace sheet: %w", err)
	}
	slog.InfoContext(ctx, "Spreadsheet synced", "count", len(expenses), "range", ref)
	return nil
}
