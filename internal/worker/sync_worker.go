package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"caffeine/internal/amqp"
	"caffeine/internal/core"
	"caffeine/internal/sheets"
	"caffeine/internal/storage"
)

// EntrySource is the slice of the SQLite repository the worker needs.
type EntrySource interface {
	GetEntry(ctx context.Context, id int64) (*storage.EntryRecord, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker mirrors entries from SQLite into the spreadsheet journal.
type SyncWorker struct {
	store   EntrySource
	journal sheets.Journal
}

func NewSyncWorker(store EntrySource, journal sheets.Journal) *SyncWorker {
	return &SyncWorker{store: store, journal: journal}
}

// Handle dispatches a message by type. It has the amqp.Handler signature.
func (w *SyncWorker) Handle(ctx context.Context, msg *amqp.EntryMessage) error {
	switch msg.Type {
	case amqp.MessageSync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.MessageDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown type %q", amqp.ErrInvalidMessage, msg.Type)
	}
}

// HandleSyncMessage appends the entry to the journal and marks it synced.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntryMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID, "principal", msg.Principal)

	rec, err := w.store.GetEntry(ctx, msg.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// Deleted before the worker got to it; the delete message covers the journal.
		slog.InfoContext(ctx, "Entry no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}
	if rec.Synced {
		slog.InfoContext(ctx, "Entry already synced", "id", msg.ID)
		return nil
	}

	if err := w.journal.AppendEntry(ctx, sheets.RowFromEntry(rec.Principal, rec.Entry)); err != nil {
		if markErr := w.store.MarkSyncError(ctx, msg.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", msg.ID, "error", markErr)
		}
		return fmt.Errorf("append to journal: %w", err)
	}

	if err := w.store.MarkSynced(ctx, msg.ID); err != nil {
		// The row is in the journal; a later sweep re-appends idempotently.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", msg.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced entry",
		"id", msg.ID,
		"drink", rec.Entry.DrinkName,
		"amount_mg", rec.Entry.AmountMg)
	return nil
}

// HandleDeleteMessage removes the entry's row from the journal.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.EntryMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID, "principal", msg.Principal)

	if err := w.journal.DeleteEntry(ctx, msg.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete entry from journal",
			"id", msg.ID,
			"error", err,
			"timestamp", msg.Timestamp)
		return fmt.Errorf("delete entry from journal: %w", err)
	}

	slog.InfoContext(ctx, "Successfully deleted entry from journal",
		"id", msg.ID,
		"drink", msg.DrinkName,
		"consumed_at", core.FromMillis(msg.ConsumptionTimeMs))
	return nil
}
