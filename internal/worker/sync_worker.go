// Package worker drains the entry sync queue into the configured export
// backend and sweeps up entries whose messages were lost.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pocketbudget/internal/amqp"
	"pocketbudget/internal/sheets"
	"pocketbudget/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.EntryWriter
	batchSize int
}

func NewSyncWorker(repo *storage.SQLiteRepository, writer sheets.EntryWriter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   repo,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one queued sync message. Returning an error
// nacks the message for redelivery; an entry deleted since publish is acked
// and dropped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "entry_id", msg.ID)

	entry, err := w.storage.GetEntry(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Entry deleted before sync, dropping message", "entry_id", msg.ID)
			return nil
		}
		return fmt.Errorf("get entry %s: %w", msg.ID, err)
	}

	return w.syncEntry(ctx, entry.ID)
}

// syncEntry appends the entry to the export backend and records the outcome.
func (w *SyncWorker) syncEntry(ctx context.Context, id string) error {
	entry, err := w.storage.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("get entry %s: %w", id, err)
	}

	rowRef, err := w.writer.Append(ctx, entry)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", id, "error", markErr)
		}
		return fmt.Errorf("append entry %s: %w", id, err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark entry as synced",
			"entry_id", id, "row_ref", rowRef, "error", err)
		// Don't return an error here, the export itself worked.
	}

	slog.InfoContext(ctx, "Entry synced", "entry_id", id, "row_ref", rowRef)
	return nil
}

// ProcessPendingEntries syncs one batch of entries still marked pending.
// Covers messages lost while the broker or worker was down.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending sync entries", "count", len(pending))

	var failed int
	for _, p := range pending {
		if err := w.syncEntry(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending entry", "entry_id", p.ID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pending entries failed to sync", failed, len(pending))
	}
	return nil
}

// StartupSyncCheck drains a larger backlog once at boot, before the periodic
// sweep takes over.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "Startup sync check: no pending entries")
		return nil
	}

	slog.InfoContext(ctx, "Startup sync check found pending entries", "count", len(pending))
	for _, p := range pending {
		if err := w.syncEntry(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Startup sync failed for entry", "entry_id", p.ID, "error", err)
		}
	}
	return nil
}
