package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/platelog/internal/event"
)

// Append inserts an event as pending.
//
// A duplicate event ID overwrites the existing record and resets it to
// pending - dispatch retries are upserts, never errors. Storage failures
// propagate to the caller; the store does not retry internally.
func (s *Store) Append(ctx context.Context, e event.Event) error {
	payload, err := event.EncodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(event_id, timestamp, kind, payload, sync_status, synced_at)
		VALUES (?, ?, ?, ?, 'pending', NULL)
		ON CONFLICT(event_id) DO UPDATE SET
			timestamp = excluded.timestamp,
			kind = excluded.kind,
			payload = excluded.payload,
			sync_status = 'pending',
			synced_at = NULL
	`,
		e.ID,
		e.Timestamp,
		string(e.Kind),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// IngestRemote inserts an event pulled from the remote log, already
// synced.
//
// Uses ON CONFLICT DO NOTHING: if any record with this event ID exists -
// including a still-pending local one - the ingest is a no-op. This is
// first-writer-wins, protecting local pending work from being downgraded
// or duplicated by an overlapping remote read.
func (s *Store) IngestRemote(ctx context.Context, e event.Event) error {
	payload, err := event.EncodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("ingest remote event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(event_id, timestamp, kind, payload, sync_status, synced_at)
		VALUES (?, ?, ?, ?, 'synced', ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		e.ID,
		e.Timestamp,
		string(e.Kind),
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ingest remote event: %w", err)
	}

	return nil
}

// MarkSynced transitions the listed events to synced, stamping synced_at.
// IDs not present in the store are silently skipped.
func (s *Store) MarkSynced(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mark synced: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	syncedAt := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range eventIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE events
			SET sync_status = 'synced', synced_at = ?
			WHERE event_id = ?
		`, syncedAt, id); err != nil {
			return fmt.Errorf("mark synced: update %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mark synced: commit: %w", err)
	}

	return nil
}

// PurgeSynced deletes every synced record and returns how many were
// removed. Pending records are never touched - this is the safety
// invariant behind hard resync: local work that has not reached the
// remote log survives any reset.
func (s *Store) PurgeSynced(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM events WHERE sync_status = 'synced'
	`)
	if err != nil {
		return 0, fmt.Errorf("purge synced: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge synced: rows affected: %w", err)
	}
	return n, nil
}
