package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/platelog/internal/event"
)

// Status is the local sync state of a stored event.
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// Record is an event plus its local-only sync bookkeeping. The event
// itself is immutable; only Status and SyncedAt ever change.
type Record struct {
	Event    event.Event
	Status   Status
	SyncedAt time.Time // zero if never synced
}

// ListPending returns all pending records. Order is unspecified; the
// sync manager sorts by timestamp before pushing.
func (s *Store) ListPending(ctx context.Context) ([]Record, error) {
	return s.list(ctx, `
		SELECT event_id, timestamp, kind, payload, sync_status, synced_at
		FROM events
		WHERE sync_status = 'pending'
	`)
}

// ListAll returns every record ordered by timestamp ascending, for full
// rehydration. Ties break on event_id with binary collation so replay
// order is deterministic.
func (s *Store) ListAll(ctx context.Context) ([]Record, error) {
	return s.list(ctx, `
		SELECT event_id, timestamp, kind, payload, sync_status, synced_at
		FROM events
		ORDER BY timestamp ASC, event_id COLLATE BINARY ASC
	`)
}

// Has reports whether a record with the given event ID exists.
func (s *Store) Has(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE event_id = ?
	`, eventID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return count > 0, nil
}

func (s *Store) list(ctx context.Context, query string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	// Return empty slice instead of nil
	if records == nil {
		records = []Record{}
	}

	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec         Record
		kind        string
		payloadJSON string
		status      string
		syncedAt    sql.NullString
	)

	if err := rows.Scan(
		&rec.Event.ID, &rec.Event.Timestamp, &kind, &payloadJSON,
		&status, &syncedAt,
	); err != nil {
		return Record{}, fmt.Errorf("scan event: %w", err)
	}

	rec.Event.Kind = event.Kind(kind)
	rec.Status = Status(status)

	payload, err := event.DecodePayload(rec.Event.Kind, []byte(payloadJSON))
	if err != nil {
		return Record{}, fmt.Errorf("scan event %s: %w", rec.Event.ID, err)
	}
	rec.Event.Payload = payload

	if syncedAt.Valid && syncedAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, syncedAt.String); err == nil {
			rec.SyncedAt = t
		}
	}

	return rec, nil
}
