// Package syncer reconciles the local event store with the remote
// append-only log.
//
// A sync cycle has two phases. Outbound: push all pending local events as
// rows, in timestamp order, then mark them synced. Inbound: pull rows
// since the persisted cursor, re-fetching the last synced row itself as
// an overlap-verification row - if the remote log was truncated or reset
// underneath the cursor, the overlap row's event ID will not match and
// the cursor resets to zero for a full re-pull next cycle.
//
// Sync never throws out of its public call: failures are classified into
// a user-facing message (SyncError) and the idle state is always
// restored, so a later trigger can retry.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/platelog/internal/dispatch"
	"github.com/roach88/platelog/internal/event"
	"github.com/roach88/platelog/internal/remote"
	"github.com/roach88/platelog/internal/store"
)

// Sheet is the default name of the remote events sheet.
const Sheet = "Events"

// Manager drives bidirectional sync. At most one cycle is in flight at a
// time; re-entrant Sync calls while syncing are dropped.
type Manager struct {
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	remote     remote.Log
	cursors    *CursorStore
	logID      string
	sheet      string

	online func() bool
	logger *slog.Logger

	mu      sync.Mutex
	syncing bool
	syncErr string
}

// Option configures a Manager.
type Option func(*Manager)

// WithOnlineCheck substitutes offline detection. When the check reports
// offline, a sync cycle is skipped entirely - surfaced as a status, not
// an error.
func WithOnlineCheck(online func() bool) Option {
	return func(m *Manager) {
		m.online = online
	}
}

// WithLogger substitutes the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSheet overrides the remote sheet name.
func WithSheet(sheet string) Option {
	return func(m *Manager) {
		m.sheet = sheet
	}
}

// New creates a Manager for one remote-log identity. An empty logID
// means no remote log is configured yet: outbound pushes and inbound
// pulls are both skipped until one is set.
func New(d *dispatch.Dispatcher, s *store.Store, r remote.Log, cursors *CursorStore, logID string, opts ...Option) *Manager {
	m := &Manager{
		dispatcher: d,
		store:      s,
		remote:     r,
		cursors:    cursors,
		logID:      logID,
		sheet:      Sheet,
		online:     func() bool { return true },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Syncing reports whether a cycle is currently in flight.
func (m *Manager) Syncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}

// SyncError returns the classified message from the last failed cycle,
// or "" if the last cycle succeeded or was skipped.
func (m *Manager) SyncError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncErr
}

// Cursor returns the persisted cursor for this manager's remote log.
func (m *Manager) Cursor() (Cursor, error) {
	if m.logID == "" {
		return Cursor{}, nil
	}
	return m.cursors.Get(m.logID)
}

// Sync runs one reconciliation cycle. Dropped if a cycle is already in
// flight or the client is offline. Never returns an error: failures land
// in SyncError and the syncing flag is always released.
func (m *Manager) Sync(ctx context.Context) {
	m.mu.Lock()
	if m.syncing {
		m.mu.Unlock()
		return
	}
	if !m.online() {
		m.mu.Unlock()
		return
	}
	m.syncing = true
	m.syncErr = ""
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.syncing = false
		m.mu.Unlock()
	}()

	if err := m.runCycle(ctx); err != nil {
		msg := m.classify(err)
		m.logger.Error("sync failed", "log", m.logID, "error", err)
		m.mu.Lock()
		m.syncErr = msg
		m.mu.Unlock()
	}
}

// runCycle executes outbound then inbound. Any outbound failure aborts
// the cycle before the inbound phase runs.
func (m *Manager) runCycle(ctx context.Context) error {
	if err := m.pushPending(ctx); err != nil {
		return err
	}
	return m.pullRemote(ctx)
}

// pushPending appends all pending local events to the remote log in one
// batch, in timestamp order, then marks them synced locally.
func (m *Manager) pushPending(ctx context.Context) error {
	pending, err := m.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("outbound: %w", err)
	}
	if len(pending) == 0 || m.logID == "" {
		return nil
	}

	// The remote log is row-ordered and readers assume append order
	// matches causal order, so the batch must be totally ordered.
	sort.Slice(pending, func(i, j int) bool {
		ti, tj := pending[i].Event.Time(), pending[j].Event.Time()
		if ti.Equal(tj) {
			return pending[i].Event.ID < pending[j].Event.ID
		}
		return ti.Before(tj)
	})

	rows := make([][]string, 0, len(pending))
	ids := make([]string, 0, len(pending))
	for _, rec := range pending {
		row, err := event.Row(rec.Event)
		if err != nil {
			return fmt.Errorf("outbound: encode %s: %w", rec.Event.ID, err)
		}
		rows = append(rows, row)
		ids = append(ids, rec.Event.ID)
	}

	if err := m.remote.AppendRows(ctx, m.logID, m.sheet, rows); err != nil {
		return fmt.Errorf("outbound: %w", err)
	}

	if err := m.store.MarkSynced(ctx, ids); err != nil {
		return fmt.Errorf("outbound: %w", err)
	}

	m.logger.Info("pushed pending events", "log", m.logID, "count", len(ids))
	return nil
}

// pullRemote fetches rows since the cursor, verifies the overlap row,
// ingests genuinely new events with deduplication, and advances the
// cursor.
func (m *Manager) pullRemote(ctx context.Context) error {
	if m.logID == "" {
		return nil
	}

	cur, err := m.cursors.Get(m.logID)
	if err != nil {
		return fmt.Errorf("inbound: %w", err)
	}

	startRow := 1
	if cur.LastSyncedRow > 0 {
		// Re-fetch the last synced row itself as the overlap row.
		startRow = cur.LastSyncedRow
	}

	rows, err := m.remote.FetchRows(ctx, m.logID, m.sheet, startRow)
	if err != nil {
		return fmt.Errorf("inbound: %w", err)
	}

	if len(rows) == 0 {
		if cur.LastSyncedRow > 0 {
			// We expected at least the overlap row back. The remote log
			// was truncated; restart from row 1 next cycle.
			m.logger.Warn("last synced row missing, resetting cursor",
				"log", m.logID, "row", cur.LastSyncedRow)
			return m.cursors.Clear(m.logID)
		}
		return nil
	}

	newRows := rows
	if cur.LastSyncedRow > 0 {
		overlapID := ""
		if len(rows[0]) > 0 {
			overlapID = rows[0][0]
		}
		if cur.LastSyncedEventID != "" && overlapID != cur.LastSyncedEventID {
			m.logger.Warn("overlap mismatch, resetting cursor",
				"log", m.logID,
				"expected", cur.LastSyncedEventID,
				"got", overlapID)
			return m.cursors.Clear(m.logID)
		}
		// Verification passed: discard the overlap row.
		newRows = rows[1:]
	}

	if len(newRows) == 0 {
		return nil
	}

	lastEventID := cur.LastSyncedEventID
	ingested := 0
	for _, row := range newRows {
		ev, err := event.ParseRow(row)
		if err != nil {
			if errors.Is(err, event.ErrBlankRow) {
				continue
			}
			return fmt.Errorf("inbound: %w", err)
		}
		lastEventID = ev.ID

		if m.dispatcher.Seen(ev.ID) {
			// Cross-device deduplication: our own pushed events come back
			// on the next pull.
			continue
		}

		if len(row) > 3 {
			if verr := event.ValidatePayload(ev.Kind, []byte(row[3])); verr != nil {
				m.logger.Warn("skipping malformed remote row",
					"event", ev.ID, "error", verr)
				continue
			}
		}

		if err := m.dispatcher.IngestSynced(ctx, ev); err != nil {
			return fmt.Errorf("inbound: ingest %s: %w", ev.ID, err)
		}
		ingested++
	}

	// The cursor advances by row count, including skipped rows - they
	// occupy remote rows regardless of whether we could use them.
	next := Cursor{
		LastSyncedRow:     cur.LastSyncedRow + len(newRows),
		LastSyncedEventID: lastEventID,
	}
	if err := m.cursors.Set(m.logID, next); err != nil {
		return fmt.Errorf("inbound: %w", err)
	}

	m.logger.Info("pulled remote events",
		"log", m.logID, "rows", len(newRows), "ingested", ingested)
	return nil
}

// HardResync is the explicit destructive recovery operation: reset the
// cursor, purge only synced local events (pending work survives),
// rebuild the projection from what remains, and run a fresh cycle that
// re-pulls the full remote log.
func (m *Manager) HardResync(ctx context.Context) error {
	m.logger.Warn("hard resync initiated", "log", m.logID)

	m.mu.Lock()
	m.syncErr = ""
	m.mu.Unlock()

	if m.logID != "" {
		if err := m.cursors.Clear(m.logID); err != nil {
			return fmt.Errorf("hard resync: %w", err)
		}
	}

	purged, err := m.store.PurgeSynced(ctx)
	if err != nil {
		return fmt.Errorf("hard resync: %w", err)
	}
	m.logger.Info("purged synced events", "count", purged)

	if err := m.dispatcher.Rehydrate(ctx); err != nil {
		return fmt.Errorf("hard resync: %w", err)
	}

	m.Sync(ctx)
	return nil
}

// classify turns a cycle failure into the user-facing message. A
// 400-class remote rejection invalidates the cursor: reset it so the
// next cycle self-heals via full re-pull, but still surface the error
// for one cycle so the user understands a resync occurred. 401/403 is an
// authentication failure and leaves the cursor alone.
func (m *Manager) classify(err error) string {
	rerr, ok := remote.AsError(err)
	if !ok {
		return err.Error()
	}

	switch rerr.Status {
	case 400:
		m.logger.Warn("remote rejected request, resetting cursor", "log", m.logID)
		if m.logID != "" {
			if cerr := m.cursors.Clear(m.logID); cerr != nil {
				m.logger.Error("cursor reset failed", "error", cerr)
			}
		}
		return rerr.Error()
	case 401, 403:
		return "Authentication failed. Please sign in again."
	default:
		return rerr.Error()
	}
}
