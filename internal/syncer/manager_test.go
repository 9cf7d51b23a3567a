package syncer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/platelog/internal/dispatch"
	"github.com/roach88/platelog/internal/event"
	"github.com/roach88/platelog/internal/remote"
	"github.com/roach88/platelog/internal/store"
)

// fakeLog is an in-memory remote.Log.
type fakeLog struct {
	mu      sync.Mutex
	rows    [][]string
	appends [][][]string

	appendErr error
	fetchErr  error
}

func (f *fakeLog) AppendRows(ctx context.Context, logID, sheet string, rows [][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, rows)
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeLog) FetchRows(ctx context.Context, logID, sheet string, startRow int) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if startRow < 1 || startRow > len(f.rows) {
		return nil, nil
	}
	out := make([][]string, len(f.rows[startRow-1:]))
	copy(out, f.rows[startRow-1:])
	return out, nil
}

type fixture struct {
	manager    *Manager
	dispatcher *dispatch.Dispatcher
	store      *store.Store
	cursors    *CursorStore
	remote     *fakeLog
}

func newFixture(t *testing.T, logID string, opts ...Option) *fixture {
	t.Helper()
	s, err := store.Open(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	seq := 0
	d := dispatch.New(s,
		dispatch.WithClock(func() time.Time {
			return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
		}),
		dispatch.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("local-%03d", seq)
		}),
	)
	cs := OpenCursorStore(t.TempDir())
	fl := &fakeLog{}

	return &fixture{
		manager:    New(d, s, fl, cs, logID, opts...),
		dispatcher: d,
		store:      s,
		cursors:    cs,
		remote:     fl,
	}
}

func confirmRow(eventID, ts, entryID string) []string {
	payload := fmt.Sprintf(`{"entry":{"id":%q,"date":"2024-03-15","description":"Toast","calories":200}}`, entryID)
	return []string{eventID, ts, "log/entryConfirmed", payload}
}

func appendLocal(t *testing.T, f *fixture, eventID, ts, entryID string) {
	t.Helper()
	err := f.store.Append(context.Background(), event.Event{
		ID:        eventID,
		Kind:      event.KindEntryConfirmed,
		Timestamp: ts,
		Payload: event.EntryConfirmed{Entry: event.LogEntry{
			ID: entryID, Date: "2024-03-15", Description: "Toast", Calories: 200,
		}},
	})
	require.NoError(t, err)
}

func TestSync_PushesPendingInTimestampOrder(t *testing.T) {
	f := newFixture(t, "sheet-a")
	ctx := context.Background()

	// Inserted out of order.
	appendLocal(t, f, "evt-late", "2024-03-15T11:00:00Z", "e2")
	appendLocal(t, f, "evt-early", "2024-03-15T09:00:00Z", "e1")

	f.manager.Sync(ctx)
	assert.Empty(t, f.manager.SyncError())

	require.Len(t, f.remote.appends, 1)
	batch := f.remote.appends[0]
	require.Len(t, batch, 2)
	assert.Equal(t, "evt-early", batch[0][0])
	assert.Equal(t, "evt-late", batch[1][0])

	pending, err := f.store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "pushed events are marked synced")
}

func TestSync_NoRemoteLogConfigured(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	appendLocal(t, f, "evt-1", "2024-03-15T09:00:00Z", "e1")
	f.manager.Sync(ctx)

	assert.Empty(t, f.manager.SyncError())
	assert.Empty(t, f.remote.appends, "no push without a remote log")

	pending, err := f.store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "pending work survives until a log is configured")
}

func TestSync_PullsFromRowOne(t *testing.T) {
	f := newFixture(t, "sheet-a")
	f.remote.rows = [][]string{
		confirmRow("r1", "2024-03-15T09:00:00Z", "e1"),
		confirmRow("r2", "2024-03-15T10:00:00Z", "e2"),
	}

	f.manager.Sync(context.Background())
	assert.Empty(t, f.manager.SyncError())

	state := f.dispatcher.State()
	assert.Len(t, state.Log, 2)

	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 2, LastSyncedEventID: "r2"}, cur)
}

func TestSync_OwnEventsComeBackDeduplicated(t *testing.T) {
	f := newFixture(t, "sheet-a")
	ctx := context.Background()

	_, err := f.dispatcher.Dispatch(ctx, event.KindEntryConfirmed,
		event.EntryConfirmed{Entry: event.LogEntry{
			ID: "e1", Date: "2024-03-15", Description: "Toast", Calories: 200,
		}})
	require.NoError(t, err)

	// First cycle pushes, then pulls its own row back.
	f.manager.Sync(ctx)
	assert.Empty(t, f.manager.SyncError())

	records, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1, "own event must not duplicate on pull")
	assert.Equal(t, store.StatusSynced, records[0].Status)
	assert.Len(t, f.dispatcher.State().Log, 1)

	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 1, LastSyncedEventID: "local-001"}, cur)

	// Second cycle: only the overlap row comes back, nothing changes.
	f.manager.Sync(ctx)
	assert.Empty(t, f.manager.SyncError())
	cur, err = f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 1, LastSyncedEventID: "local-001"}, cur)
}

func TestSync_OverlapMismatchResetsCursor(t *testing.T) {
	f := newFixture(t, "sheet-a")
	require.NoError(t, f.cursors.Set("sheet-a", Cursor{LastSyncedRow: 1, LastSyncedEventID: "expected-id"}))
	f.remote.rows = [][]string{
		confirmRow("different-id", "2024-03-15T09:00:00Z", "e1"),
		confirmRow("r2", "2024-03-15T10:00:00Z", "e2"),
	}

	f.manager.Sync(context.Background())
	assert.Empty(t, f.manager.SyncError(), "a reset is self-healing, not an error")

	// Nothing ingested this cycle; the cursor is zeroed for a full re-pull.
	assert.Empty(t, f.dispatcher.State().Log)
	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, cur)

	// The next cycle re-pulls everything from row 1.
	f.manager.Sync(context.Background())
	assert.Len(t, f.dispatcher.State().Log, 2)
}

func TestSync_TruncatedRemoteResetsCursor(t *testing.T) {
	f := newFixture(t, "sheet-a")
	require.NoError(t, f.cursors.Set("sheet-a", Cursor{LastSyncedRow: 5, LastSyncedEventID: "r5"}))
	// Remote log is empty: the overlap row we expected is gone.

	f.manager.Sync(context.Background())
	assert.Empty(t, f.manager.SyncError())

	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, cur)
}

func TestSync_MalformedRowsSkippedButCounted(t *testing.T) {
	f := newFixture(t, "sheet-a")
	f.remote.rows = [][]string{
		confirmRow("r1", "2024-03-15T09:00:00Z", "e1"),
		// Shape-invalid payload for its kind: entry has no id.
		{"r2", "2024-03-15T09:30:00Z", "log/entryConfirmed", `{"entry":{"calories":100}}`},
		// Blank row.
		{"", "", ""},
		confirmRow("r4", "2024-03-15T10:00:00Z", "e4"),
	}

	f.manager.Sync(context.Background())
	assert.Empty(t, f.manager.SyncError())

	state := f.dispatcher.State()
	assert.Len(t, state.Log, 2)
	_, ok := state.Entry("e1")
	assert.True(t, ok)
	_, ok = state.Entry("e4")
	assert.True(t, ok)

	// Skipped rows still occupy remote rows: the cursor covers all four.
	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 4, LastSyncedEventID: "r4"}, cur)
}

func TestSync_BadRequestResetsCursorAndSurfaces(t *testing.T) {
	f := newFixture(t, "sheet-a")
	require.NoError(t, f.cursors.Set("sheet-a", Cursor{LastSyncedRow: 3, LastSyncedEventID: "r3"}))
	f.remote.fetchErr = &remote.Error{Status: 400, Message: "Unable to parse range: Events!A3:D"}

	f.manager.Sync(context.Background())

	assert.Contains(t, f.manager.SyncError(), "Unable to parse range")
	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, cur, "400 invalidates the cursor for a self-healing re-pull")
}

func TestSync_AuthFailureMessage(t *testing.T) {
	f := newFixture(t, "sheet-a")
	ctx := context.Background()

	appendLocal(t, f, "evt-1", "2024-03-15T09:00:00Z", "e1")
	require.NoError(t, f.cursors.Set("sheet-a", Cursor{LastSyncedRow: 2, LastSyncedEventID: "r2"}))
	f.remote.appendErr = &remote.Error{Status: 401, Message: "UNAUTHENTICATED"}

	f.manager.Sync(ctx)

	assert.Equal(t, "Authentication failed. Please sign in again.", f.manager.SyncError())

	// Auth failures leave both the pending events and the cursor alone.
	pending, err := f.store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	cur, err := f.cursors.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 2, LastSyncedEventID: "r2"}, cur)
}

func TestSync_ErrorClearsOnNextSuccess(t *testing.T) {
	f := newFixture(t, "sheet-a")
	f.remote.fetchErr = &remote.Error{Status: 500, Message: "backend error"}

	f.manager.Sync(context.Background())
	assert.Contains(t, f.manager.SyncError(), "backend error")
	assert.False(t, f.manager.Syncing(), "syncing flag released after failure")

	f.remote.fetchErr = nil
	f.manager.Sync(context.Background())
	assert.Empty(t, f.manager.SyncError())
}

func TestSync_OfflineSkips(t *testing.T) {
	f := newFixture(t, "sheet-a", WithOnlineCheck(func() bool { return false }))
	ctx := context.Background()

	appendLocal(t, f, "evt-1", "2024-03-15T09:00:00Z", "e1")
	f.manager.Sync(ctx)

	assert.Empty(t, f.manager.SyncError(), "offline is a status, not an error")
	assert.Empty(t, f.remote.appends)

	pending, err := f.store.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestHardResync_PreservesPendingAndRepulls(t *testing.T) {
	f := newFixture(t, "sheet-a")
	ctx := context.Background()

	// One synced event that also exists remotely, one local pending one.
	f.remote.rows = [][]string{confirmRow("r1", "2024-03-15T09:00:00Z", "e-remote")}
	require.NoError(t, f.dispatcher.IngestSynced(ctx, event.Event{
		ID:        "r1",
		Kind:      event.KindEntryConfirmed,
		Timestamp: "2024-03-15T09:00:00Z",
		Payload: event.EntryConfirmed{Entry: event.LogEntry{
			ID: "e-remote", Date: "2024-03-15", Description: "Toast", Calories: 200,
		}},
	}))
	require.NoError(t, f.cursors.Set("sheet-a", Cursor{LastSyncedRow: 1, LastSyncedEventID: "r1"}))

	appendLocal(t, f, "evt-pending", "2024-03-15T11:00:00Z", "e-local")

	require.NoError(t, f.manager.HardResync(ctx))
	assert.Empty(t, f.manager.SyncError())

	// The pending event was pushed, the purged remote one re-pulled.
	records, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	state := f.dispatcher.State()
	_, ok := state.Entry("e-remote")
	assert.True(t, ok)
	_, ok = state.Entry("e-local")
	assert.True(t, ok)

	pending, err := f.store.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCursor_EmptyLogID(t *testing.T) {
	f := newFixture(t, "")
	cur, err := f.manager.Cursor()
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, cur)
}
