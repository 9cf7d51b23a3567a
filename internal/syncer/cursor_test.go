package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorStore_GetSetClear(t *testing.T) {
	cs := OpenCursorStore(t.TempDir())

	cur, err := cs.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, cur, "unknown log yields zero cursor")

	want := Cursor{LastSyncedRow: 42, LastSyncedEventID: "evt-42"}
	require.NoError(t, cs.Set("sheet-a", want))

	cur, err = cs.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, want, cur)

	require.NoError(t, cs.Clear("sheet-a"))
	cur, err = cs.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, cur)
}

func TestCursorStore_ScopedPerLog(t *testing.T) {
	cs := OpenCursorStore(t.TempDir())

	require.NoError(t, cs.Set("sheet-a", Cursor{LastSyncedRow: 10, LastSyncedEventID: "a-10"}))
	require.NoError(t, cs.Set("sheet-b", Cursor{LastSyncedRow: 3, LastSyncedEventID: "b-3"}))

	a, err := cs.Get("sheet-a")
	require.NoError(t, err)
	b, err := cs.Get("sheet-b")
	require.NoError(t, err)

	assert.Equal(t, 10, a.LastSyncedRow)
	assert.Equal(t, 3, b.LastSyncedRow)
	assert.NotEqual(t, a.LastSyncedEventID, b.LastSyncedEventID)
}

func TestCursorStore_ColonsInLogIDDoNotCollide(t *testing.T) {
	cs := OpenCursorStore(t.TempDir())

	// "a:b" flattens to "a_b"; both IDs map to the same scoped key, so
	// the last write wins rather than corrupting the key scheme.
	require.NoError(t, cs.Set("a:b", Cursor{LastSyncedRow: 1}))
	require.NoError(t, cs.Set("a_b", Cursor{LastSyncedRow: 2}))

	cur, err := cs.Get("a:b")
	require.NoError(t, err)
	assert.Equal(t, 2, cur.LastSyncedRow)
}

func TestCursorStore_MigratesLegacyUnscopedCursor(t *testing.T) {
	dir := t.TempDir()
	cs := OpenCursorStore(dir)

	// Seed pre-scoping keys the way an old installation left them.
	require.NoError(t, cs.d.Write("lastSyncedRow", []byte("17")))
	require.NoError(t, cs.d.Write("lastSyncedEventId", []byte("evt-17")))

	cur, err := cs.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 17, LastSyncedEventID: "evt-17"}, cur)

	// Migration persisted the scoped form.
	reopened := OpenCursorStore(dir)
	cur, err = reopened.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, Cursor{LastSyncedRow: 17, LastSyncedEventID: "evt-17"}, cur)

	// The legacy event key is gone; a different log does not inherit it.
	other, err := reopened.Get("sheet-b")
	require.NoError(t, err)
	assert.Equal(t, "", other.LastSyncedEventID)
	assert.Equal(t, 0, other.LastSyncedRow)
}

func TestCursorStore_GarbageValuesReadAsZero(t *testing.T) {
	cs := OpenCursorStore(t.TempDir())

	require.NoError(t, cs.d.Write(scopedKey("sheet-a", "row"), []byte("not a number")))
	require.NoError(t, cs.d.Write(scopedKey("sheet-a", "eventId"), []byte("  evt-1\n")))

	cur, err := cs.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, 0, cur.LastSyncedRow)
	assert.Equal(t, "evt-1", cur.LastSyncedEventID, "values are trimmed")
}

func TestCursorStore_NegativeRowReadsAsZero(t *testing.T) {
	cs := OpenCursorStore(t.TempDir())
	require.NoError(t, cs.d.Write(scopedKey("sheet-a", "row"), []byte("-5")))

	cur, err := cs.Get("sheet-a")
	require.NoError(t, err)
	assert.Equal(t, 0, cur.LastSyncedRow)
}
