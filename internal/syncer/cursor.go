package syncer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

const (
	cursorPrefix = "syncPointer"

	// Pre-scoping key names, migrated on first read.
	legacyRowKey   = "lastSyncedRow"
	legacyEventKey = "lastSyncedEventId"
)

// Cursor marks how far local and remote logs have been reconciled.
// LastSyncedRow is a 1-based row index: rows 1..LastSyncedRow have all
// been ingested or pushed. LastSyncedEventID is the event in that row,
// kept for overlap verification.
type Cursor struct {
	LastSyncedRow     int
	LastSyncedEventID string
}

// CursorStore persists sync cursors as flat key-value files, scoped by
// remote-log identity so switching logs never cross-contaminates
// cursors.
type CursorStore struct {
	d *diskv.Diskv
}

// OpenCursorStore opens (creating if needed) the cursor store under dir.
func OpenCursorStore(dir string) *CursorStore {
	return &CursorStore{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}
}

func scopedKey(logID, field string) string {
	// Colons in logID would splice into the key scheme; flatten them.
	safe := strings.ReplaceAll(logID, ":", "_")
	return fmt.Sprintf("%s:%s:%s", cursorPrefix, safe, field)
}

// Get loads the cursor for a remote log. A legacy unscoped cursor, if
// present, is migrated into the scoped form and cleared. A log with no
// cursor yields the zero cursor.
func (c *CursorStore) Get(logID string) (Cursor, error) {
	rowKey := scopedKey(logID, "row")
	eventKey := scopedKey(logID, "eventId")

	if c.d.Has(rowKey) || c.d.Has(eventKey) {
		return Cursor{
			LastSyncedRow:     c.readInt(rowKey),
			LastSyncedEventID: c.readString(eventKey),
		}, nil
	}

	if c.d.Has(legacyRowKey) || c.d.Has(legacyEventKey) {
		cur := Cursor{
			LastSyncedRow:     c.readInt(legacyRowKey),
			LastSyncedEventID: c.readString(legacyEventKey),
		}
		if err := c.Set(logID, cur); err != nil {
			return Cursor{}, fmt.Errorf("migrate legacy cursor: %w", err)
		}
		c.clearLegacy()
		return cur, nil
	}

	return Cursor{}, nil
}

// Set persists the cursor for a remote log.
func (c *CursorStore) Set(logID string, cur Cursor) error {
	if err := c.d.Write(scopedKey(logID, "row"), []byte(strconv.Itoa(cur.LastSyncedRow))); err != nil {
		return fmt.Errorf("write cursor row: %w", err)
	}

	eventKey := scopedKey(logID, "eventId")
	if cur.LastSyncedEventID != "" {
		if err := c.d.Write(eventKey, []byte(cur.LastSyncedEventID)); err != nil {
			return fmt.Errorf("write cursor event id: %w", err)
		}
		return nil
	}
	if c.d.Has(eventKey) {
		if err := c.d.Erase(eventKey); err != nil {
			return fmt.Errorf("erase cursor event id: %w", err)
		}
	}
	return nil
}

// Clear resets the cursor for a remote log to zero; the next sync
// restarts from row 1, a full re-pull.
func (c *CursorStore) Clear(logID string) error {
	return c.Set(logID, Cursor{})
}

func (c *CursorStore) clearLegacy() {
	_ = c.d.Write(legacyRowKey, []byte("0"))
	if c.d.Has(legacyEventKey) {
		_ = c.d.Erase(legacyEventKey)
	}
}

func (c *CursorStore) readInt(key string) int {
	data, err := c.d.Read(key)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (c *CursorStore) readString(key string) string {
	data, err := c.d.Read(key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
