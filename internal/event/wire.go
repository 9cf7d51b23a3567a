package event

import "errors"

// Remote rows are exactly 4 columns: eventId, timestamp, kind, payload
// JSON. The remote sheet enforces nothing, so parsing is lenient: a row
// is either usable, or blank/malformed and skipped individually.

// ErrBlankRow marks a row missing its event ID or kind. Such rows are
// tolerated and skipped, never fatal to a sync batch.
var ErrBlankRow = errors.New("blank or malformed row")

// Row serialises an event into its 4-column wire form.
func Row(e Event) ([]string, error) {
	payload, err := EncodePayload(e.Payload)
	if err != nil {
		return nil, err
	}
	return []string{e.ID, e.Timestamp, string(e.Kind), string(payload)}, nil
}

// ParseRow decodes a wire row back into an event.
//
// Rows missing the event ID or kind return ErrBlankRow. A payload that
// fails to decode degrades to an empty payload of the row's kind rather
// than failing the row: the event identity and ordering survive even when
// a writer mangled the payload cell.
func ParseRow(row []string) (Event, error) {
	if len(row) < 3 {
		return Event{}, ErrBlankRow
	}
	id, kind := row[0], Kind(row[2])
	if id == "" || kind == "" {
		return Event{}, ErrBlankRow
	}

	timestamp := row[1]
	var payloadJSON []byte
	if len(row) > 3 {
		payloadJSON = []byte(row[3])
	}

	payload, err := DecodePayload(kind, payloadJSON)
	if err != nil {
		payload, _ = DecodePayload(kind, []byte("{}"))
	}

	return Event{
		ID:        id,
		Kind:      kind,
		Timestamp: timestamp,
		Payload:   payload,
	}, nil
}
