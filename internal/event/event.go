package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies an event type. Kinds are namespaced tags and form a
// closed set; the projection fold switches exhaustively over them.
type Kind string

const (
	KindEntryConfirmed Kind = "log/entryConfirmed"
	KindEntryUpdated   Kind = "log/entryUpdated"
	KindEntryDeleted   Kind = "log/entryDeleted"
	KindLogAgain       Kind = "log/logAgain"
	KindMediaUploaded  Kind = "media/uploadCompleted"
	KindGoalsUpdated   Kind = "settings/goalsUpdated"
)

// Event is an immutable record of a fact. Events are the sole source of
// truth: all derived state is a fold over the event log.
//
// ID is a UUID assigned once at dispatch. Timestamp is ISO-8601, assigned
// at creation. Neither is ever rewritten; the local store only tags events
// with a sync status alongside.
type Event struct {
	ID        string
	Kind      Kind
	Timestamp string
	Payload   Payload
}

// Time parses the event timestamp. Returns the zero time for timestamps
// that do not parse; callers sorting by Time tolerate that by treating
// unparseable timestamps as earliest.
func (e Event) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		t, err = time.Parse(time.RFC3339, e.Timestamp)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}

// Payload is the closed union of event payload shapes. Exactly one
// concrete type exists per Kind, plus Raw for kinds this build does not
// know (forward compatibility: unknown events are stored and replayed
// untouched, never dropped).
type Payload interface {
	isPayload()
}

// Number is a float64 that tolerates JSON numbers encoded as strings and
// zero-defaults anything unparseable. Remote rows come from a spreadsheet
// with no schema enforcement, and a malformed nutrition value must never
// poison an aggregate sum.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// DetailedNutrients is the optional micro-nutrient breakdown attached to
// a log entry. All fields zero-default.
type DetailedNutrients struct {
	SaturatedFat Number `json:"saturatedFat,omitempty"`
	TransFat     Number `json:"transFat,omitempty"`
	Cholesterol  Number `json:"cholesterol,omitempty"`
	Sodium       Number `json:"sodium,omitempty"`
	Potassium    Number `json:"potassium,omitempty"`
	Calcium      Number `json:"calcium,omitempty"`
	Iron         Number `json:"iron,omitempty"`
	Fiber        Number `json:"fiber,omitempty"`
	Sugar        Number `json:"sugar,omitempty"`
	AddedSugar   Number `json:"addedSugar,omitempty"`
	Caffeine     Number `json:"caffeine,omitempty"`
	Alcohol      Number `json:"alcohol,omitempty"`
}

// LogEntry is the business entity carried by an entryConfirmed payload.
// Its ID is the business identity, distinct from the event ID: replaying
// the same confirm twice inserts once.
type LogEntry struct {
	ID            string             `json:"id"`
	Date          string             `json:"date"`
	Time          string             `json:"time"`
	MealType      string             `json:"mealType"`
	Description   string             `json:"description"`
	Calories      Number             `json:"calories"`
	Protein       Number             `json:"protein"`
	Fat           Number             `json:"fat"`
	Carbs         Number             `json:"carbs"`
	ImageDriveURL string             `json:"imageDriveUrl,omitempty"`
	Rationale     string             `json:"rationale,omitempty"`
	Details       *DetailedNutrients `json:"details,omitempty"`
	MediaIDs      []string           `json:"mediaIds,omitempty"`
}

// EntryChanges is a partial update: nil fields are left untouched when the
// change set is merged over the existing entry.
type EntryChanges struct {
	Date          *string            `json:"date,omitempty"`
	Time          *string            `json:"time,omitempty"`
	MealType      *string            `json:"mealType,omitempty"`
	Description   *string            `json:"description,omitempty"`
	Calories      *Number            `json:"calories,omitempty"`
	Protein       *Number            `json:"protein,omitempty"`
	Fat           *Number            `json:"fat,omitempty"`
	Carbs         *Number            `json:"carbs,omitempty"`
	ImageDriveURL *string            `json:"imageDriveUrl,omitempty"`
	Rationale     *string            `json:"rationale,omitempty"`
	Details       *DetailedNutrients `json:"details,omitempty"`
	MediaIDs      *[]string          `json:"mediaIds,omitempty"`
}

// MacroRatios expresses macro goals as fractions of target calories.
type MacroRatios struct {
	Protein Number `json:"protein"`
	Fat     Number `json:"fat"`
	Carbs   Number `json:"carbs"`
}

// EntryConfirmed records a new confirmed log entry.
type EntryConfirmed struct {
	Entry LogEntry `json:"entry"`
}

// EntryUpdated records a field-level edit of an existing entry.
type EntryUpdated struct {
	EntryID string       `json:"entryId"`
	Changes EntryChanges `json:"changes"`
}

// EntryDeleted records removal of an entry.
type EntryDeleted struct {
	EntryID string `json:"entryId"`
}

// LogAgain records re-logging a previous entry; it drives the favourites
// projection. The favourite snapshot is derived from the source entry in
// current projection state, not from this payload.
type LogAgain struct {
	Description   string `json:"description"`
	SourceEntryID string `json:"sourceEntryId"`
	Timestamp     string `json:"timestamp"`
}

// MediaUploaded resolves a temporary media ID to a durable URL.
type MediaUploaded struct {
	TempID string `json:"tempId"`
	URL    string `json:"url"`
}

// GoalsUpdated replaces the macro goal settings.
type GoalsUpdated struct {
	TargetCalories Number      `json:"targetCalories"`
	MacroRatios    MacroRatios `json:"macroRatios"`
}

// Raw carries the payload of an event kind this build does not recognise.
// It round-trips through storage and sync byte-for-byte.
type Raw struct {
	JSON json.RawMessage
}

func (EntryConfirmed) isPayload() {}
func (EntryUpdated) isPayload()   {}
func (EntryDeleted) isPayload()   {}
func (LogAgain) isPayload()       {}
func (MediaUploaded) isPayload()  {}
func (GoalsUpdated) isPayload()   {}
func (Raw) isPayload()            {}

// DecodePayload parses payload JSON into the concrete type for kind.
// Unknown kinds decode to Raw. Empty input decodes to an empty object.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	switch kind {
	case KindEntryConfirmed:
		var p EntryConfirmed
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindEntryUpdated:
		var p EntryUpdated
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindEntryDeleted:
		var p EntryDeleted
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindLogAgain:
		var p LogAgain
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindMediaUploaded:
		var p MediaUploaded
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	case KindGoalsUpdated:
		var p GoalsUpdated
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		return p, nil
	default:
		if !json.Valid(data) {
			return nil, fmt.Errorf("decode %s payload: invalid JSON", kind)
		}
		return Raw{JSON: append(json.RawMessage(nil), data...)}, nil
	}
}

// EncodePayload serialises a payload to JSON. Raw payloads are emitted
// byte-for-byte as decoded.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	if raw, ok := p.(Raw); ok {
		if len(raw.JSON) == 0 {
			return []byte("{}"), nil
		}
		return append([]byte(nil), raw.JSON...), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}
