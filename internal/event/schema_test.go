package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePayload_AcceptsWellFormedConfirm(t *testing.T) {
	data := []byte(`{"entry":{"id":"e1","date":"2024-03-15","description":"Toast","calories":200}}`)
	assert.NoError(t, ValidatePayload(KindEntryConfirmed, data))
}

func TestValidatePayload_AcceptsStringNumbers(t *testing.T) {
	// Spreadsheet cells frequently stringify numbers.
	data := []byte(`{"entry":{"id":"e1","calories":"200","protein":"12.5"}}`)
	assert.NoError(t, ValidatePayload(KindEntryConfirmed, data))
}

func TestValidatePayload_AcceptsUnknownFields(t *testing.T) {
	// Open structs: newer writers may add fields.
	data := []byte(`{"entry":{"id":"e1","futureField":true},"extra":"ok"}`)
	assert.NoError(t, ValidatePayload(KindEntryConfirmed, data))
}

func TestValidatePayload_RejectsConfirmWithoutID(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no entry", `{}`},
		{"empty id", `{"entry":{"id":"","calories":200}}`},
		{"missing id", `{"entry":{"calories":200}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidatePayload(KindEntryConfirmed, []byte(tt.data)))
		})
	}
}

func TestValidatePayload_RejectsUpdateWithoutEntryID(t *testing.T) {
	assert.Error(t, ValidatePayload(KindEntryUpdated, []byte(`{"changes":{"calories":100}}`)))
	assert.NoError(t, ValidatePayload(KindEntryUpdated, []byte(`{"entryId":"e1","changes":{"calories":100}}`)))
}

func TestValidatePayload_UnknownKindPasses(t *testing.T) {
	assert.NoError(t, ValidatePayload(Kind("future/someEvent"), []byte(`{"whatever":1}`)))
}

func TestValidatePayload_EmptyPayload(t *testing.T) {
	// An empty delete payload is shape-invalid (entryId required)...
	assert.Error(t, ValidatePayload(KindEntryDeleted, nil))
	// ...but an empty media payload is fine (both fields optional).
	require.NoError(t, ValidatePayload(KindMediaUploaded, nil))
}
