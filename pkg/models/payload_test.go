package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadDistinguishesNullFromOmitted(t *testing.T) {
	var p SyncPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"recordId": "rec1",
		"sku": "A1",
		"fields": {"name": "Jane Doe", "status": null}
	}`), &p))

	v, ok := p.Get(FieldName)
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", v)

	// explicit null: present, empty
	v, ok = p.Get(FieldStatus)
	assert.True(t, ok)
	assert.Equal(t, "", v)

	// omitted: absent
	_, ok = p.Get(FieldSlug)
	assert.False(t, ok)
}

func TestPayloadRecordAlias(t *testing.T) {
	assert.Equal(t, "a", SyncPayload{RecordID: "a"}.Record())
	assert.Equal(t, "b", SyncPayload{AirtableRecordID: "b"}.Record())
	assert.Equal(t, "a", SyncPayload{RecordID: "a", AirtableRecordID: "b"}.Record())
}

func TestPayloadGetAny(t *testing.T) {
	title := "Jane Doe"
	p := SyncPayload{Fields: map[string]*string{FieldAuthorTitle: &title}}

	v, ok := p.GetAny(FieldName, FieldAuthorTitle)
	assert.True(t, ok)
	assert.Equal(t, "Jane Doe", v)

	_, ok = p.GetAny(FieldSlug)
	assert.False(t, ok)
}
