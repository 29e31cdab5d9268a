package models

import "strings"

// SyncPayload is the wire contract between the exporter and the sync
// endpoint. Fields is a sparse mapping: a missing key means "leave the
// stored value untouched", an explicit null means "clear it". Unknown
// field names are ignored.
type SyncPayload struct {
	RecordID         string             `json:"recordId"`
	AirtableRecordID string             `json:"airtableRecordId,omitempty"`
	SKU              string             `json:"sku"`
	Fields           map[string]*string `json:"fields"`
}

// Recognized field names. "name"/"author_title" and
// "profile_image"/"profile_image_link" are aliases.
const (
	FieldName             = "name"
	FieldAuthorTitle      = "author_title"
	FieldSlug             = "slug"
	FieldAuthorDesc       = "author_description"
	FieldASDesc           = "as_description"
	FieldNewsDesc         = "news_description"
	FieldProfileImage     = "profile_image"
	FieldProfileImageLink = "profile_image_link"
	FieldStatus           = "status"
)

// StatusTrash deletes the matched term instead of upserting it.
const StatusTrash = "trash"

// Record returns whichever record identifier the caller supplied.
func (p SyncPayload) Record() string {
	if p.RecordID != "" {
		return p.RecordID
	}
	return p.AirtableRecordID
}

// Has reports whether the field key was present in the payload at all,
// including an explicit null.
func (p SyncPayload) Has(key string) bool {
	_, ok := p.Fields[key]
	return ok
}

// Get returns the field value with nulls flattened to "". The second
// return distinguishes "present" from "omitted".
func (p SyncPayload) Get(key string) (string, bool) {
	v, ok := p.Fields[key]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return strings.TrimSpace(*v), true
}

// GetAny returns the first of the given keys that is present.
func (p SyncPayload) GetAny(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p.Get(k); ok {
			return v, true
		}
	}
	return "", false
}
