package models

// Term is a taxonomy entry in the destination store: a named, slugged
// category-like object with a free-text description and key/value metadata.
// The external SKU lives in term metadata and is the durable join key.
type Term struct {
	ID          int64  `json:"term_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}
