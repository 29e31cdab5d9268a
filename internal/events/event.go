package events

import "time"

const (
	TermCreated = "term.created"
	TermUpdated = "term.updated"
	TermTrashed = "term.trashed"
)

// TermEvent is broadcast to feed subscribers after every successful sync.
type TermEvent struct {
	Type        string    `json:"type"`
	TermID      int64     `json:"term_id,omitempty"`
	SKU         string    `json:"sku"`
	Slug        string    `json:"slug,omitempty"`
	ChangedCore []string  `json:"changed_core,omitempty"`
	ChangedMeta []string  `json:"changed_meta,omitempty"`
	At          time.Time `json:"at"`
}
