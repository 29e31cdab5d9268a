package models

// ChangedFields reports which core term fields and which whitelisted
// metadata fields were actually written during a sync.
type ChangedFields struct {
	Core []string `json:"core"`
	Meta []string `json:"meta"`
}

// SyncResult describes the outcome of one sync invocation.
type SyncResult struct {
	TermID   int64         `json:"term_id"`
	TermURL  string        `json:"term_url,omitempty"`
	Action   string        `json:"action"` // "created", "updated" or "trashed"
	RecordID string        `json:"recordId,omitempty"`
	Changed  ChangedFields `json:"changed_fields"`
}

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionTrashed = "trashed"
)
