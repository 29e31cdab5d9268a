package models

import "time"

// Attachment is a media asset sideloaded into local storage, keyed by the
// source URL it was downloaded from so repeat syncs never duplicate it.
type Attachment struct {
	ID        int64     `json:"attachment_id"`
	SourceURL string    `json:"source_url"`
	FilePath  string    `json:"file_path"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
