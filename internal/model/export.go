package model

import "time"

// InteractionExport is the top-level JSON structure for interaction log export.
type InteractionExport struct {
	ExportedAt   time.Time          `json:"exported_at"`
	Since        *time.Time         `json:"since,omitempty"`
	Count        int                `json:"count"`
	Sessions     int                `json:"sessions"`
	ModeCounts   map[Mode]int       `json:"mode_counts"`
	Interactions []InteractionEntry `json:"interactions"`
}

// InteractionEntry is a single exported tutoring turn.
type InteractionEntry struct {
	SessionID  string    `json:"session_id"`
	Mode       Mode      `json:"mode"`
	Subject    string    `json:"subject"`
	ClassLevel string    `json:"class"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	Model      string    `json:"model"`
	At         time.Time `json:"at"`
}
