package models

import "time"

// IngestType distinguishes the two submission modes.
type IngestType string

const (
	IngestSustainability IngestType = "sustainability"
	IngestLegacy         IngestType = "legacy"
)

// Mock is a user-saved payload. Preset mocks never take this form; they
// are realized fresh from the catalog on every load.
type Mock struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Payload string     `json:"payload"`
	Type    IngestType `json:"type"`
	SavedAt time.Time  `json:"savedAt"`
}

// HistoryEntry records one completed ingestion attempt. History is
// in-memory only and lost on restart.
type HistoryEntry struct {
	ID        int64      `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Status    string     `json:"status"` // "success" or "failed"
	Type      IngestType `json:"type"`
	Data      any        `json:"data"`
}

// Tab identifies one of the portal's views.
type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabIngest    Tab = "ingest"
	TabHistory   Tab = "history"
)

// Valid reports whether t names a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabDashboard, TabIngest, TabHistory:
		return true
	}

	return false
}
