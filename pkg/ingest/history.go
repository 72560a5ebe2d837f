package ingest

import (
	"sync"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

// maxHistoryEntries bounds the in-memory ingestion feed; older entries
// are dropped, not archived.
const maxHistoryEntries = 20

// History is the ephemeral ingestion feed: append-to-front, capped, and
// intentionally not persisted across restarts.
type History struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
}

func NewHistory() *History {
	return &History{}
}

// Add prepends an entry, evicting the oldest past the cap.
func (h *History) Add(status string, typ models.IngestType, data any) models.HistoryEntry {
	entry := models.HistoryEntry{
		ID:        time.Now().UnixNano(),
		Timestamp: time.Now().UTC(),
		Status:    status,
		Type:      typ,
		Data:      data,
	}

	h.mu.Lock()
	h.entries = append([]models.HistoryEntry{entry}, h.entries...)
	if len(h.entries) > maxHistoryEntries {
		h.entries = h.entries[:maxHistoryEntries]
	}
	h.mu.Unlock()

	return entry
}

// Entries returns the feed, most recent first.
func (h *History) Entries() []models.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.HistoryEntry, len(h.entries))
	copy(out, h.entries)

	return out
}

// Clear drops the whole feed in one action.
func (h *History) Clear() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}
