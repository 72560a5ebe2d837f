package state

import (
	"log"
	"sync"

	"github.com/verdantops/esgportal/pkg/models"
)

// TabStore persists the portal's last-active tab identifier.
type TabStore struct {
	mu      sync.Mutex
	adapter Adapter
	tab     models.Tab
}

// NewTabStore initializes the store from the adapter, falling back to
// def when storage is empty, unreadable, or holds an unknown tab.
func NewTabStore(adapter Adapter, def models.Tab) *TabStore {
	s := &TabStore{adapter: adapter, tab: def}

	data, found, err := adapter.Load()
	if err != nil || !found {
		return s
	}

	if tab := models.Tab(data); tab.Valid() {
		s.tab = tab
	}

	return s
}

// Active returns the current tab.
func (s *TabStore) Active() models.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tab
}

// SetActive switches the current tab and persists it best-effort.
func (s *TabStore) SetActive(tab models.Tab) {
	if !tab.Valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tab = tab

	if err := s.adapter.Save([]byte(tab)); err != nil {
		log.Printf("Failed to persist active tab: %v", err)
	}
}
