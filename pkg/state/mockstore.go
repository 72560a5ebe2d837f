package state

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

// MockStore holds the user-saved payload mocks, mirrored to durable
// storage on every mutation. Storage failures degrade to the in-memory
// list; they are never surfaced.
type MockStore struct {
	mu      sync.Mutex
	adapter Adapter
	mocks   []models.Mock
}

// NewMockStore initializes the store from the adapter. Any load failure
// (missing key, invalid JSON, storage unavailable) yields an empty list.
func NewMockStore(adapter Adapter) *MockStore {
	s := &MockStore{adapter: adapter}

	data, found, err := adapter.Load()
	if err != nil {
		log.Printf("Custom mock storage unavailable, starting empty: %v", err)
		return s
	}

	if !found {
		return s
	}

	if err := json.Unmarshal(data, &s.mocks); err != nil {
		log.Printf("Corrupt custom mock state, starting empty: %v", err)
		s.mocks = nil
	}

	return s
}

// All returns the mocks, most recently saved first.
func (s *MockStore) All() []models.Mock {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Mock, len(s.mocks))
	copy(out, s.mocks)

	return out
}

// Save validates and prepends a new mock. The name must be non-empty
// after trimming and the payload must parse as JSON; otherwise the list
// and storage are left untouched.
func (s *MockStore) Save(name, payload string, typ models.IngestType) (models.Mock, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Mock{}, ErrEmptyName
	}

	if !json.Valid([]byte(payload)) || strings.TrimSpace(payload) == "" {
		return models.Mock{}, ErrInvalidPayload
	}

	mock := models.Mock{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Name:    name,
		Payload: payload,
		Type:    typ,
		SavedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.mocks = append([]models.Mock{mock}, s.mocks...)
	s.persistLocked()
	s.mu.Unlock()

	return mock, nil
}

// Delete removes the mock with the given id. Deleting an unknown id is
// a no-op.
func (s *MockStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.mocks {
		if m.ID == id {
			s.mocks = append(s.mocks[:i], s.mocks[i+1:]...)
			s.persistLocked()

			return
		}
	}
}

// Get surfaces a stored mock's payload text and mode without consuming
// the record.
func (s *MockStore) Get(id string) (models.Mock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.mocks {
		if m.ID == id {
			return m, true
		}
	}

	return models.Mock{}, false
}

// Len reports the number of saved mocks.
func (s *MockStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.mocks)
}

func (s *MockStore) persistLocked() {
	data, err := json.Marshal(s.mocks)
	if err != nil {
		log.Printf("Failed to serialize custom mocks: %v", err)
		return
	}

	if err := s.adapter.Save(data); err != nil {
		log.Printf("Failed to persist custom mocks: %v", err)
	}
}
