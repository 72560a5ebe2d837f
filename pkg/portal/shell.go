// Package portal wires the ingestion portal's views together: the
// persisted tab selection, the shared edit buffer, the custom mock
// store, and the ingestion flow.
package portal

import (
	"context"
	"sync"

	"github.com/verdantops/esgportal/pkg/catalog"
	"github.com/verdantops/esgportal/pkg/client"
	"github.com/verdantops/esgportal/pkg/dashboard"
	"github.com/verdantops/esgportal/pkg/ingest"
	"github.com/verdantops/esgportal/pkg/models"
	"github.com/verdantops/esgportal/pkg/state"
)

// Shell coordinates the three portal views over one edit buffer.
type Shell struct {
	tabs    *state.TabStore
	mocks   *state.MockStore
	history *ingest.History
	poller  *dashboard.Poller
	flow    *ingest.Flow

	mu     sync.Mutex
	buffer string
	mode   models.IngestType
}

// NewShell builds the shell and its ingestion flow. The flow's success
// hook force-switches to the dashboard tab so the user immediately sees
// the effect of a submission.
func NewShell(api ingest.Submitter, opts client.IngestOptions, tabs *state.TabStore, mocks *state.MockStore, poller *dashboard.Poller) *Shell {
	s := &Shell{
		tabs:    tabs,
		mocks:   mocks,
		history: ingest.NewHistory(),
		poller:  poller,
		mode:    models.IngestSustainability,
	}

	s.flow = ingest.NewFlow(api, opts, s.history, poller, func(models.IngestType) {
		s.SelectTab(models.TabDashboard)
	})

	s.syncPollerCadence()

	return s
}

// ActiveTab returns the current view.
func (s *Shell) ActiveTab() models.Tab {
	return s.tabs.Active()
}

// SelectTab switches views, persists the selection, and adjusts the
// dashboard poll cadence.
func (s *Shell) SelectTab(tab models.Tab) {
	s.tabs.SetActive(tab)
	s.syncPollerCadence()
}

func (s *Shell) syncPollerCadence() {
	if s.poller != nil {
		s.poller.SetActive(s.tabs.Active() == models.TabDashboard)
	}
}

// Buffer returns the edit buffer and its mode.
func (s *Shell) Buffer() (string, models.IngestType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer, s.mode
}

// SetBuffer replaces the edit buffer.
func (s *Shell) SetBuffer(text string, mode models.IngestType) {
	s.mu.Lock()
	s.buffer = text
	s.mode = mode
	s.mu.Unlock()
}

// LoadPreset realizes a catalog preset into the edit buffer.
func (s *Shell) LoadPreset(d catalog.Descriptor) error {
	text, err := catalog.PrettyJSON(d.Realize())
	if err != nil {
		return err
	}

	s.SetBuffer(text, d.Type)

	return nil
}

// LoadMock surfaces a saved mock's payload and mode into the edit
// buffer without mutating the stored record.
func (s *Shell) LoadMock(id string) bool {
	mock, ok := s.mocks.Get(id)
	if !ok {
		return false
	}

	s.SetBuffer(mock.Payload, mock.Type)

	return true
}

// SaveBufferAsMock saves the current buffer under the given name.
func (s *Shell) SaveBufferAsMock(name string) (models.Mock, error) {
	buffer, mode := s.Buffer()
	return s.mocks.Save(name, buffer, mode)
}

// Submit sends the edit buffer through the ingestion flow; on success
// the buffer is cleared and the dashboard tab becomes active.
func (s *Shell) Submit(ctx context.Context) (models.HistoryEntry, error) {
	buffer, mode := s.Buffer()

	entry, err := s.flow.Submit(ctx, mode, buffer)
	if err != nil {
		return entry, err
	}

	s.mu.Lock()
	s.buffer = ""
	s.mu.Unlock()

	return entry, nil
}

// History exposes the ingestion feed.
func (s *Shell) History() *ingest.History {
	return s.history
}

// Mocks exposes the custom mock store.
func (s *Shell) Mocks() *state.MockStore {
	return s.mocks
}

// Pending reports whether a submission is in flight for mode.
func (s *Shell) Pending(mode models.IngestType) bool {
	return s.flow.Pending(mode)
}
