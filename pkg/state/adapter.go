// Package state persists portal UI state (custom mocks, active tab)
// through a pluggable key-value adapter. Storage is a best-effort cache:
// the stores never fail because the backing medium did.
package state

import "errors"

//go:generate mockgen -destination=mock_adapter.go -package=state github.com/verdantops/esgportal/pkg/state Adapter

// Storage keys, scoped to the ingestion portal feature.
const (
	KeyCustomMocks = "esg_portal_custom_mocks"
	KeyActiveTab   = "esg_portal_active_tab"
)

var (
	ErrEmptyName      = errors.New("mock name must not be empty")
	ErrInvalidPayload = errors.New("mock payload must be valid JSON")
)

// Adapter is a durable slot for one value. Load reports whether a value
// was present; Save replaces it.
type Adapter interface {
	Load() ([]byte, bool, error)
	Save(data []byte) error
}
