package state

import "sync"

// MemoryAdapter is an in-memory Adapter for tests and ephemeral runs.
type MemoryAdapter struct {
	mu    sync.Mutex
	data  []byte
	found bool
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{}
}

func (a *MemoryAdapter) Load() ([]byte, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.found {
		return nil, false, nil
	}

	out := make([]byte, len(a.data))
	copy(out, a.data)

	return out, true, nil
}

func (a *MemoryAdapter) Save(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data = make([]byte, len(data))
	copy(a.data, data)
	a.found = true

	return nil
}
