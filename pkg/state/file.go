package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileAdapter stores one value as a file under a state directory.
type FileAdapter struct {
	path string
}

// NewFileAdapter creates an adapter writing <dir>/<key>.json.
func NewFileAdapter(dir, key string) *FileAdapter {
	return &FileAdapter{path: filepath.Join(dir, key+".json")}
}

// Load reads the stored value. A missing file is not an error.
func (a *FileAdapter) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read state file '%s': %w", a.path, err)
	}

	return data, true, nil
}

// Save replaces the stored value.
func (a *FileAdapter) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	if err := os.WriteFile(a.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file '%s': %w", a.path, err)
	}

	return nil
}
