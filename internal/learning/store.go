package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt marks a learning file that exists but cannot be parsed.
var ErrCorrupt = errors.New("learning data corrupt")

// Store persists a Record.
type Store interface {
	Load() (*Record, error)
	Save(r *Record) error
}

// FileStore keeps the record as one JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is learning_data.json inside the saysh home.
func DefaultPath(home string) string {
	return filepath.Join(home, "learning_data.json")
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load reads the record. A missing file is an empty record. A corrupt file
// is an empty record plus an error wrapping ErrCorrupt.
func (s *FileStore) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRecord(), nil
		}
		return NewRecord(), fmt.Errorf("failed to read learning data: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return NewRecord(), fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	rec.fill()
	return &rec, nil
}

// Save rewrites the whole file.
func (s *FileStore) Save(r *Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create learning directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal learning data: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write learning data: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace learning data: %w", err)
	}
	return nil
}
