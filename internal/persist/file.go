package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/limacina/launcher/internal/core"
)

// FileStore keeps one JSON file per id in a directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory cannot be empty")
	}
	if err := core.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save merges data over the stored object for id and writes it back.
func (s *FileStore) Save(ctx context.Context, id string, data map[string]any) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(id)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(merge(existing, data))
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", id, err)
	}

	// Write to temp file then rename atomically
	tmp, err := os.CreateTemp(s.dir, ".store-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(encoded)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", id, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, s.path(id)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", id, err)
	}
	return nil
}

// Get returns the stored object for id, or nil if there is none.
func (s *FileStore) Get(ctx context.Context, id string) (map[string]any, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// Remove deletes the entry for id. Removing a missing id is not an error.
func (s *FileStore) Remove(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", id, err)
	}
	return nil
}

// Clear removes the store directory and recreates it empty.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := core.DeleteDir(s.dir); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return core.EnsureDir(s.dir)
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read(id string) (map[string]any, error) {
	raw, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", id, err)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", id, err)
	}
	return obj, nil
}
