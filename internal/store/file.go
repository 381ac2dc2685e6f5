package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each key as a JSON file under a base directory. Writes go
// through a temp file and rename so a crash never leaves a torn document.
type FileStore struct {
	baseDir string

	locks sync.Map // key -> *sync.RWMutex
}

// NewFileStore creates the base directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) lockFor(key string) *sync.RWMutex {
	value, _ := s.locks.LoadOrStore(key, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

func (s *FileStore) pathFor(key string) string {
	return filepath.Join(s.baseDir, key+".json")
}

// Get returns the stored value or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	lock := s.lockFor(key)
	lock.RLock()
	defer lock.RUnlock()

	data, err := os.ReadFile(s.pathFor(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Set atomically replaces the stored value.
func (s *FileStore) Set(ctx context.Context, key string, data []byte) error {
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	fullPath := s.pathFor(key)
	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}
