package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tmpSuffix = ".tmp"
	// shortDir holds keys too short to split. '~' never appears in a key.
	shortDir = "~"
)

// FSStore keeps one file per key:
//
//	<dir>/
//	  ab/
//	    cd1234... (first 2 chars = subdir, rest = filename)
//
// Writes go to a temporary file that is renamed into place, so readers never see
// a partial value.
type FSStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFSStore creates the store directory if needed.
func NewFSStore(basePath string) (*FSStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", basePath, err)
	}
	return &FSStore{basePath: basePath}, nil
}

// Get reads the file of key.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	// #nosec G304 -- path is built from a validated key
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound{Key: key}
		}
		return nil, fmt.Errorf("read key %s: %w", key, err)
	}
	return data, nil
}

// Put writes value atomically.
func (s *FSStore) Put(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	tmp := path + tmpSuffix
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit key %s: %w", key, err)
	}
	return nil
}

// Delete removes the file of key and its directory when it becomes empty.
func (s *FSStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.keyPath(key)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	_ = os.Remove(filepath.Dir(path)) // Best effort, fails while not empty
	return nil
}

// Keys walks the store directory.
func (s *FSStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tmpSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return nil
		}
		rel = strings.TrimPrefix(rel, shortDir+string(filepath.Separator))
		keys = append(keys, strings.ReplaceAll(rel, string(filepath.Separator), ""))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store: %w", err)
	}
	return keys, nil
}

// Close releases resources.
func (s *FSStore) Close() error {
	return nil
}

func (s *FSStore) keyPath(key string) string {
	if len(key) < 3 {
		return filepath.Join(s.basePath, shortDir, key)
	}
	return filepath.Join(s.basePath, key[:2], key[2:])
}
