// Package storage provides the key/value byte stores behind the incremental cache.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store is a flat key/value store of opaque bytes.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a key doesn't exist.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "key not found: " + e.Key
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ValidateKey rejects keys that cannot be stored by every backend. Keys are limited
// to letters, digits and "-_.=" and must not start with a dot.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid key %q: leading dot", key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == '=':
		default:
			return fmt.Errorf("invalid key %q: character %q", key, r)
		}
	}
	return nil
}
