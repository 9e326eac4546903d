// Package incremental decides what a run has to regenerate. A HashStore keeps
// small values keyed by free-form descriptors on top of a storage.Store, and a
// WriteGate only writes output files whose rendered bytes changed.
package incremental

import (
	"context"
	"crypto/sha1" // #nosec G505 -- descriptor hashing, not a security boundary
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sync"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/storage"
)

// Value kind suffixes appended to the hashed descriptor.
const (
	KindString = "s"
	KindBytes  = "b"
	KindJSON   = "j"
)

// StoreKey returns the storage key of a descriptor holding a value of kind.
func StoreKey(descriptor, kind string) string {
	sum := sha1.Sum([]byte(descriptor)) // #nosec G401 -- see import
	return hex.EncodeToString(sum[:]) + kind
}

// HashStore is a two-tier cache: strings are memoized in memory after the first
// read or write; bytes and JSON values always go to the backing store.
type HashStore struct {
	store  storage.Store
	logger *slog.Logger

	mu      sync.RWMutex
	strings map[string]string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures a HashStore.
type Option func(*HashStore)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *HashStore) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHashStore wraps store.
func NewHashStore(store storage.Store, opts ...Option) *HashStore {
	h := &HashStore{
		store:   store,
		logger:  slog.Default(),
		strings: make(map[string]string),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetString returns the string stored under descriptor.
func (h *HashStore) GetString(descriptor string) (string, bool, error) {
	h.mu.RLock()
	v, ok := h.strings[descriptor]
	h.mu.RUnlock()
	if ok {
		return v, true, nil
	}

	data, ok, err := h.get(descriptor, KindString)
	if err != nil || !ok {
		return "", ok, err
	}
	v = string(data)
	h.mu.Lock()
	h.strings[descriptor] = v
	h.mu.Unlock()
	return v, true, nil
}

// PutString stores value under descriptor.
func (h *HashStore) PutString(descriptor, value string) error {
	unlock := h.lock(descriptor)
	defer unlock()

	if err := h.put(descriptor, KindString, []byte(value)); err != nil {
		return err
	}
	h.mu.Lock()
	h.strings[descriptor] = value
	h.mu.Unlock()
	return nil
}

// GetBytes returns the bytes stored under descriptor.
func (h *HashStore) GetBytes(descriptor string) ([]byte, bool, error) {
	return h.get(descriptor, KindBytes)
}

// PutBytes stores value under descriptor.
func (h *HashStore) PutBytes(descriptor string, value []byte) error {
	unlock := h.lock(descriptor)
	defer unlock()
	return h.put(descriptor, KindBytes, value)
}

// GetJSON decodes the value stored under descriptor into v.
func (h *HashStore) GetJSON(descriptor string, v any) (bool, error) {
	data, ok, err := h.get(descriptor, KindJSON)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, ferrors.CacheIOError("decode cached value").
			WithCause(err).
			WithContext("descriptor", descriptor).
			Build()
	}
	return true, nil
}

// PutJSON encodes v and stores it under descriptor.
func (h *HashStore) PutJSON(descriptor string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ferrors.CacheIOError("encode value").
			WithCause(err).
			WithContext("descriptor", descriptor).
			Build()
	}
	unlock := h.lock(descriptor)
	defer unlock()
	return h.put(descriptor, KindJSON, data)
}

func (h *HashStore) get(descriptor, kind string) ([]byte, bool, error) {
	data, err := h.store.Get(context.Background(), StoreKey(descriptor, kind))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, ferrors.CacheIOError("read cache entry").
			WithCause(err).
			WithContext("descriptor", descriptor).
			Build()
	}
	return data, true, nil
}

func (h *HashStore) put(descriptor, kind string, data []byte) error {
	if err := h.store.Put(context.Background(), StoreKey(descriptor, kind), data); err != nil {
		return ferrors.CacheIOError("write cache entry").
			WithCause(err).
			WithContext("descriptor", descriptor).
			Build()
	}
	h.logger.Debug("Cache entry stored", slog.String("descriptor", descriptor), slog.Int("bytes", len(data)))
	return nil
}

// lock serializes writers of one descriptor.
func (h *HashStore) lock(descriptor string) func() {
	h.locksMu.Lock()
	m, ok := h.locks[descriptor]
	if !ok {
		m = &sync.Mutex{}
		h.locks[descriptor] = m
	}
	h.locksMu.Unlock()
	m.Lock()
	return m.Unlock
}
