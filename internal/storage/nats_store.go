package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const natsOpTimeout = 5 * time.Second

// NATSStore keeps keys in a JetStream key/value bucket so several hosts can share
// one cache.
type NATSStore struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSStore connects to url and opens bucket, creating it when missing.
func NewNATSStore(ctx context.Context, url, bucket string) (*NATSStore, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(ctx, bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "izupress incremental cache",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("create KV bucket %s: %w", bucket, err)
		}
		slog.Info("Created KV bucket for cache", "bucket", bucket)
	}
	return &NATSStore{conn: conn, kv: kv}, nil
}

// NewNATSStoreFromKV wraps an already opened bucket. Close leaves the connection alone.
func NewNATSStoreFromKV(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// Get returns the latest revision of key.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, natsOpTimeout)
	defer cancel()

	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound{Key: key}
		}
		return nil, fmt.Errorf("get key %s: %w", key, err)
	}
	return entry.Value(), nil
}

// Put stores value under key.
func (s *NATSStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, natsOpTimeout)
	defer cancel()

	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put key %s: %w", key, err)
	}
	return nil
}

// Delete places a delete marker for key.
func (s *NATSStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, natsOpTimeout)
	defer cancel()

	if err := s.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}

// Keys lists the live keys of the bucket.
func (s *NATSStore) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, natsOpTimeout)
	defer cancel()

	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Close closes the NATS connection when the store owns it.
func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
