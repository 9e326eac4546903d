package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndGetByRunID(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, "run-1", "TestEvent", []byte(`{"a":1}`), map[string]string{"key": "value"}))
	require.NoError(t, store.Append(ctx, "run-2", "TestEvent", nil, nil))

	events, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run-1", events[0].RunID())
	assert.Equal(t, "TestEvent", events[0].Type())
	assert.JSONEq(t, `{"a":1}`, string(events[0].Payload()))
	assert.Equal(t, "value", events[0].Metadata()["key"])
	assert.WithinDuration(t, time.Now(), events[0].Timestamp(), time.Minute)

	events, err = store.GetByRunID(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "{}", string(events[0].Payload()))
	assert.Nil(t, events[0].Metadata())
}

func TestGetRange(t *testing.T) {
	store := openStore(t)
	ctx := t.Context()
	require.NoError(t, store.Append(ctx, "run-1", "A", nil, nil))

	events, err := store.GetRange(ctx, time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = store.GetRange(ctx, time.Now().Add(time.Hour), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.sqlite")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), "run-1", "A", nil, nil))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	events, err := reopened.GetByRunID(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
