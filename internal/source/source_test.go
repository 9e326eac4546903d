package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/incremental"
	"git.home.luguber.info/inful/izupress/internal/storage"
)

type fakeReader struct {
	hash         string
	content      string
	contentCalls int
	err          error
}

func (f *fakeReader) Metadata(context.Context, string) (Metadata, error) {
	if f.err != nil {
		return Metadata{}, f.err
	}
	return Metadata{Title: "Doc", ContentHash: f.hash}, nil
}

func (f *fakeReader) Content(context.Context, string, Format) ([]byte, error) {
	f.contentCalls++
	return []byte(f.content), nil
}

func TestEntityFreshness(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{hash: "h1", content: "v1"}
	src := New(reader, incremental.NewHashStore(storage.NewMemoryStore()))

	e, err := src.Get(ctx, "doc", FormatHTML)
	require.NoError(t, err)
	assert.False(t, e.UpToDate, "never seen")
	data, err := e.Content(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	require.NoError(t, e.Sync())

	// unchanged metadata: content served from the cache
	reader.content = "ignored"
	e, err = src.Get(ctx, "doc", FormatHTML)
	require.NoError(t, err)
	assert.True(t, e.UpToDate)
	data, err = e.Content(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
	assert.Equal(t, 1, reader.contentCalls)

	// changed metadata: refetch
	reader.hash, reader.content = "h2", "v2"
	e, err = src.Get(ctx, "doc", FormatHTML)
	require.NoError(t, err)
	assert.False(t, e.UpToDate)
	data, err = e.Content(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, 2, reader.contentCalls)
}

func TestSyncIsRequiredToRecordFreshness(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{hash: "h1", content: "v1"}
	src := New(reader, incremental.NewHashStore(storage.NewMemoryStore()))

	e, err := src.Get(ctx, "doc", FormatHTML)
	require.NoError(t, err)
	_, err = e.Content(ctx)
	require.NoError(t, err)
	// no Sync: a failed use leaves the document stale

	e, err = src.Get(ctx, "doc", FormatHTML)
	require.NoError(t, err)
	assert.False(t, e.UpToDate)
}

func TestFormatsAreCachedSeparately(t *testing.T) {
	ctx := context.Background()
	reader := &fakeReader{hash: "h1", content: "html"}
	src := New(reader, incremental.NewHashStore(storage.NewMemoryStore()))

	_, err := src.GetNow(ctx, "doc", FormatHTML)
	require.NoError(t, err)

	reader.content = "text"
	e, err := src.Get(ctx, "doc", FormatText)
	require.NoError(t, err)
	assert.True(t, e.UpToDate, "freshness is per document")
	data, err := e.Content(ctx)
	require.NoError(t, err)
	assert.Equal(t, "text", string(data), "missing cached text export is fetched")
}

func TestMetadataErrorsPropagate(t *testing.T) {
	boom := errors.New("offline")
	src := New(&fakeReader{err: boom}, incremental.NewHashStore(storage.NewMemoryStore()))
	_, err := src.Get(context.Background(), "doc", FormatHTML)
	require.ErrorIs(t, err, boom)
}
