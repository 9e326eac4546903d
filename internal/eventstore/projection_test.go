package eventstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, store Store, e *BaseEvent, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, Record(context.Background(), store, e))
}

func TestHistoryProjectionSummarizesRuns(t *testing.T) {
	store := openStore(t)

	e, err := NewRunStarted("run-1", RunStartedPayload{Trigger: "cli"})
	record(t, store, e, err)
	e, err = NewDocumentPublished("run-1", DocumentPayload{Document: "doc-a", Kind: "blog", Changed: true})
	record(t, store, e, err)
	e, err = NewDocumentFailed("run-1", DocumentPayload{Document: "doc-b", Kind: "article", Category: "link", Error: "unhandled link"})
	record(t, store, e, err)
	e, err = NewRunCompleted("run-1", RunCompletedPayload{Status: StatusPartial, PagesWritten: 7, PagesSkipped: 3, MediaWritten: 2})
	record(t, store, e, err)

	e, err = NewRunStarted("run-2", RunStartedPayload{Trigger: "schedule"})
	record(t, store, e, err)

	p := NewHistoryProjection(store, 10)
	require.NoError(t, p.Rebuild(t.Context()))

	run, ok := p.Run("run-1")
	require.True(t, ok)
	assert.Equal(t, "cli", run.Trigger)
	assert.Equal(t, StatusPartial, run.Status)
	assert.Equal(t, 1, run.Published)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, "unhandled link", run.Failures["doc-b"])
	assert.Equal(t, int64(7), run.PagesWritten)
	require.NotNil(t, run.CompletedAt)

	running, ok := p.Run("run-2")
	require.True(t, ok)
	assert.Equal(t, StatusRunning, running.Status)

	recent := p.Recent(0)
	require.Len(t, recent, 2)
	assert.Len(t, p.Recent(1), 1)
}

func TestHistoryProjectionTrims(t *testing.T) {
	p := NewHistoryProjection(openStore(t), 2)
	for _, id := range []string{"a", "b", "c"} {
		e, err := NewRunStarted(id, RunStartedPayload{})
		require.NoError(t, err)
		p.Apply(e)
		done, err := NewRunCompleted(id, RunCompletedPayload{Status: StatusSuccess})
		require.NoError(t, err)
		p.Apply(done)
	}
	assert.Len(t, p.Recent(0), 2)

	p.Apply(&BaseEvent{EventType: TypeRunStarted})
	assert.Len(t, p.Recent(0), 2, "events without run id are ignored")
}
