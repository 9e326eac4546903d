package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeStream) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return &jetstream.PubAck{Stream: "IZUPRESS_PAGE_WRITTEN", Sequence: uint64(len(f.payloads))}, nil
}

func TestPublishEncodesEvent(t *testing.T) {
	fake := &fakeStream{}
	p := &NATSPublisher{js: fake, subject: DefaultSubject, logger: slog.Default()}

	require.NoError(t, p.Publish(context.Background(), PageEvent{
		RunID: "run-1",
		Path:  "blog/news/index.html",
		URL:   "https://example.com/blog/news/index.html",
	}))
	require.Len(t, fake.payloads, 1)
	assert.Equal(t, DefaultSubject, fake.subjects[0])

	var got PageEvent
	require.NoError(t, json.Unmarshal(fake.payloads[0], &got))
	assert.Equal(t, "blog/news/index.html", got.Path)
	assert.WithinDuration(t, time.Now(), got.Timestamp, time.Minute)
	assert.NoError(t, p.Close())
}

func TestPublishError(t *testing.T) {
	p := &NATSPublisher{js: &fakeStream{err: errors.New("no responders")}, subject: DefaultSubject, logger: slog.Default()}
	err := p.Publish(context.Background(), PageEvent{Path: "a.html"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
}

func TestStreamName(t *testing.T) {
	assert.Equal(t, "IZUPRESS_PAGE_WRITTEN", streamName("izupress.page.written"))
	assert.Equal(t, "SITE_ALL", streamName("site.*"))
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), PageEvent{}))
	assert.NoError(t, p.Close())
}
