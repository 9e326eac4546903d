// Package notify publishes an event for every output page a run wrote, so that
// downstream consumers (cache purgers, search indexers) only look at what changed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/izupress/internal/logfields"
)

// DefaultSubject is the subject page events are published on.
const DefaultSubject = "izupress.page.written"

const publishTimeout = 5 * time.Second

// PageEvent describes one written output file.
type PageEvent struct {
	RunID string `json:"run_id"`
	// Path is relative to the output directory, with forward slashes.
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher sends page events.
type Publisher interface {
	Publish(ctx context.Context, event PageEvent) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, PageEvent) error { return nil }
func (Noop) Close() error                             { return nil }

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes page events to a JetStream stream.
type NATSPublisher struct {
	conn    *nats.Conn
	js      streamPublisher
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to url and makes sure a stream captures subject.
func NewNATSPublisher(ctx context.Context, url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("izupress"))
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
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        streamName(subject),
		Description: "izupress written pages",
		Subjects:    []string{subject},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create stream for %s: %w", subject, err)
	}

	logger.Info("NATS publisher initialized", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, js: js, subject: subject, logger: logger}, nil
}

// streamName derives a valid stream name from a subject.
func streamName(subject string) string {
	r := strings.NewReplacer(".", "_", "*", "ALL", ">", "REST", " ", "_")
	return strings.ToUpper(r.Replace(subject))
}

// Publish sends event. Events without a timestamp are stamped now.
func (p *NATSPublisher) Publish(ctx context.Context, event PageEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal page event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.js.Publish(ctx, p.subject, data, jetstream.WithMsgID(event.RunID+":"+event.Path)); err != nil {
		return fmt.Errorf("publish page event: %w", err)
	}
	p.logger.Debug("Published page event", logfields.Path(event.Path), logfields.RunID(event.RunID))
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
