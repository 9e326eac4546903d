package eventstore

import (
	"encoding/json"
	"time"
)

// Event type names.
const (
	TypeRunStarted        = "RunStarted"
	TypeDocumentPublished = "DocumentPublished"
	TypeDocumentFailed    = "DocumentFailed"
	TypeRunCompleted      = "RunCompleted"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	// StatusPartial means some documents failed while others were published.
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// RunStartedPayload describes how a run was started.
type RunStartedPayload struct {
	Trigger string `json:"trigger"`
	Force   bool   `json:"force"`
	DryRun  bool   `json:"dry_run"`
}

// DocumentPayload describes the outcome of one source document.
type DocumentPayload struct {
	Document   string `json:"document"`
	Kind       string `json:"kind"`
	Changed    bool   `json:"changed,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Category   string `json:"category,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RunCompletedPayload is the summary of a finished run.
type RunCompletedPayload struct {
	Status       string `json:"status"`
	Documents    int    `json:"documents"`
	Failed       int    `json:"failed"`
	PagesWritten int64  `json:"pages_written"`
	PagesSkipped int64  `json:"pages_skipped"`
	MediaWritten int64  `json:"media_written"`
	DurationMS   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}

func newEvent(runID, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, payloadError(err, eventType, runID)
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, p RunStartedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeRunStarted, p)
}

// NewDocumentPublished creates a DocumentPublished event.
func NewDocumentPublished(runID string, p DocumentPayload) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeDocumentPublished, p)
	if err != nil {
		return nil, err
	}
	e.EventMetadata = map[string]string{"document": p.Document}
	return e, nil
}

// NewDocumentFailed creates a DocumentFailed event.
func NewDocumentFailed(runID string, p DocumentPayload) (*BaseEvent, error) {
	e, err := newEvent(runID, TypeDocumentFailed, p)
	if err != nil {
		return nil, err
	}
	e.EventMetadata = map[string]string{"document": p.Document, "category": p.Category}
	return e, nil
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, p RunCompletedPayload) (*BaseEvent, error) {
	return newEvent(runID, TypeRunCompleted, p)
}
