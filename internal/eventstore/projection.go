package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// RunSummary is the read model of one run.
type RunSummary struct {
	RunID        string        `json:"run_id"`
	Trigger      string        `json:"trigger,omitempty"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Published    int           `json:"published"`
	Failed       int           `json:"failed"`
	PagesWritten int64         `json:"pages_written"`
	PagesSkipped int64         `json:"pages_skipped"`
	MediaWritten int64         `json:"media_written"`
	// Failures maps failed document ids to their error.
	Failures map[string]string `json:"failures,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// HistoryProjection rebuilds run summaries from the event log.
type HistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewHistoryProjection returns a projection keeping at most maxSize runs.
func NewHistoryProjection(store Store, maxSize int) *HistoryProjection {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &HistoryProjection{store: store, runs: make(map[string]*RunSummary), maxSize: maxSize}
}

// Rebuild replays every stored event.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	p.trimLocked()
	return nil
}

// Apply folds a single event into the projection.
func (p *HistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
	p.trimLocked()
}

func (p *HistoryProjection) applyLocked(e Event) {
	runID := e.RunID()
	if runID == "" {
		return
	}
	run, ok := p.runs[runID]
	if !ok {
		run = &RunSummary{RunID: runID, Status: StatusRunning, StartedAt: e.Timestamp()}
		p.runs[runID] = run
	}

	switch e.Type() {
	case TypeRunStarted:
		run.StartedAt = e.Timestamp()
		var payload RunStartedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			run.Trigger = payload.Trigger
		}

	case TypeDocumentPublished:
		run.Published++

	case TypeDocumentFailed:
		run.Failed++
		var payload DocumentPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			if run.Failures == nil {
				run.Failures = make(map[string]string)
			}
			run.Failures[payload.Document] = payload.Error
		}

	case TypeRunCompleted:
		done := e.Timestamp()
		run.CompletedAt = &done
		run.Duration = done.Sub(run.StartedAt)
		run.Status = StatusSuccess
		var payload RunCompletedPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			if payload.Status != "" {
				run.Status = payload.Status
			}
			run.PagesWritten = payload.PagesWritten
			run.PagesSkipped = payload.PagesSkipped
			run.MediaWritten = payload.MediaWritten
			run.Error = payload.Error
		}
	}
}

// trimLocked drops the oldest completed runs beyond maxSize.
func (p *HistoryProjection) trimLocked() {
	if len(p.runs) <= p.maxSize {
		return
	}
	for _, run := range p.sortedLocked()[p.maxSize:] {
		if run.Status != StatusRunning {
			delete(p.runs, run.RunID)
		}
	}
}

func (p *HistoryProjection) sortedLocked() []*RunSummary {
	out := make([]*RunSummary, 0, len(p.runs))
	for _, run := range p.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Recent returns up to limit runs, newest first. A limit of 0 returns all of them.
func (p *HistoryProjection) Recent(limit int) []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sorted := p.sortedLocked()
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	out := make([]RunSummary, len(sorted))
	for i, run := range sorted {
		out[i] = *run
	}
	return out
}

// Run returns the summary of one run.
func (p *HistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	run, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *run, true
}
