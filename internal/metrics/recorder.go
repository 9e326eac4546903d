package metrics

import "time"

// ResultLabel enumerates document outcomes.
type ResultLabel string

const (
	ResultPublished ResultLabel = "published"
	ResultUnchanged ResultLabel = "unchanged"
	ResultFailed    ResultLabel = "failed"
)

// Recorder receives run metrics.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncDocumentResult(kind string, result ResultLabel)
	IncRunOutcome(outcome string) // success|partial|failed
	AddPages(written, skipped int64)
	AddMedia(downloaded, written, reused int64)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncDocumentResult(string, ResultLabel)      {}
func (NoopRecorder) IncRunOutcome(string)                       {}
func (NoopRecorder) AddPages(int64, int64)                      {}
func (NoopRecorder) AddMedia(int64, int64, int64)               {}
