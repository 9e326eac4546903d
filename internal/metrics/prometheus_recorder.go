package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "izupress"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	once            sync.Once
	stageDuration   *prom.HistogramVec
	runDuration     prom.Histogram
	documentResults *prom.CounterVec
	runOutcomes     *prom.CounterVec
	pages           *prom.CounterVec
	media           *prom.CounterVec
	lastRun         prom.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them on reg, or on a
// fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of publish stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total publish run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.documentResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "document_results_total",
			Help:      "Source documents by kind and outcome",
		}, []string{"kind", "result"})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Publish runs by final status",
		}, []string{"outcome"})
		pr.pages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Output pages by write decision",
		}, []string{"decision"})
		pr.media = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "media_total",
			Help:      "Images and drawings by outcome",
		}, []string{"outcome"})
		pr.lastRun = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run",
		})
		reg.MustRegister(pr.stageDuration, pr.runDuration, pr.documentResults, pr.runOutcomes, pr.pages, pr.media, pr.lastRun)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncDocumentResult(kind string, result ResultLabel) {
	if p == nil || p.documentResults == nil {
		return
	}
	p.documentResults.WithLabelValues(kind, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddPages(written, skipped int64) {
	if p == nil || p.pages == nil {
		return
	}
	p.pages.WithLabelValues("written").Add(float64(written))
	p.pages.WithLabelValues("skipped").Add(float64(skipped))
}

func (p *PrometheusRecorder) AddMedia(downloaded, written, reused int64) {
	if p == nil || p.media == nil {
		return
	}
	p.media.WithLabelValues("downloaded").Add(float64(downloaded))
	p.media.WithLabelValues("written").Add(float64(written))
	p.media.WithLabelValues("reused").Add(float64(reused))
}
