package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveRunDuration(time.Second)
	r.AddPages(1, 2)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("blogs", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncDocumentResult("blog", ResultPublished)
	pr.IncDocumentResult("blog", ResultPublished)
	pr.IncDocumentResult("article", ResultFailed)
	pr.IncRunOutcome("partial")
	pr.AddPages(5, 3)
	pr.AddMedia(2, 1, 4)

	values := map[string]float64{}
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				name += "," + l.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				values[name] = c.GetValue()
			}
		}
	}
	assert.InDelta(t, 2, values["izupress_document_results_total,blog,published"], 0)
	assert.InDelta(t, 5, values["izupress_pages_total,written"], 0)
	assert.InDelta(t, 4, values["izupress_media_total,reused"], 0)

	var nilRecorder *PrometheusRecorder
	nilRecorder.IncRunOutcome("success")
}

func TestExport(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncRunOutcome("success")

	path := filepath.Join(t.TempDir(), "izupress.prom")
	require.NoError(t, WriteTextfile(reg, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `izupress_run_outcomes_total{outcome="success"} 1`)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "izupress_run_outcomes_total")
}
