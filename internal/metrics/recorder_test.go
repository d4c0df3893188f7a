package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveRunDuration("manual", time.Second)
	r.IncRunOutcome("manual", OutcomeSuccess)
	r.IncPages("lmms-eval", PageWritten, 3)
	r.SetVersions("lmms-eval", 2)
	r.IncRemoteError("not_found")
	r.IncLinkFindings("lmms-eval", "broken_link", 1)
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveRunDuration("webhook", 150*time.Millisecond)
	pr.IncRunOutcome("webhook", OutcomeSuccess)
	pr.ObservePipelineDuration("lmms-eval", 100*time.Millisecond)
	pr.IncPipelineOutcome("lmms-eval", OutcomeSuccess)
	pr.IncPages("lmms-eval", PageWritten, 4)
	pr.IncPages("lmms-eval", PageUnchanged, 0)
	pr.SetVersions("lmms-eval", 3)
	pr.IncRemoteError("auth")
	pr.IncLinkFindings("lmms-engine", "missing_title", 2)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["docsync_pages_total"])
	assert.True(t, names["docsync_versions"])
	assert.True(t, names["docsync_run_outcomes_total"])
	assert.True(t, names["docsync_link_findings_total"])
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).SetVersions("lmms-eval", 5)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `docsync_versions{pipeline="lmms-eval"} 5`)
}
