package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsync"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runDuration      *prom.HistogramVec
	runOutcomes      *prom.CounterVec
	pipelineDuration *prom.HistogramVec
	pipelineOutcomes *prom.CounterVec
	pages            *prom.CounterVec
	versions         *prom.GaugeVec
	remoteErrors     *prom.CounterVec
	linkFindings     *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of sync runs",
			Buckets:   prom.DefBuckets,
		}, []string{"trigger"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Sync runs by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		pipelineDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a single pipeline sync",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline"}),
		pipelineOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_outcomes_total",
			Help:      "Pipeline syncs by outcome",
		}, []string{"pipeline", "outcome"}),
		pages: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Emitted files by result",
		}, []string{"pipeline", "result"}),
		versions: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "versions",
			Help:      "Number of versions in the last versions manifest",
		}, []string{"pipeline"}),
		remoteErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "remote_errors_total",
			Help:      "Remote API failures by kind",
		}, []string{"kind"}),
		linkFindings: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "link_findings_total",
			Help:      "Link audit findings on emitted pages by kind",
		}, []string{"pipeline", "kind"}),
	}
	reg.MustRegister(pr.runDuration, pr.runOutcomes, pr.pipelineDuration, pr.pipelineOutcomes,
		pr.pages, pr.versions, pr.remoteErrors, pr.linkFindings)
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(trigger string, d time.Duration) {
	p.runDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(trigger string, outcome Outcome) {
	p.runOutcomes.WithLabelValues(trigger, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObservePipelineDuration(pipeline string, d time.Duration) {
	p.pipelineDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineOutcome(pipeline string, outcome Outcome) {
	p.pipelineOutcomes.WithLabelValues(pipeline, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncPages(pipeline string, result PageResult, n int) {
	if n <= 0 {
		return
	}
	p.pages.WithLabelValues(pipeline, string(result)).Add(float64(n))
}

func (p *PrometheusRecorder) SetVersions(pipeline string, n int) {
	p.versions.WithLabelValues(pipeline).Set(float64(n))
}

func (p *PrometheusRecorder) IncRemoteError(kind string) {
	p.remoteErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncLinkFindings(pipeline, kind string, n int) {
	if n <= 0 {
		return
	}
	p.linkFindings.WithLabelValues(pipeline, kind).Add(float64(n))
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
