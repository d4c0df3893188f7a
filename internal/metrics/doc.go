// Package metrics records sync run metrics.
//
// Components take a Recorder and default to NoopRecorder, so nothing needs a
// nil check. `docsync serve` swaps in a PrometheusRecorder when
// monitoring.metrics.enabled is set and exposes it through HTTPHandler.
package metrics
