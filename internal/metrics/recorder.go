package metrics

import "time"

// Outcome labels a finished run or pipeline.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// PageResult labels one emitted file.
type PageResult string

const (
	PageWritten   PageResult = "written"
	PageUnchanged PageResult = "unchanged"
	PageFailed    PageResult = "failed"
)

// Recorder is the sync metrics surface.
type Recorder interface {
	ObserveRunDuration(trigger string, d time.Duration)
	IncRunOutcome(trigger string, outcome Outcome)
	ObservePipelineDuration(pipeline string, d time.Duration)
	IncPipelineOutcome(pipeline string, outcome Outcome)
	IncPages(pipeline string, result PageResult, n int)
	SetVersions(pipeline string, n int)
	IncRemoteError(kind string)
	IncLinkFindings(pipeline, kind string, n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(string, time.Duration)      {}
func (NoopRecorder) IncRunOutcome(string, Outcome)                 {}
func (NoopRecorder) ObservePipelineDuration(string, time.Duration) {}
func (NoopRecorder) IncPipelineOutcome(string, Outcome)            {}
func (NoopRecorder) IncPages(string, PageResult, int)              {}
func (NoopRecorder) SetVersions(string, int)                       {}
func (NoopRecorder) IncRemoteError(string)                         {}
func (NoopRecorder) IncLinkFindings(string, string, int)           {}

var _ Recorder = NoopRecorder{}
