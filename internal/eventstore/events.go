package eventstore

import (
	"context"
	"encoding/json"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted     = "RunStarted"
	TypePipelineSynced = "PipelineSynced"
	TypePipelineFailed = "PipelineFailed"
	TypeRunCompleted   = "RunCompleted"
	TypeRunFailed      = "RunFailed"
)

// Payload is a typed event body.
type Payload interface {
	EventType() string
}

// RunStarted is recorded when a trigger starts a sync run.
type RunStarted struct {
	Trigger   string   `json:"trigger"`
	Pipelines []string `json:"pipelines"`
	Force     bool     `json:"force"`
}

// PipelineSynced is recorded when one pipeline finishes.
type PipelineSynced struct {
	Pipeline     string   `json:"pipeline"`
	Versions     []string `json:"versions,omitempty"`
	Written      int      `json:"written"`
	Unchanged    int      `json:"unchanged"`
	Skipped      int      `json:"skipped"`
	LinkFindings int      `json:"link_findings"`
	DurationMS   int64    `json:"duration_ms"`
}

// PipelineFailed is recorded when one pipeline aborts.
type PipelineFailed struct {
	Pipeline string `json:"pipeline"`
	Error    string `json:"error"`
}

// RunCompleted is recorded when every pipeline of a run succeeded.
type RunCompleted struct {
	DurationMS int64 `json:"duration_ms"`
}

// RunFailed is recorded when a run aborted.
type RunFailed struct {
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

func (RunStarted) EventType() string     { return TypeRunStarted }
func (PipelineSynced) EventType() string { return TypePipelineSynced }
func (PipelineFailed) EventType() string { return TypePipelineFailed }
func (RunCompleted) EventType() string   { return TypeRunCompleted }
func (RunFailed) EventType() string      { return TypeRunFailed }

// Record marshals p and appends it to store under runID.
func Record(ctx context.Context, store Store, runID string, p Payload, metadata map[string]string) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return errors.EventStoreError("failed to marshal event payload").
			WithCause(err).
			WithContext("run_id", runID).
			WithContext("event_type", p.EventType()).
			Build()
	}
	return store.Append(ctx, runID, p.EventType(), payload, metadata)
}
