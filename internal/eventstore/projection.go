package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PipelineSummary is the per-pipeline part of a RunSummary.
type PipelineSummary struct {
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	Versions     []string `json:"versions,omitempty"`
	Written      int      `json:"written"`
	Unchanged    int      `json:"unchanged"`
	Skipped      int      `json:"skipped"`
	LinkFindings int      `json:"link_findings"`
	Error        string   `json:"error,omitempty"`
}

// RunSummary is a read model of one sync run.
type RunSummary struct {
	RunID       string            `json:"run_id"`
	Trigger     string            `json:"trigger"`
	Force       bool              `json:"force"`
	Status      string            `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	DurationMS  int64             `json:"duration_ms,omitempty"`
	Pipelines   []PipelineSummary `json:"pipelines"`
	Error       string            `json:"error,omitempty"`
}

// HistoryProjection keeps the most recent runs in memory, rebuilt from the
// store at startup and updated as events are recorded.
type HistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewHistoryProjection returns a projection over store holding at most
// maxSize runs (100 when maxSize <= 0).
func NewHistoryProjection(store Store, maxSize int) *HistoryProjection {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &HistoryProjection{store: store, runs: make(map[string]*RunSummary), maxSize: maxSize}
}

// Rebuild replays every stored event.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.UnixMilli(0), time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	p.pruneLocked()
	return nil
}

// Apply folds one event into the projection.
func (p *HistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
	p.pruneLocked()
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
		var body RunStarted
		if json.Unmarshal(e.Payload(), &body) == nil {
			run.Trigger = body.Trigger
			run.Force = body.Force
		}
		run.StartedAt = e.Timestamp()

	case TypePipelineSynced:
		var body PipelineSynced
		if json.Unmarshal(e.Payload(), &body) == nil {
			run.Pipelines = append(run.Pipelines, PipelineSummary{
				Name:         body.Pipeline,
				Status:       StatusCompleted,
				Versions:     body.Versions,
				Written:      body.Written,
				Unchanged:    body.Unchanged,
				Skipped:      body.Skipped,
				LinkFindings: body.LinkFindings,
			})
		}

	case TypePipelineFailed:
		var body PipelineFailed
		if json.Unmarshal(e.Payload(), &body) == nil {
			run.Pipelines = append(run.Pipelines, PipelineSummary{Name: body.Pipeline, Status: StatusFailed, Error: body.Error})
		}

	case TypeRunCompleted:
		p.finishLocked(run, e, StatusCompleted, "")

	case TypeRunFailed:
		var body RunFailed
		_ = json.Unmarshal(e.Payload(), &body)
		p.finishLocked(run, e, StatusFailed, body.Error)
	}
}

func (p *HistoryProjection) finishLocked(run *RunSummary, e Event, status, msg string) {
	at := e.Timestamp()
	run.CompletedAt = &at
	run.DurationMS = at.Sub(run.StartedAt).Milliseconds()
	run.Status = status
	run.Error = msg
}

// pruneLocked drops the oldest finished runs beyond maxSize.
func (p *HistoryProjection) pruneLocked() {
	if len(p.runs) <= p.maxSize {
		return
	}
	finished := make([]*RunSummary, 0, len(p.runs))
	for _, r := range p.runs {
		if r.Status != StatusRunning {
			finished = append(finished, r)
		}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].StartedAt.Before(finished[j].StartedAt) })
	for _, r := range finished {
		if len(p.runs) <= p.maxSize {
			break
		}
		delete(p.runs, r.RunID)
	}
}

// History returns runs newest first.
func (p *HistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RunSummary, 0, len(p.runs))
	for _, r := range p.runs {
		out = append(out, copyRun(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Run returns one run by ID.
func (p *HistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return copyRun(r), true
}

// LastCompleted returns the most recently started finished run.
func (p *HistoryProjection) LastCompleted() (RunSummary, bool) {
	for _, r := range p.History() {
		if r.Status != StatusRunning {
			return r, true
		}
	}
	return RunSummary{}, false
}

func copyRun(r *RunSummary) RunSummary {
	cp := *r
	cp.Pipelines = append([]PipelineSummary(nil), r.Pipelines...)
	return cp
}

// Record appends pl to the backing store and folds it into the projection.
func (p *HistoryProjection) Record(ctx context.Context, runID string, pl Payload) error {
	if err := Record(ctx, p.store, runID, pl, nil); err != nil {
		return err
	}
	body, _ := json.Marshal(pl)
	p.Apply(&BaseEvent{
		EventRunID:     runID,
		EventType:      pl.EventType(),
		EventTimestamp: time.Now(),
		EventPayload:   body,
	})
	return nil
}
