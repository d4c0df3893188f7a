// Package trigger runs sync pipelines on request and records the outcome.
//
// Runs are serialized: a second run waits for the first to finish. Identical
// requests arriving while one is in flight share its result, so a burst of
// webhook deliveries produces a single sync.
package trigger

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/evolvinglmms-lab/docsync/internal/eventstore"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/linkaudit"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/metrics"
	"github.com/evolvinglmms-lab/docsync/internal/notify"
	"github.com/evolvinglmms-lab/docsync/internal/syncer"
)

// Source names what started a run.
type Source string

const (
	SourceManual   Source = "manual"
	SourceWebhook  Source = "webhook"
	SourceSchedule Source = "schedule"
	SourceCLI      Source = "cli"
)

// SuccessMessage is reported for every successful run.
const SuccessMessage = "Docs synced successfully"

// Request selects what a run syncs. Empty Pipelines means all.
type Request struct {
	Source    Source
	Pipelines []string
	Force     bool
}

// Result is the outcome of one run.
type Result struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id,omitempty"`
	Reports   []*syncer.Report `json:"reports,omitempty"`
	Err       error            `json:"-"`
}

// UnknownPipelineError reports a requested pipeline that is not configured.
// It unwraps to a not_found classified error.
type UnknownPipelineError struct {
	Name string
}

func (e *UnknownPipelineError) Error() string { return "unknown pipeline: " + e.Name }

func (e *UnknownPipelineError) Unwrap() error {
	return errors.NotFoundError(e.Error()).WithContext("pipeline", e.Name).Build()
}

// IsUnknownPipeline reports whether err names a pipeline that is not configured.
func IsUnknownPipeline(err error) bool {
	var target *UnknownPipelineError
	return stderrors.As(err, &target)
}

// Service owns the configured pipelines.
type Service struct {
	pmu       sync.RWMutex
	pipelines []syncer.Pipeline
	history   *eventstore.HistoryProjection
	notifier  notify.Notifier
	recorder  metrics.Recorder

	mu    sync.Mutex
	group singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records run events into h.
func WithHistory(h *eventstore.HistoryProjection) Option {
	return func(s *Service) { s.history = h }
}

// WithNotifier publishes a re-render request per pipeline after a successful run.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New returns a service over pipelines, run in the given order.
func New(pipelines []syncer.Pipeline, opts ...Option) *Service {
	s := &Service{
		pipelines: pipelines,
		notifier:  notify.Noop{},
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// History returns the run history projection, or nil when disabled.
func (s *Service) History() *eventstore.HistoryProjection { return s.history }

// PipelineNames lists the configured pipelines in run order.
func (s *Service) PipelineNames() []string {
	s.pmu.RLock()
	defer s.pmu.RUnlock()
	names := make([]string, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		names = append(names, p.Name())
	}
	return names
}

// SetPipelines replaces the pipeline set used by later runs. A run already in
// progress keeps the pipelines it started with.
func (s *Service) SetPipelines(pipelines []syncer.Pipeline) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	s.pipelines = pipelines
}

// SyncNow syncs every pipeline.
func (s *Service) SyncNow(ctx context.Context, force bool) Result {
	return s.Run(ctx, Request{Source: SourceManual, Force: force})
}

// SyncPipeline syncs one named pipeline.
func (s *Service) SyncPipeline(ctx context.Context, name string, force bool) Result {
	return s.Run(ctx, Request{Source: SourceManual, Pipelines: []string{name}, Force: force})
}

// Run executes req. Concurrent identical requests share one execution.
func (s *Service) Run(ctx context.Context, req Request) Result {
	selected, err := s.selectPipelines(req.Pipelines)
	if err != nil {
		return failure(err, "")
	}
	names := make([]string, 0, len(selected))
	for _, p := range selected {
		names = append(names, p.Name())
	}

	key := fmt.Sprintf("%s|%t", strings.Join(names, ","), req.Force)
	v, _, shared := s.group.Do(key, func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.execute(ctx, req.Source, selected, names, req.Force), nil
	})
	if shared {
		slog.Debug("Joined in-flight sync", slog.String("key", key))
	}
	return v.(Result)
}

func (s *Service) selectPipelines(names []string) ([]syncer.Pipeline, error) {
	s.pmu.RLock()
	defer s.pmu.RUnlock()
	if len(names) == 0 {
		return s.pipelines, nil
	}
	var out []syncer.Pipeline
	for _, p := range s.pipelines {
		if slices.Contains(names, p.Name()) {
			out = append(out, p)
		}
	}
	for _, n := range names {
		if !slices.ContainsFunc(out, func(p syncer.Pipeline) bool { return p.Name() == n }) {
			return nil, &UnknownPipelineError{Name: n}
		}
	}
	return out, nil
}

func (s *Service) execute(ctx context.Context, source Source, pipelines []syncer.Pipeline, names []string, force bool) Result {
	runID := uuid.NewString()
	start := time.Now()
	logger := slog.Default().With(logfields.RunID(runID), slog.String("trigger", string(source)))
	logger.Info("Sync run started", slog.Any("pipelines", names), slog.Bool("force", force))
	s.record(ctx, logger, runID, eventstore.RunStarted{Trigger: string(source), Pipelines: names, Force: force})

	reports := make([]*syncer.Report, 0, len(pipelines))
	for _, p := range pipelines {
		pStart := time.Now()
		report, err := p.Sync(ctx, syncer.Options{Force: force})
		s.recorder.ObservePipelineDuration(p.Name(), time.Since(pStart))
		if err != nil {
			s.recorder.IncPipelineOutcome(p.Name(), metrics.OutcomeFailed)
			s.record(ctx, logger, runID, eventstore.PipelineFailed{Pipeline: p.Name(), Error: errors.UserMessage(err)})
			return s.fail(ctx, logger, source, runID, start, err)
		}
		s.recorder.IncPipelineOutcome(p.Name(), metrics.OutcomeSuccess)
		s.recorder.IncPages(p.Name(), metrics.PageWritten, report.Written)
		s.recorder.IncPages(p.Name(), metrics.PageUnchanged, report.Unchanged)
		for kind, n := range linkaudit.Summary(report.LinkFindings) {
			s.recorder.IncLinkFindings(p.Name(), string(kind), n)
		}
		s.record(ctx, logger, runID, eventstore.PipelineSynced{
			Pipeline:     p.Name(),
			Versions:     report.Versions,
			Written:      report.Written,
			Unchanged:    report.Unchanged,
			Skipped:      len(report.SkippedVersions),
			LinkFindings: len(report.LinkFindings),
			DurationMS:   report.Duration.Milliseconds(),
		})
		reports = append(reports, report)
	}

	elapsed := time.Since(start)
	s.recorder.ObserveRunDuration(string(source), elapsed)
	s.recorder.IncRunOutcome(string(source), metrics.OutcomeSuccess)
	s.record(ctx, logger, runID, eventstore.RunCompleted{DurationMS: elapsed.Milliseconds()})
	logger.Info("Sync run completed", logfields.DurationMS(float64(elapsed.Milliseconds())))

	for i, p := range pipelines {
		msg := notify.Rerender{Pipeline: p.Name(), Path: p.RoutePath(), RunID: runID, Versions: reports[i].Versions}
		if err := s.notifier.NotifyRerender(ctx, msg); err != nil {
			logger.Warn("Failed to publish rerender request", logfields.Pipeline(p.Name()), logfields.Error(err))
		}
	}

	return Result{
		Success:   true,
		Message:   SuccessMessage,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Reports:   reports,
	}
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, source Source, runID string, start time.Time, err error) Result {
	elapsed := time.Since(start)
	s.recorder.ObserveRunDuration(string(source), elapsed)
	s.recorder.IncRunOutcome(string(source), metrics.OutcomeFailed)
	s.record(ctx, logger, runID, eventstore.RunFailed{Error: errors.UserMessage(err), DurationMS: elapsed.Milliseconds()})
	logger.Error("Sync run failed", logfields.Error(err))
	return failure(err, runID)
}

// record writes to history; failures are logged and never fail the run.
func (s *Service) record(ctx context.Context, logger *slog.Logger, runID string, p eventstore.Payload) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(context.WithoutCancel(ctx), runID, p); err != nil {
		logger.Warn("Failed to record run event", slog.String("event_type", p.EventType()), logfields.Error(err))
	}
}

func failure(err error, runID string) Result {
	msg := errors.UserMessage(err)
	if msg == "" {
		msg = "Unknown error"
	}
	return Result{Success: false, Error: msg, Timestamp: time.Now().UTC(), RunID: runID, Err: err}
}
