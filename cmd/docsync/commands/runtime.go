package commands

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/content"
	"github.com/evolvinglmms-lab/docsync/internal/eventstore"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/metrics"
	"github.com/evolvinglmms-lab/docsync/internal/notify"
	"github.com/evolvinglmms-lab/docsync/internal/syncer"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
)

// runtime is the wired sync stack shared by the sync and serve commands.
type runtime struct {
	store          *content.Store
	recorder       metrics.Recorder
	metricsHandler http.Handler
	service        *trigger.Service
	closers        []func() error
}

// buildRuntime wires pipelines, metrics, run history and notifications from
// cfg. Paths in cfg are relative to the working directory.
func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	if cfg.Remote.ResolveToken() == "" {
		slog.Warn("GITHUB_TOKEN is not set; GitHub API requests are unauthenticated and heavily rate limited")
	}

	rt := &runtime{store: content.NewOSStore("."), recorder: metrics.NoopRecorder{}}
	if cfg.Monitoring.Metrics.Enabled {
		reg := prom.NewRegistry()
		rt.recorder = metrics.NewPrometheusRecorder(reg)
		rt.metricsHandler = metrics.HTTPHandler(reg)
	}

	pipelines, err := rt.pipelines(cfg)
	if err != nil {
		return nil, err
	}
	opts := []trigger.Option{trigger.WithRecorder(rt.recorder)}

	if cfg.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, store.Close)
		history := eventstore.NewHistoryProjection(store, 0)
		if err := history.Rebuild(ctx); err != nil {
			slog.Warn("Failed to rebuild run history", logfields.Error(err))
		}
		opts = append(opts, trigger.WithHistory(history))
	}

	if cfg.Notify.NATSURL != "" {
		n, err := notify.NewNATSNotifier(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Re-render notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			rt.closers = append(rt.closers, n.Close)
			opts = append(opts, trigger.WithNotifier(n))
		}
	}

	rt.service = trigger.New(pipelines, opts...)
	return rt, nil
}

// pipelines builds the pipelines of cfg against the runtime's store and
// recorder. It doubles as the daemon's reload factory.
func (rt *runtime) pipelines(cfg *config.Config) ([]syncer.Pipeline, error) {
	return syncer.NewAll(cfg, rt.store, rt.recorder)
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
