// Package daemon runs docsync in serve mode: the HTTP trigger server, an
// optional cron-scheduled sync and configuration hot-reload.
package daemon

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/syncer"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
)

const shutdownTimeout = 30 * time.Second

// PipelineFactory builds the pipelines of a configuration.
type PipelineFactory func(cfg *config.Config) ([]syncer.Pipeline, error)

// HTTPServer is the trigger server lifecycle the daemon drives.
type HTTPServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Options wires a Daemon.
type Options struct {
	Config  *config.Config
	Service *trigger.Service
	Server  HTTPServer
	// ConfigPath enables hot-reload when set together with Pipelines.
	ConfigPath string
	Pipelines  PipelineFactory
}

// Daemon owns the serve-mode components.
type Daemon struct {
	service   *trigger.Service
	server    HTTPServer
	pipelines PipelineFactory

	scheduler *Scheduler
	watcher   *ConfigWatcher

	mu  sync.RWMutex
	cfg *config.Config
}

// New validates opts and prepares the scheduler and watcher. Nothing runs
// until Run.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Service == nil || opts.Server == nil {
		return nil, errors.DaemonError("daemon requires config, service and server").Build()
	}
	d := &Daemon{
		service:   opts.Service,
		server:    opts.Server,
		pipelines: opts.Pipelines,
		cfg:       opts.Config,
	}

	sched, err := NewScheduler(d.scheduledSync)
	if err != nil {
		return nil, err
	}
	if err := sched.Schedule(opts.Config.Schedule.Cron); err != nil {
		_ = sched.Stop()
		return nil, err
	}
	d.scheduler = sched

	if opts.ConfigPath != "" && opts.Pipelines != nil {
		w, err := NewConfigWatcher(opts.ConfigPath, d.ReloadConfig)
		if err != nil {
			_ = sched.Stop()
			return nil, err
		}
		d.watcher = w
	}
	return d, nil
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Run starts every component and blocks until ctx is done, then shuts them
// down in reverse order.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Start(ctx); err != nil {
		_ = d.scheduler.Stop()
		if d.watcher != nil {
			_ = d.watcher.Stop()
		}
		return err
	}
	d.scheduler.Start(ctx)
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			slog.Warn("Configuration hot-reload disabled", logfields.Error(err))
			_ = d.watcher.Stop()
			d.watcher = nil
		}
	}
	slog.Info("Daemon running", slog.Any("pipelines", d.service.PipelineNames()), slog.String("cron", d.scheduler.Expr()))

	<-ctx.Done()
	slog.Info("Daemon shutting down")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.server.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}
	if err := d.scheduler.Stop(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.DaemonError("daemon shutdown incomplete").WithCause(stderrors.Join(errs...)).Build()
	}
	return nil
}

// ReloadConfig swaps in the pipelines and schedule of cfg. Server address,
// credentials and routes are bound at start and need a restart to change.
func (d *Daemon) ReloadConfig(_ context.Context, cfg *config.Config) error {
	if d.pipelines == nil {
		return errors.DaemonError("hot-reload requires a pipeline factory").Build()
	}
	pipelines, err := d.pipelines(cfg)
	if err != nil {
		return err
	}

	d.mu.Lock()
	old := d.cfg
	d.cfg = cfg
	d.mu.Unlock()

	d.service.SetPipelines(pipelines)
	if cfg.Schedule.Cron != d.scheduler.Expr() {
		if err := d.scheduler.Schedule(cfg.Schedule.Cron); err != nil {
			return err
		}
	}
	if serverChanged(old, cfg) {
		slog.Warn("Server settings changed; restart required for them to take effect")
	}
	slog.Info("Applied reloaded configuration", slog.Any("pipelines", d.service.PipelineNames()))
	return nil
}

func (d *Daemon) scheduledSync(ctx context.Context) {
	res := d.service.Run(ctx, trigger.Request{Source: trigger.SourceSchedule})
	if !res.Success {
		slog.Error("Scheduled sync failed", logfields.RunID(res.RunID), slog.String("error", res.Error))
		return
	}
	slog.Info("Scheduled sync completed", logfields.RunID(res.RunID))
}

func serverChanged(a, b *config.Config) bool {
	return a.Server.Addr != b.Server.Addr ||
		a.Server.SyncPath != b.Server.SyncPath ||
		a.Server.ResolveAPIKey() != b.Server.ResolveAPIKey() ||
		a.Webhook.ResolveSecret() != b.Webhook.ResolveSecret() ||
		!slices.Equal(a.Server.WebhookPipelines, b.Server.WebhookPipelines) ||
		a.Monitoring.Metrics != b.Monitoring.Metrics
}
