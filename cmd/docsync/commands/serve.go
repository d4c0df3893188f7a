package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/daemon"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/server/httpserver"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr     string `short:"a" help:"Listen address; overrides server.addr"`
	NoReload bool   `name:"no-reload" help:"Do not watch the configuration file for changes"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			slog.Warn("Failed to release resources", logfields.Error(cerr))
		}
	}()

	srv := httpserver.New(rt.service, serverOptions(cfg, rt))
	opts := daemon.Options{Config: cfg, Service: rt.service, Server: srv}
	if !s.NoReload {
		opts.ConfigPath = root.Config
		opts.Pipelines = rt.pipelines
	}
	d, err := daemon.New(opts)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

func serverOptions(cfg *config.Config, rt *runtime) httpserver.Options {
	opts := httpserver.Options{
		Addr:          cfg.Server.Addr,
		SyncPath:      cfg.Server.SyncPath,
		APIKey:        cfg.Server.ResolveAPIKey(),
		WebhookSecret: cfg.Webhook.ResolveSecret(),
		Pipelines:     cfg.Server.WebhookPipelines,
	}
	if rt.metricsHandler != nil {
		opts.MetricsPath = cfg.Monitoring.Metrics.Path
		opts.MetricsHandler = rt.metricsHandler
	}
	if opts.WebhookSecret == "" {
		slog.Warn("WEBHOOK_SECRET is not set; webhook signatures are not verified")
	}
	if opts.APIKey == "" {
		slog.Warn("SYNC_API_KEY is not set; manual sync trigger is unauthenticated")
	}
	return opts
}
