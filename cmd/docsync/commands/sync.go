package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/evolvinglmms-lab/docsync/internal/logfields"
	"github.com/evolvinglmms-lab/docsync/internal/trigger"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Force    bool     `short:"f" help:"Re-sync versions whose directories already exist"`
	Pipeline []string `short:"p" help:"Sync only the named pipeline (repeatable)"`
}

func (s *SyncCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
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

	res := rt.service.Run(ctx, trigger.Request{Source: trigger.SourceCLI, Pipelines: s.Pipeline, Force: s.Force})
	return writeSyncResult(g, res)
}

// writeSyncResult prints one summary line per pipeline and returns the run
// error, if any.
func writeSyncResult(g *Global, res trigger.Result) error {
	if !res.Success {
		return res.Err
	}
	for _, r := range res.Reports {
		_, _ = fmt.Fprintf(g.Out, "%s: %d versions, %d skipped, %d written, %d unchanged, %d link warnings (%s)\n",
			r.Pipeline, len(r.Versions), len(r.SkippedVersions), r.Written, r.Unchanged, len(r.LinkFindings), r.Duration.Round(time.Millisecond))
	}
	_, _ = fmt.Fprintln(g.Out, res.Message)
	return nil
}
