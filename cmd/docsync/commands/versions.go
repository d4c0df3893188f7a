package commands

import (
	"context"
	"encoding/json"

	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/content"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/metrics"
	"github.com/evolvinglmms-lab/docsync/internal/syncer"
	"github.com/evolvinglmms-lab/docsync/internal/versioning"
)

// VersionsCmd implements the 'versions' command.
type VersionsCmd struct {
	Pipeline string `short:"p" help:"Versioned pipeline to inspect; defaults to every versioned pipeline"`
}

type versionLister interface {
	Versions(ctx context.Context) ([]versioning.Entry, error)
}

func (v *VersionsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	out, err := listVersions(context.Background(), cfg, v.Pipeline)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(g.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// listVersions resolves the version entries of each selected versioned
// pipeline, keyed by pipeline name.
func listVersions(ctx context.Context, cfg *config.Config, name string) (map[string][]versioning.Entry, error) {
	if name != "" {
		p, ok := cfg.Pipeline(name)
		if !ok {
			return nil, errors.NotFoundError("unknown pipeline: " + name).WithContext("pipeline", name).Build()
		}
		if p.Kind != config.PipelineVersioned {
			return nil, errors.ValidationError("pipeline is not versioned: " + name).WithContext("pipeline", name).Build()
		}
	}

	store := content.NewOSStore(".")
	out := make(map[string][]versioning.Entry)
	for _, pc := range cfg.Pipelines {
		if pc.Kind != config.PipelineVersioned || (name != "" && pc.Name != name) {
			continue
		}
		p, err := syncer.New(cfg, pc, store, metrics.NoopRecorder{})
		if err != nil {
			return nil, err
		}
		lister, ok := p.(versionLister)
		if !ok {
			continue
		}
		entries, err := lister.Versions(ctx)
		if err != nil {
			return nil, err
		}
		out[pc.Name] = entries
	}
	return out, nil
}
