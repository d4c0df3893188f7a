package syncer

import (
	"github.com/evolvinglmms-lab/docsync/internal/config"
	"github.com/evolvinglmms-lab/docsync/internal/content"
	"github.com/evolvinglmms-lab/docsync/internal/forge"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/git"
	"github.com/evolvinglmms-lab/docsync/internal/metrics"
	"github.com/evolvinglmms-lab/docsync/internal/retry"
)

// New builds the pipeline described by p, wiring a GitHub client and, for
// versioned pipelines, the configured tag source.
func New(cfg *config.Config, p config.PipelineConfig, store *content.Store, rec metrics.Recorder) (Pipeline, error) {
	token := cfg.Remote.ResolveToken()
	policy, err := retry.FromConfig(cfg.Remote.Retry)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid remote.retry").
			WithContext("pipeline", p.Name).Build()
	}
	client, err := forge.NewClient(forge.Options{
		APIURL:            cfg.Remote.APIURL,
		RawURL:            cfg.Remote.RawURL,
		Owner:             p.Owner,
		Repo:              p.Repo,
		Token:             token,
		UserAgent:         cfg.Remote.UserAgent,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Timeout:           cfg.Remote.Timeout,
		Retry:             policy,
	})
	if err != nil {
		return nil, err
	}
	deps := Deps{Remote: client, Tags: client, Store: store, Recorder: rec}

	switch p.Kind {
	case config.PipelineTree:
		return NewTree(p, cfg.ContentDir, deps)
	case config.PipelineVersioned:
		if cfg.Remote.TagSource == config.TagSourceGit {
			deps.Tags = git.NewTagLister(git.CloneURL(cfg.Remote.CloneURL, p.Owner, p.Repo), token).WithRetry(policy)
		}
		return NewVersioned(p, cfg.ContentDir, deps)
	default:
		return nil, errors.ConfigError("unknown pipeline kind").
			WithContext("pipeline", p.Name).
			WithContext("kind", string(p.Kind)).
			Build()
	}
}

// NewAll builds every configured pipeline in order.
func NewAll(cfg *config.Config, store *content.Store, rec metrics.Recorder) ([]Pipeline, error) {
	out := make([]Pipeline, 0, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		pl, err := New(cfg, p, store, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, nil
}
