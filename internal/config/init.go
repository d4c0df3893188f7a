package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

// Default returns the configuration for the two upstream documentation sets:
// the versioned lmms-eval docs and the lmms-engine docs tree.
func Default() *Config {
	cfg := &Config{
		Version:    "1",
		ContentDir: defaultContentDir,
		Remote: RemoteConfig{
			Token:     "${GITHUB_TOKEN}",
			TagSource: TagSourceAPI,
			Timeout:   defaultRemoteTimeout,
			Retry:     RetryConfig{Mode: RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second},
		},
		Pipelines: []PipelineConfig{
			{
				Name:             "lmms-eval",
				Kind:             PipelineVersioned,
				Owner:            "EvolvingLMMs-Lab",
				Repo:             "lmms-eval",
				DocsPath:         defaultDocsPath,
				DefaultBranch:    defaultBranch,
				Description:      "Evaluation framework documentation",
				VersionsManifest: "versions.json",
				ExcludedFolders:  append([]string(nil), DefaultExcludedFolders...),
				ChangelogPattern: `^lmms-eval-[\d.]+$`,
				ChangelogPrefix:  "lmms-eval-",
				Sections: []SectionConfig{
					{Name: "Getting Started", Pages: []string{"index", "quickstart"}},
					{Name: "Guides", Pages: []string{
						"model_guide", "task_guide", "run_examples", "commands", "caching", "throughput_metrics",
					}},
					{Name: "References", Pages: []string{"current_tasks", "mmmu-eval-discrepancy"}},
				},
			},
			{
				Name:          "lmms-engine",
				Kind:          PipelineTree,
				Owner:         "EvolvingLMMs-Lab",
				Repo:          "lmms-engine",
				DocsPath:      defaultDocsPath,
				DefaultBranch: defaultBranch,
				TargetDir:     "lmms-engine",
				Title:         "lmms-engine",
				Description:   "Training framework documentation",
				LinkBase:      "/docs/lmms-engine",
			},
		},
		Server: ServerConfig{
			APIKey:           "${SYNC_API_KEY}",
			WebhookPipelines: []string{"lmms-eval"},
		},
		Webhook: WebhookConfig{Secret: "${WEBHOOK_SECRET}"},
		Monitoring: MonitoringConfig{
			Metrics: MonitoringMetrics{Enabled: true},
			Logging: MonitoringLogging{Level: LogLevelInfo, Format: LogFormatText},
		},
	}
	applyDefaults(cfg)
	return cfg
}

// Init writes the default configuration to path. Existing files are only
// overwritten when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).Build()
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal default configuration").Build()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "failed to create config directory").Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write configuration file").Build()
	}
	return nil
}
