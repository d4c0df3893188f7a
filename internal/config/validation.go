package config

import (
	"fmt"
	"regexp"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func Validate(cfg *Config) error {
	if len(cfg.Pipelines) == 0 {
		return errors.ConfigError("at least one pipeline must be configured").Build()
	}

	seen := make(map[string]bool, len(cfg.Pipelines))
	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		if err := validatePipeline(p); err != nil {
			return err
		}
		if seen[p.Name] {
			return errors.ConfigError(fmt.Sprintf("duplicate pipeline name %q", p.Name)).Build()
		}
		seen[p.Name] = true
	}

	for _, name := range cfg.Server.WebhookPipelines {
		if !seen[name] {
			return errors.ConfigError(fmt.Sprintf("server.webhook_pipelines references unknown pipeline %q", name)).Build()
		}
	}

	if _, ok := normalizeEnum(cfg.Remote.TagSource, TagSourceAPI, TagSourceGit); !ok {
		return errors.ConfigError(fmt.Sprintf("invalid remote.tag_source %q (want api|git)", cfg.Remote.TagSource)).Build()
	}
	if m := cfg.Remote.Retry.Mode; m != "" {
		if _, ok := normalizeEnum(m, RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential); !ok {
			return errors.ConfigError(fmt.Sprintf("invalid remote.retry.mode %q (want fixed|linear|exponential)", m)).Build()
		}
	}
	if cfg.Remote.Timeout < 0 {
		return errors.ConfigError("remote.timeout must be >= 0").Build()
	}
	if r := cfg.Remote.Retry.MaxRetries; r != nil && *r < 0 {
		return errors.ConfigError("remote.retry.max_retries must be >= 0").Build()
	}
	return nil
}

func validatePipeline(p *PipelineConfig) error {
	if p.Name == "" {
		return errors.ConfigError("pipeline name is required").Build()
	}
	if p.Owner == "" || p.Repo == "" {
		return errors.ConfigError(fmt.Sprintf("pipeline %q: owner and repo are required", p.Name)).Build()
	}
	if _, ok := normalizeEnum(p.Kind, PipelineVersioned, PipelineTree); !ok {
		return errors.ConfigError(fmt.Sprintf("pipeline %q: invalid kind %q (want versioned|tree)", p.Name, p.Kind)).Build()
	}
	if p.Kind != PipelineVersioned {
		return nil
	}
	if _, err := regexp.Compile(p.ChangelogPattern); err != nil {
		return errors.WrapError(err, errors.CategoryConfig,
			fmt.Sprintf("pipeline %q: invalid changelog_pattern", p.Name)).Fatal().Build()
	}
	if p.Versions.Max < 0 {
		return errors.ConfigError(fmt.Sprintf("pipeline %q: versions.max must be >= 0", p.Name)).Build()
	}
	for _, s := range p.Sections {
		if s.Name == "" {
			return errors.ConfigError(fmt.Sprintf("pipeline %q: section name is required", p.Name)).Build()
		}
	}
	return nil
}
