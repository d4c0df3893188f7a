package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

// Config is the root docsync configuration.
type Config struct {
	Version    string           `yaml:"version"`
	ContentDir string           `yaml:"content_dir"`
	Remote     RemoteConfig     `yaml:"remote"`
	Pipelines  []PipelineConfig `yaml:"pipelines"`
	Server     ServerConfig     `yaml:"server"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	History    HistoryConfig    `yaml:"history"`
	Notify     NotifyConfig     `yaml:"notify"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// RemoteConfig describes how to reach the source-control host.
type RemoteConfig struct {
	APIURL            string        `yaml:"api_url"`
	RawURL            string        `yaml:"raw_url"`
	CloneURL          string        `yaml:"clone_url"` // base for git ls-remote, e.g. https://github.com
	Token             string        `yaml:"token"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 disables client-side limiting
	Timeout           time.Duration `yaml:"timeout"`             // per HTTP exchange, body included; unset means 30s
	TagSource         TagSource     `yaml:"tag_source"`
	Retry             RetryConfig   `yaml:"retry"`
}

// RetryConfig controls retries of transport-level failures when talking to the
// remote host. Responses with a non-2xx status are never retried.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`        // fixed|linear|exponential
	Initial    time.Duration    `yaml:"initial,omitempty"`     // base delay
	Max        time.Duration    `yaml:"max,omitempty"`         // cap for growth
	MaxRetries *int             `yaml:"max_retries,omitempty"` // nil keeps the default; 0 disables
}

// PipelineConfig describes one synced documentation set.
type PipelineConfig struct {
	Name          string       `yaml:"name"`
	Kind          PipelineKind `yaml:"kind"`
	Owner         string       `yaml:"owner"`
	Repo          string       `yaml:"repo"`
	DocsPath      string       `yaml:"docs_path"`
	DefaultBranch string       `yaml:"default_branch"`
	TargetDir     string       `yaml:"target_dir"` // relative to content_dir
	Title         string       `yaml:"title"`
	Description   string       `yaml:"description"`
	LinkBase      string       `yaml:"link_base"` // toctree link prefix

	// Versioned pipelines only.
	VersionsManifest string           `yaml:"versions_manifest"`
	ExcludedFolders  []string         `yaml:"excluded_folders"`
	ChangelogPattern string           `yaml:"changelog_pattern"`
	ChangelogPrefix  string           `yaml:"changelog_prefix"`
	Sections         []SectionConfig  `yaml:"sections"`
	Versions         VersionSelection `yaml:"versions"`
}

// SectionConfig is a hand-authored sidebar section.
type SectionConfig struct {
	Name  string   `yaml:"name"`
	Pages []string `yaml:"pages"`
}

// VersionSelection controls which tags become synced versions.
type VersionSelection struct {
	// LatestPatchOnly keeps only the newest patch per (major, minor). Off by default,
	// so every matching tag is synced.
	LatestPatchOnly bool `yaml:"latest_patch_only"`
	// Max caps the number of tagged versions (0 = unlimited).
	Max int `yaml:"max"`
}

// ServerConfig configures the HTTP trigger surface of `docsync serve`.
type ServerConfig struct {
	Addr             string   `yaml:"addr"`
	APIKey           string   `yaml:"api_key"`
	SyncPath         string   `yaml:"sync_path"`
	WebhookPipelines []string `yaml:"webhook_pipelines"` // empty = all pipelines
}

// WebhookConfig holds the shared secret for inbound webhook signatures.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// ScheduleConfig enables periodic syncs in serve mode.
type ScheduleConfig struct {
	Cron string `yaml:"cron"` // empty disables
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Path string `yaml:"path"` // empty disables; ":memory:" for ephemeral
}

// NotifyConfig configures re-render notifications.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"` // empty disables
	Subject string `yaml:"subject"`
}

// MonitoringConfig represents monitoring and observability configuration.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration.
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringLogging represents logging configuration.
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads a configuration file, expanding ${VAR} references from the environment
// (after loading .env files), then applies defaults and validates.
func Load(configPath string) (*Config, error) {
	if loaded, err := LoadEnvFiles(); err != nil {
		slog.Warn("Failed to load environment file", "error", err)
	} else if len(loaded) > 0 {
		slog.Debug("Loaded environment files", "paths", loaded)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").Fatal().Build()
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse config file").Fatal().Build()
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Pipeline returns the named pipeline configuration.
func (c *Config) Pipeline(name string) (*PipelineConfig, bool) {
	for i := range c.Pipelines {
		if c.Pipelines[i].Name == name {
			return &c.Pipelines[i], true
		}
	}
	return nil, false
}

// PipelineNames returns configured pipeline names in order.
func (c *Config) PipelineNames() []string {
	names := make([]string, 0, len(c.Pipelines))
	for _, p := range c.Pipelines {
		names = append(names, p.Name)
	}
	return names
}
