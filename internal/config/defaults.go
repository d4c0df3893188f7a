package config

import (
	"regexp"
	"strings"
	"time"
)

const (
	defaultAPIURL      = "https://api.github.com"
	defaultRawURL      = "https://raw.githubusercontent.com"
	defaultCloneURL    = "https://github.com"
	defaultUserAgent   = "docsync/1.0"
	defaultBranch      = "main"
	defaultDocsPath    = "docs"
	defaultContentDir  = "content/docs"
	defaultSyncPath    = "/api/sync-docs"
	defaultServerAddr  = ":8080"
	defaultNATSSubject = "docs.rerender"
	defaultMetricsPath = "/metrics"

	defaultRemoteTimeout = 30 * time.Second
)

// DefaultExcludedFolders are upstream subfolders never synced as sections.
var DefaultExcludedFolders = []string{"images", "i18n", ".github"}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

// RemoteDefaultApplier handles remote host defaults.
type RemoteDefaultApplier struct{}

func (RemoteDefaultApplier) Domain() string { return "remote" }

func (RemoteDefaultApplier) ApplyDefaults(cfg *Config) {
	r := &cfg.Remote
	if r.APIURL == "" {
		r.APIURL = defaultAPIURL
	}
	if r.RawURL == "" {
		r.RawURL = defaultRawURL
	}
	if r.CloneURL == "" {
		r.CloneURL = defaultCloneURL
	}
	if r.UserAgent == "" {
		r.UserAgent = defaultUserAgent
	}
	if r.RequestsPerSecond < 0 {
		r.RequestsPerSecond = 0
	}
	if r.Timeout == 0 {
		r.Timeout = defaultRemoteTimeout
	}
	if ts, ok := normalizeEnum(r.TagSource, TagSourceAPI, TagSourceGit); ok {
		r.TagSource = ts
	} else if r.TagSource == "" {
		r.TagSource = TagSourceAPI
	}
	if m, ok := normalizeEnum(r.Retry.Mode, RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential); ok {
		r.Retry.Mode = m
	}
}

// PipelineDefaultApplier handles per-pipeline defaults.
type PipelineDefaultApplier struct{}

func (PipelineDefaultApplier) Domain() string { return "pipelines" }

func (PipelineDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.ContentDir == "" {
		cfg.ContentDir = defaultContentDir
	}
	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		if k, ok := normalizeEnum(p.Kind, PipelineVersioned, PipelineTree); ok {
			p.Kind = k
		} else if p.Kind == "" {
			p.Kind = PipelineVersioned
		}
		if p.DocsPath == "" {
			p.DocsPath = defaultDocsPath
		}
		p.DocsPath = strings.Trim(p.DocsPath, "/")
		if p.DefaultBranch == "" {
			p.DefaultBranch = defaultBranch
		}
		if p.Title == "" {
			p.Title = p.Repo
		}
		if p.LinkBase == "" {
			p.LinkBase = "/docs/" + p.Repo
		}
		p.LinkBase = strings.TrimRight(p.LinkBase, "/")
		if p.Kind == PipelineVersioned {
			if p.VersionsManifest == "" {
				p.VersionsManifest = "versions.json"
			}
			if p.ExcludedFolders == nil {
				p.ExcludedFolders = append([]string(nil), DefaultExcludedFolders...)
			}
			if p.ChangelogPattern == "" && p.Repo != "" {
				p.ChangelogPattern = `^` + regexp.QuoteMeta(p.Repo) + `-[\d.]+$`
			}
			if p.ChangelogPrefix == "" && p.Repo != "" {
				p.ChangelogPrefix = p.Repo + "-"
			}
		}
	}
}

// ServerDefaultApplier handles serve-mode defaults.
type ServerDefaultApplier struct{}

func (ServerDefaultApplier) Domain() string { return "server" }

func (ServerDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.Server.SyncPath == "" {
		cfg.Server.SyncPath = defaultSyncPath
	}
	if !strings.HasPrefix(cfg.Server.SyncPath, "/") {
		cfg.Server.SyncPath = "/" + cfg.Server.SyncPath
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = defaultNATSSubject
	}
}

// MonitoringDefaultApplier handles metrics and logging defaults.
type MonitoringDefaultApplier struct{}

func (MonitoringDefaultApplier) Domain() string { return "monitoring" }

func (MonitoringDefaultApplier) ApplyDefaults(cfg *Config) {
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = defaultMetricsPath
	}
	cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(cfg.Monitoring.Logging.Level))
	cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(cfg.Monitoring.Logging.Format))
}

var defaultAppliers = []DefaultApplier{
	RemoteDefaultApplier{},
	PipelineDefaultApplier{},
	ServerDefaultApplier{},
	MonitoringDefaultApplier{},
}

func applyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}
