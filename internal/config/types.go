package config

import "strings"

// PipelineKind selects the traversal and manifest policy of a pipeline.
type PipelineKind string

const (
	// PipelineVersioned syncs the default branch plus every selected tag, walking
	// exactly one folder level below the docs root.
	PipelineVersioned PipelineKind = "versioned"
	// PipelineTree syncs the default branch only, walking the docs tree to any depth.
	PipelineTree PipelineKind = "tree"
)

// TagSource selects where versioned pipelines read tags from.
type TagSource string

const (
	TagSourceAPI TagSource = "api"
	TagSourceGit TagSource = "git"
)

// RetryBackoffMode enumerates supported retry backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// normalizeEnum maps a raw value onto one of the allowed values; ok is false when
// the value is not recognized.
func normalizeEnum[T ~string](raw T, allowed ...T) (T, bool) {
	cleaned := T(strings.ToLower(strings.TrimSpace(string(raw))))
	for _, a := range allowed {
		if cleaned == a {
			return a, true
		}
	}
	return raw, false
}

// NormalizeLogLevel returns the canonical level, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	if lvl, ok := normalizeEnum(LogLevel(raw), LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError); ok {
		return lvl
	}
	return LogLevelInfo
}

// NormalizeLogFormat returns the canonical format, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	if f, ok := normalizeEnum(LogFormat(raw), LogFormatJSON, LogFormatText); ok {
		return f
	}
	return LogFormatText
}
