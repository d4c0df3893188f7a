package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/evolvinglmms-lab/docsync/internal/config"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	// Out receives command output (converted pages, summaries). Logs go to stderr.
	Out io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"docsync.yaml" env:"DOCSYNC_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text or json); defaults to the config file setting"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Sync     SyncCmd     `cmd:"" help:"Sync upstream documentation into the content directory"`
	Serve    ServeCmd    `cmd:"" help:"Serve the webhook and manual sync triggers"`
	Versions VersionsCmd `cmd:"" help:"List the versions a versioned pipeline would sync"`
	Convert  ConvertCmd  `cmd:"" help:"Convert one RST or Markdown file to MDX on stdout"`
	Init     InitCmd     `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; set up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	configureLogging(c.Verbose, config.LogLevelInfo, config.NormalizeLogFormat(c.LogFormat))
	return nil
}

// loadConfig reads the configuration file and re-applies its logging settings
// unless the flags already decided them.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	format := cfg.Monitoring.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}
	configureLogging(c.Verbose, cfg.Monitoring.Logging.Level, format)
	return cfg, nil
}

func configureLogging(verbose bool, level config.LogLevel, format config.LogFormat) {
	var lvl slog.Level
	switch {
	case verbose:
		lvl = slog.LevelDebug
	case level == config.LogLevelDebug:
		lvl = slog.LevelDebug
	case level == config.LogLevelWarn:
		lvl = slog.LevelWarn
	case level == config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
