package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/evolvinglmms-lab/docsync/cmd/docsync/commands"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("docsync"),
		kong.Description("Sync upstream repository documentation into an MDX content tree."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	globals := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	if err := ctx.Run(globals, &cli); err != nil {
		adapter := errors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		os.Exit(adapter.Report(os.Stderr, err))
	}
}
