package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/shelfkeeper/cmd/shelfkeeper/commands"
	ferrors "git.home.luguber.info/inful/shelfkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/shelfkeeper/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	parser := kong.Parse(&cli,
		kong.Name("shelfkeeper"),
		kong.Description("Offline maintenance for tracked bookshelves and owner books."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run(&cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
