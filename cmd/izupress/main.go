package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/izupress/cmd/izupress/commands"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("izupress"),
		kong.Description("Publish exported rich-text documents as static articles, blogs and Atom feeds."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := ctx.Run(&commands.Global{Logger: cli.Logger()}, &cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, cli.Logger()).HandleError(err)
}
