package main

import (
	"github.com/alecthomas/kong"

	"github.com/lepinkainen/videoenhance/cmd"
	"github.com/lepinkainen/videoenhance/config"
	"github.com/lepinkainen/videoenhance/types"
)

var Version = "dev"

type CLI struct {
	Verbose     bool             `short:"v" help:"Log debug output"`
	VersionFlag kong.VersionFlag `name:"version" help:"Print version and exit"`

	Enhance cmd.EnhanceCmd `cmd:"" help:"Enhance a video and compare it with the original"`
	Serve   cmd.ServeCmd   `cmd:"" help:"Run the web front-end"`
	Probe   cmd.ProbeCmd   `cmd:"" help:"Check that video files can be played"`
	Plans   cmd.PlansCmd   `cmd:"" help:"List the subscription plans"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("videoenhance"),
		kong.Description("Upload a video to the enhancement service and compare the result."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	logger := newLogger(cli.Verbose)

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&types.AppContext{
		Version: Version,
		Config:  cfg,
		Logger:  logger,
	})
	ctx.FatalIfErrorf(err)
}
