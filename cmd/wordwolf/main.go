package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command
type Globals struct {
	Config string `kong:"short='c',default='wordwolf.hcl',type='path',help='Game config file (HCL); defaults apply when missing'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Play    PlayCmd          `cmd:"" default:"1" help:"Play a game in the terminal"`
	Serve   ServeCmd         `cmd:"" help:"Host games over WebSocket"`
	Eval    EvalCmd          `cmd:"" help:"Score how well the bots spot the wolf"`
	Words   WordsCmd         `cmd:"" help:"List the word pair catalogue"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("wordwolf"),
		kong.Description("Word Wolf against language model bots"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Bind(&cli.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
