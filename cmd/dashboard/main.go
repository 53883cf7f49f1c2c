package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var style = flag.String("style", "dark", "Terminal style for rendered output (dark, light, notty, ascii)")

func main() {
	completion().Complete(path.Base(os.Args[0]))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "server")

	commander.Register(&marketCmd{}, "market")
	commander.Register(&coinCmd{}, "market")

	commander.Register(&portfolioCmd{}, "portfolio")
	commander.Register(&addCmd{}, "portfolio")
	commander.Register(&removeCmd{}, "portfolio")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion
// (COMP_LINE is set by the shell; otherwise Complete returns immediately).
func completion() *complete.Command {
	marketFlags := map[string]complete.Predictor{
		"q":    predict.Something,
		"json": predict.Nothing,
	}
	addFlags := map[string]complete.Predictor{
		"id":     predict.Something,
		"qty":    predict.Something,
		"price":  predict.Something,
		"name":   predict.Something,
		"symbol": predict.Something,
	}
	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"style": predict.Set{"dark", "light", "notty", "ascii"},
		},
		Sub: map[string]*complete.Command{
			"serve":     {Flags: map[string]complete.Predictor{"addr": predict.Something}},
			"market":    {Flags: marketFlags},
			"coin":      {Args: predict.Something},
			"portfolio": {Flags: map[string]complete.Predictor{"json": predict.Nothing}},
			"add":       {Flags: addFlags},
			"remove":    {Args: predict.Something},
		},
	}
}
