package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/linchengweiii/crypto-dashboard/internal/dashboard"
	"github.com/linchengweiii/crypto-dashboard/internal/render"
)

// marketCmd holds the flags for the 'market' subcommand.
type marketCmd struct {
	query  string
	asJSON bool
}

func (*marketCmd) Name() string     { return "market" }
func (*marketCmd) Synopsis() string { return "fetch and display the market table" }
func (*marketCmd) Usage() string {
	return `dashboard market [-q <search>] [-json]

  Fetches a fresh snapshot and prints every asset whose name or symbol
  contains the search term.
`
}

func (c *marketCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "case-insensitive name or symbol filter")
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
}

func (c *marketCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.svc.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load market data. %v\n", err)
		return subcommands.ExitFailure
	}

	mv := a.svc.Market(c.query)
	if c.asJSON {
		return printJSON(mv)
	}
	printMarkdown(render.MarketMarkdown(mv.Source, mv.FetchedAt, mv.Assets))
	return subcommands.ExitSuccess
}

// coinCmd shows one asset with its price history.
type coinCmd struct{}

func (*coinCmd) Name() string     { return "coin" }
func (*coinCmd) Synopsis() string { return "display one asset and its price history" }
func (*coinCmd) Usage() string {
	return `dashboard coin <id>

  Fetches a fresh snapshot and prints details for the asset with the given id.
`
}

func (*coinCmd) SetFlags(*flag.FlagSet) {}

func (*coinCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "coin requires exactly one asset id")
		return subcommands.ExitUsageError
	}
	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.svc.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load market data. %v\n", err)
		return subcommands.ExitFailure
	}
	cv, err := a.svc.Coin(ctx, f.Arg(0))
	if errors.Is(err, dashboard.ErrAssetNotFound) {
		fmt.Fprintf(os.Stderr, "Unknown asset %q\n", f.Arg(0))
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(render.CoinMarkdown(cv.Asset, cv.History))
	return subcommands.ExitSuccess
}

func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
