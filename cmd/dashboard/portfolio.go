package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/google/subcommands"

	"github.com/linchengweiii/crypto-dashboard/internal/dashboard"
	"github.com/linchengweiii/crypto-dashboard/internal/portfolio"
	"github.com/linchengweiii/crypto-dashboard/internal/render"
)

// portfolioCmd holds the flags for the 'portfolio' subcommand.
type portfolioCmd struct {
	asJSON bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display holdings valued at current prices" }
func (*portfolioCmd) Usage() string {
	return `dashboard portfolio [-json]

  Fetches a fresh snapshot and prints every holding with its current value.
  Holdings missing from the market are shown with a zero value.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "print JSON instead of a table")
}

func (c *portfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.svc.Refresh(ctx); err != nil {
		// Stale or empty prices still show the holdings.
		fmt.Fprintf(os.Stderr, "Failed to load market data. %v\n", err)
	}
	pv, err := a.svc.Portfolio(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.asJSON {
		return printJSON(pv)
	}
	printMarkdown(render.PortfolioMarkdown(pv.Valuation))
	return subcommands.ExitSuccess
}

// addCmd holds the flags for the 'add' subcommand.
type addCmd struct {
	id     string
	qty    float64
	price  float64
	name   string
	symbol string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "add a quantity of an asset to the portfolio" }
func (*addCmd) Usage() string {
	return `dashboard add -id <asset id> -qty <quantity> [-price <per unit>] [-name <name> -symbol <symbol>]

  Records a purchase. Repeated adds of the same id accumulate quantity and
  update the weighted average buy price. Name and symbol default to the
  asset's values in the current market snapshot.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "asset id, as shown by 'dashboard market'")
	f.Float64Var(&c.qty, "qty", 0, "quantity bought (must be positive)")
	f.Float64Var(&c.price, "price", math.NaN(), "purchase price per unit (optional)")
	f.StringVar(&c.name, "name", "", "asset name (defaults to the market name)")
	f.StringVar(&c.symbol, "symbol", "", "asset symbol (defaults to the market symbol)")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.name == "" || c.symbol == "" {
		if err := a.svc.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load market data. %v\n", err)
		}
	}
	res, err := a.svc.AddHolding(ctx, dashboard.AddRequest{
		ID:            c.id,
		Name:          c.name,
		Symbol:        c.symbol,
		Quantity:      c.qty,
		PurchasePrice: c.price,
	})
	return printResult(res, err)
}

// removeCmd deletes a whole holding.
type removeCmd struct{}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove a holding from the portfolio" }
func (*removeCmd) Usage() string {
	return `dashboard remove <id>

  Removes the whole holding. Removing an id that is not held succeeds.
`
}

func (*removeCmd) SetFlags(*flag.FlagSet) {}

func (*removeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "remove requires exactly one asset id")
		return subcommands.ExitUsageError
	}
	a, err := newApp(ctx, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	res, err := a.svc.RemoveHolding(ctx, f.Arg(0))
	return printResult(res, err)
}

func printResult(res portfolio.Result, err error) subcommands.ExitStatus {
	if err != nil {
		msg := res.Message
		if msg == "" {
			msg = err.Error()
		}
		fmt.Fprintf(os.Stderr, "%s (%v)\n", msg, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, res.Message)
	return subcommands.ExitSuccess
}
