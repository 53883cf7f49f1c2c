package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/linchengweiii/crypto-dashboard/internal/market"
	"github.com/linchengweiii/crypto-dashboard/internal/portfolio"
)

const (
	msgNoMarket   = "No market data available."
	msgNoHoldings = "You have no holdings yet. Add some!"
	msgNoChart    = "Could not load chart data."
)

// SourceLabel is the attribution line shown under the market table.
func SourceLabel(source string) string {
	switch source {
	case "":
		return ""
	case "mock":
		return "Data Source: Mock Data"
	default:
		return "Data Source: " + source
	}
}

// MarketMarkdown renders the market table.
func MarketMarkdown(source string, fetchedAt time.Time, assets []market.Asset) string {
	var b strings.Builder
	b.WriteString("# Market\n\n")
	if len(assets) == 0 {
		b.WriteString(msgNoMarket + "\n")
		return b.String()
	}

	b.WriteString("| # | Name | Price | 24h % | Market Cap | Volume (24h) |\n")
	b.WriteString("|---:|---|---:|---:|---:|---:|\n")
	for _, a := range assets {
		fmt.Fprintf(&b, "| %d | %s (%s) | %s | %s | %s | %s |\n",
			a.Rank, cell(a.Name), cell(a.Symbol),
			Currency(a.Price), Change(a.Change24h), LargeNumber(a.MarketCap), LargeNumber(a.Volume24h))
	}
	if l := SourceLabel(source); l != "" {
		fmt.Fprintf(&b, "\n%s, updated %s\n", l, fetchedAt.Format(time.RFC1123))
	}
	return b.String()
}

// CoinMarkdown renders one asset's details and, when available, its history.
// A nil history means the chart could not be loaded.
func CoinMarkdown(a market.Asset, h *market.History) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Details\n\n", a.Name)
	fmt.Fprintf(&b, "- **Symbol:** %s\n", a.Symbol)
	fmt.Fprintf(&b, "- **Price:** %s\n", Currency(a.Price))
	fmt.Fprintf(&b, "- **24h Change:** %s (%s)\n", Change(a.Change24h), ChangeClass(a.Change24h))
	fmt.Fprintf(&b, "- **Market Cap:** %s\n", LargeNumber(a.MarketCap))
	fmt.Fprintf(&b, "- **Volume (24h):** %s\n", LargeNumber(a.Volume24h))

	b.WriteString("\n## Price History\n\n")
	if h == nil || len(h.Points) == 0 {
		b.WriteString(msgNoChart + "\n")
		return b.String()
	}
	b.WriteString("| Date | Price |\n")
	b.WriteString("|---|---:|\n")
	for i, p := range h.Points {
		fmt.Fprintf(&b, "| %s | %s |\n", cell(h.Labels[i]), Currency(p))
	}
	return b.String()
}

// PortfolioMarkdown renders the valuation table and total.
func PortfolioMarkdown(v portfolio.Valuation) string {
	var b strings.Builder
	b.WriteString("# Portfolio\n\n")
	if len(v.Rows) == 0 {
		b.WriteString(msgNoHoldings + "\n\n")
	} else {
		b.WriteString("| Name | Symbol | Quantity | Avg. Buy Price | Current Price | Current Value |\n")
		b.WriteString("|---|---|---:|---:|---:|---:|\n")
		for _, r := range v.Rows {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				cell(r.Name), cell(r.Symbol), Quantity(r.Quantity),
				Price(r.AvgBuyPrice), Price(r.CurrentPrice), Currency(r.CurrentValue))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Total Value:** %s\n", Currency(v.TotalValue))
	return b.String()
}

// OptionLabel is how a coin appears in the add-holding picker.
func OptionLabel(a market.Asset) string {
	return fmt.Sprintf("%s (%s)", a.Name, a.Symbol)
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
