package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newChainsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chains <symbol...>",
		Short: "Print option chains for symbols",
		Long: `Print the available option expirations and strikes for each symbol.

Results are cached until a fixed evening boundary in the exchange
timezone; use --refresh to bypass the cache read (the fresh result is
still written back).`,
		Example: `  ibkr-terminal chains SPY
  ibkr-terminal chains SPY QQQ
  ibkr-terminal chains SPY --refresh`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")

			got := app.Chains.LookupAll(context.Background(), args, refresh)
			if len(got) == 0 {
				return fmt.Errorf("no chain data for %s", strings.Join(args, ", "))
			}

			symbols := make([]string, 0, len(got))
			for s := range got {
				symbols = append(symbols, s)
			}
			sort.Strings(symbols)

			for _, symbol := range symbols {
				chain := got[symbol]
				dates := make([]string, 0, len(chain))
				for d := range chain {
					dates = append(dates, d)
				}
				sort.Strings(dates)

				fmt.Printf("[%s] %d expirations\n", symbol, len(dates))
				for _, date := range dates {
					strikes := chain[date]
					fmt.Printf("  %s  %d strikes: %s\n", date, len(strikes), formatStrikes(strikes, 20))
				}
			}
			return nil
		},
	}

	cmd.Flags().Bool("refresh", false, "bypass the cache read and fetch fresh data")
	return cmd
}

// formatStrikes renders up to max strikes, eliding the rest.
func formatStrikes(strikes []float64, max int) string {
	shown := strikes
	if len(shown) > max {
		shown = shown[:max]
	}
	parts := make([]string, len(shown))
	for i, s := range shown {
		parts[i] = fmt.Sprintf("%.2f", s)
	}
	out := strings.Join(parts, ", ")
	if len(strikes) > max {
		out += fmt.Sprintf(" ... (+%d more)", len(strikes)-max)
	}
	return out
}
