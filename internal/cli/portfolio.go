package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ibkr-terminal/internal/models"
	"ibkr-terminal/internal/trading"
)

func newPositionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "positions [symbol...]",
		Aliases: []string{"ls"},
		Short:   "Print all positions and detected spreads",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			positions, err := app.Broker.Portfolio(ctx)
			if err != nil {
				return err
			}

			filter := make(map[string]bool, len(args))
			for _, a := range args {
				filter[strings.ToUpper(a)] = true
			}

			var shown []models.Position
			for _, pos := range positions {
				if len(filter) > 0 && !filter[pos.Contract.Symbol] {
					continue
				}
				shown = append(shown, pos)
				fmt.Printf("%-24s %10g  cost=%.2f  value=%.2f  pnl=%.2f\n",
					pos.Contract, pos.Quantity, pos.AvgCost, pos.MarketValue, pos.UnrealizedPNL)
			}
			if len(shown) == 0 {
				fmt.Println("no positions")
				return nil
			}

			for _, group := range trading.DetectSpreads(shown) {
				fmt.Printf("\n[%s %s] potential spread: %d legs, net=%g, closing qty=%g\n",
					group.Underlying, group.Expiration, len(group.Members), group.NetQuantity, group.ClosingQuantity)
				if price, ok := trading.SpreadClosePrice(app.Feed, group); ok {
					fmt.Printf("  potential closing side: qty=%g @ %.2f\n", group.ClosingQuantity, price)
				}
			}
			return nil
		},
	}
	return cmd
}
