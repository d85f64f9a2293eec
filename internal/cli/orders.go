package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ibkr-terminal/internal/errors"
	"ibkr-terminal/internal/trading"
)

func newEvictCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evict <symbol> [qty] [algo...]",
		Short: "Close a position with an automatically selected order type",
		Long: `Close (fully or partially) a held position.

The symbol accepts '*' wildcards. Futures carry the expiration month in
their local symbol ("MESU2"), so evicting futures reliably uses a
wildcard like MES* instead of MES.

qty is the exact quantity to evict, -1 for the entire position, or a
percentage like '50%' to evict that portion. Extra arguments override
the default algorithm choice; add 'preview' to construct orders without
transmitting.`,
		Example: `  ibkr-terminal evict AAPL
  ibkr-terminal evict AAPL 50%
  ibkr-terminal evict MES* -1
  ibkr-terminal evict SPY 100 --delta 0.8
  ibkr-terminal evict AAPL -1 MIDPRICE preview`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, _ := cmd.Flags().GetFloat64("delta")

			qtyToken := "-1"
			if len(args) > 1 {
				qtyToken = args[1]
			}
			var algo []string
			if len(args) > 2 {
				algo = args[2:]
			}

			req, err := trading.NewEvictionRequest(args[0], qtyToken, delta, algo)
			if err != nil {
				return err
			}

			outcomes, err := app.Planner.PlanEviction(context.Background(), req)
			if errors.Is(err, errors.ErrNoMatch) {
				app.Logger.Error().Str("symbol", req.Symbol).Msg("no positions found")
				return nil
			}
			if err != nil {
				return err
			}

			for _, o := range outcomes {
				switch o.Status {
				case trading.OutcomeSubmitted:
					fmt.Printf("%-10s %s qty=%g algo=%s order=%s\n", o.Status, o.Contract, o.Quantity, o.Algo, o.OrderID)
				default:
					fmt.Printf("%-10s %s (%s)\n", o.Status, o.Contract, o.Reason)
				}
			}
			return nil
		},
	}

	cmd.Flags().Float64("delta", 0, "only evict option contracts with abs(delta) >= threshold")
	return cmd
}
