package cli

import (
	"github.com/spf13/cobra"

	"github.com/Apurer/uniform-orders-api/internal/app/sweeper"
)

func (a *app) ordersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Order maintenance",
	}
	var concurrency int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Fill backordered lines from the stock currently on hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sweeper.New(a.components.Orders, a.components.Returns, a.components.Stock,
				sweeper.WithLogger(a.components.Logger),
				sweeper.WithConcurrency(concurrency))
			result, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	sweep.Flags().IntVar(&concurrency, "concurrency", 4, "stock records reconciled in parallel")
	cmd.AddCommand(sweep)
	return cmd
}
