package cli

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Apurer/uniform-orders-api/internal/domains/orders/application/types"
	stockmapper "github.com/Apurer/uniform-orders-api/internal/domains/stock/adapters/http/mapper"
)

type restockReport struct {
	Record         stockmapper.StockRecord       `json:"record"`
	Reconciliation *types.ReconcilePendingResult `json:"reconciliation,omitempty"`
}

func (a *app) stockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Restock garments and review low stock",
	}

	var quantity int
	restock := &cobra.Command{
		Use:     "restock <garmentId> <sizeId>",
		Short:   "Add units on hand and fill waiting backorders",
		Example: "  uniformctl stock restock 12 3 --quantity 40",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			garmentID, err := parseID("garmentId", args[0])
			if err != nil {
				return err
			}
			sizeID, err := parseID("sizeId", args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if _, err := a.components.Stock.Restock(ctx, garmentID, sizeID, quantity); err != nil {
				return err
			}
			report := restockReport{}
			reconciled, err := a.components.Orders.ReconcilePending(ctx, types.ReconcilePendingInput{
				GarmentID:    garmentID,
				SizeID:       sizeID,
				RestockedQty: quantity,
			})
			if err != nil {
				a.components.Logger.WarnContext(ctx, "restock applied but backorders were not reconciled",
					slog.Int64("stock.garment_id", garmentID), slog.Int64("stock.size_id", sizeID), slog.String("error", err.Error()))
			} else {
				report.Reconciliation = reconciled
			}
			rec, err := a.components.Stock.Read(ctx, garmentID, sizeID)
			if err != nil {
				return err
			}
			report.Record = stockmapper.FromDomainRecord(rec)
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	restock.Flags().IntVarP(&quantity, "quantity", "q", 0, "units received")
	_ = restock.MarkFlagRequired("quantity")

	low := &cobra.Command{
		Use:   "low",
		Short: "List active records at or below their reorder threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := a.components.Stock.ListBelowThreshold(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stockmapper.FromDomainRecords(records))
		},
	}

	cmd.AddCommand(restock, low)
	return cmd
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}
