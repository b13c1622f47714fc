package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cutmapper "github.com/Apurer/uniform-orders-api/internal/domains/settlement/adapters/http/mapper"
	"github.com/Apurer/uniform-orders-api/internal/domains/settlement/application/types"
)

const dateLayout = "2006-01-02"

func (a *app) cutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cut",
		Short: "Open, close, and inspect cash cuts",
	}

	var from, to string
	open := &cobra.Command{
		Use:   "open",
		Short: "Open a cut over every settled order of a period not yet in a cut",
		Example: `  uniformctl cut open --from 2026-03-01 --to 2026-03-31
  uniformctl cut open --from 2026-03-01T08:00:00Z --to 2026-03-01T20:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := parseBound(from, false)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := parseBound(to, true)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			detail, err := a.components.Cuts.OpenCut(cmd.Context(), types.OpenCutInput{PeriodStart: start, PeriodEnd: end})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cutmapper.FromDomainCutDetail(detail))
		},
	}
	open.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD or RFC3339)")
	open.Flags().StringVar(&to, "to", "", "period end, inclusive (YYYY-MM-DD or RFC3339)")
	_ = open.MarkFlagRequired("from")
	_ = open.MarkFlagRequired("to")

	closeCmd := &cobra.Command{
		Use:   "close <cutId>",
		Short: "Close an active cut",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid cut id %q: %w", args[0], err)
			}
			cut, err := a.components.Cuts.CloseCut(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cutmapper.FromDomainCut(cut))
		},
	}

	show := &cobra.Command{
		Use:   "show <cutId>",
		Short: "Print a cut with its order snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid cut id %q: %w", args[0], err)
			}
			detail, err := a.components.Cuts.GetCutDetail(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cutmapper.FromDomainCutDetail(detail))
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cuts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cuts, err := a.components.Cuts.ListCuts(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), cutmapper.FromDomainCuts(cuts))
		},
	}

	cmd.AddCommand(open, closeCmd, show, list)
	return cmd
}

// parseBound reads a date or an RFC3339 timestamp. A bare date used as the end
// of a period covers the whole day.
func parseBound(raw string, end bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", raw)
	}
	if end {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}
