// Package cli implements uniformctl, the operator command line for cash cuts,
// stock, and backorder maintenance.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Apurer/uniform-orders-api/internal/app/api"
	platformobservability "github.com/Apurer/uniform-orders-api/internal/platform/observability"
)

// Loader wires the services a command runs against and returns their cleanup.
type Loader func(ctx context.Context) (*api.Components, func(), error)

// LoadFromEnv wires services from the same environment the API reads.
func LoadFromEnv(ctx context.Context) (*api.Components, func(), error) {
	cfg, err := api.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.PostgresDSN == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	cfg.TemporalDisabled = true
	logger := platformobservability.NewLogger()
	return api.Build(ctx, cfg, &platformobservability.Instruments{Logger: logger})
}

type app struct {
	load       Loader
	components *api.Components
	cleanup    func()
}

// NewRootCommand builds the uniformctl command tree.
func NewRootCommand(load Loader) *cobra.Command {
	a := &app{load: load}
	root := &cobra.Command{
		Use:           "uniformctl",
		Short:         "Operate the uniform orders back office",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Runnable() || a.components != nil {
				return nil
			}
			components, cleanup, err := a.load(cmd.Context())
			if err != nil {
				return fmt.Errorf("wire services: %w", err)
			}
			a.components, a.cleanup = components, cleanup
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.cleanup != nil {
				a.cleanup()
				a.cleanup = nil
			}
		},
	}
	root.AddCommand(a.cutCommand(), a.stockCommand(), a.ordersCommand())
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
