package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/brewfridge/db"
	"github.com/thatsimonsguy/brewfridge/internal/config"
)

func NewStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the persisted settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(opts.ConfigPath, opts.LogLevel)
			out, err := db.DumpSettingsCLI(cfg.DBPath)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
