package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/brewfridge/internal/config"
	"github.com/thatsimonsguy/brewfridge/system/startup"
)

func NewInstallCommand(opts *RootOptions) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Write the boot pin script and systemd units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(opts.ConfigPath, opts.LogLevel)
			if err := startup.Install(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s, %s, %s\n",
				cfg.Install.BootScript, cfg.Install.PinsUnit, cfg.Install.MainUnit)

			if apply {
				return startup.RunBootScript(cfg.Install.BootScript)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "run the boot pin script now")
	return cmd
}
