package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds the flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "brewfridge",
		Short: "Fermentation fridge cooling controller",
		Long: `brewfridge keeps a fermentation chamber at its target temperature by
driving a thermoelectric cooler from a PID loop, and reports over MQTT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "/etc/brewfridge.yaml", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))
	cmd.AddCommand(NewInstallCommand(opts))

	return cmd
}
