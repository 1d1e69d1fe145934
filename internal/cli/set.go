package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/brewfridge/db"
	"github.com/thatsimonsguy/brewfridge/internal/config"
	"github.com/thatsimonsguy/brewfridge/internal/store"
)

// SetOptions holds flags for the offline set command.
type SetOptions struct {
	*RootOptions
	Target      float64
	ClearTarget bool
	Enabled     bool
}

// NewSetCommand edits persisted settings while the controller is stopped.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit persisted target or actuator enable while stopped",
		Example: `  brewfridge set --target 4.5
  brewfridge set --clear-target --enabled=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(opts.ConfigPath, opts.LogLevel)

			values, err := settingsFromFlags(cmd, opts, cfg.Control)
			if err != nil {
				return err
			}
			if err := db.SetSettingsCLI(cfg.DBPath, values); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d setting(s)\n", len(values))
			return nil
		},
	}

	cmd.Flags().Float64Var(&opts.Target, "target", 0, "target temperature in °C")
	cmd.Flags().BoolVar(&opts.ClearTarget, "clear-target", false, "remove the target")
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", true, "actuator enable")
	cmd.MarkFlagsMutuallyExclusive("target", "clear-target")

	return cmd
}

func settingsFromFlags(cmd *cobra.Command, opts *SetOptions, c config.Control) (map[string]string, error) {
	values := map[string]string{}

	if cmd.Flags().Changed("target") {
		if opts.Target < c.TargetMin || opts.Target > c.TargetMax {
			return nil, fmt.Errorf("target %.2f outside [%.2f, %.2f]", opts.Target, c.TargetMin, c.TargetMax)
		}
		values[store.KeyHasTarget] = "true"
		values[store.KeyTarget] = strconv.FormatFloat(opts.Target, 'f', -1, 64)
	}
	if opts.ClearTarget {
		values[store.KeyHasTarget] = "false"
		values[store.KeyTarget] = "0"
	}
	if cmd.Flags().Changed("enabled") {
		values[store.KeyActuatorEnabled] = strconv.FormatBool(opts.Enabled)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("nothing to set: pass --target, --clear-target or --enabled")
	}
	return values, nil
}
