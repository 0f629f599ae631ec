package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Args:  exactArgs(0, "config <show|set>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return &reportedError{err: usagef("usage: todo config <show|set>")}
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  exactArgs(0, "config show"),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.cfg.Encode()
				if err != nil {
					return err
				}
				ui.Hint(a.out, "# "+config.Path(a.home))
				fmt.Fprint(a.out, s)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Save one setting to the config file",
			Long:  "Keys: " + strings.Join(config.Keys(), ", "),
			Args:  exactArgs(2, "config set <key> <value>"),
			RunE: func(cmd *cobra.Command, args []string) error {
				// only the file's own values are written back, not env or flags
				cfg, err := config.Load(a.home, func(string) string { return "" })
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return &usageError{msg: err.Error()}
				}
				if err := cfg.Validate(); err != nil {
					return &usageError{msg: err.Error()}
				}
				if err := cfg.Save(a.home); err != nil {
					return err
				}
				ui.OK(a.out, fmt.Sprintf("%s = %s", args[0], args[1]))
				return nil
			},
		},
	)
	return cmd
}
