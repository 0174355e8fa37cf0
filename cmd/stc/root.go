package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	scenario string
	color    string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "stc",
		Short:         "stc compiles and schedules XML test scenarios as a dependency graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.scenario, "scenario", "s", "scenario.xml", "path to the scenario XML document")
	cmd.PersistentFlags().StringVar(&flags.color, "color", "", "terminal color mode: dark, light, true, or empty to disable")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newListFailedCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newDashboardCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
