package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newValidateCmd(flags *rootFlags) *cobra.Command {
	var showParams bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile the scenario without running it, reporting any compile error",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loadAndCompile(flags.scenario)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scenario compiled: %d steps\n", len(result.Flow.Steps()))
			if showParams {
				names := make([]string, 0, len(result.Params))
				for name := range result.Params {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "  %s = %s\n", name, result.Params[name])
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showParams, "params", false, "print the resolved parameter table")
	return cmd
}
