package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stc-project/stc/internal/cliui"
	"github.com/stc-project/stc/internal/compiler"
	"github.com/stc-project/stc/internal/coordinator"
	"github.com/stc-project/stc/internal/flow"
)

func newDashboardCmd(flags *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Run the scenario behind a live terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, flags, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.from, "from", nil, "glob patterns selecting the range-run start steps")
	cmd.Flags().StringSliceVar(&opts.to, "to", nil, "glob patterns selecting the range-run end steps")
	cmd.Flags().BoolVar(&opts.haltOnError, "halt-on-error", false, "skip remaining WAITING steps after the first FAILED step")

	return cmd
}

func runDashboard(cmd *cobra.Command, flags *rootFlags, opts runOptions) error {
	result, err := loadAndCompile(flags.scenario)
	if err != nil {
		return err
	}
	runCfg, err := resolveRunConfig(flags)
	if err != nil {
		return err
	}

	c := coordinator.New(coordinator.Config{
		Flow:        result.Flow,
		LogDir:      result.LogDir,
		HaltOnError: opts.haltOnError || runCfg.HaltOnError,
	})
	if len(opts.from) > 0 || len(opts.to) > 0 {
		if err := c.ResetRange(opts.from, opts.to); err != nil {
			return fmt.Errorf("resolving --from/--to range: %w", err)
		}
	}

	model := cliui.NewModel(stepNames(result))
	program := tea.NewProgram(model)
	bridge := &cliui.ProgramBridge{Program: program}
	c.AddListener(bridge)

	c.Start(cmd.Context())
	go func() {
		code := c.WaitFor()
		bridge.NotifyFinished(code)
	}()

	_, err = program.Run()
	return err
}

// stepNames returns the atomic step names (excluding groups) in
// declaration order, the set the dashboard renders one row per.
func stepNames(result *compiler.Result) []string {
	var out []string
	for _, name := range result.Flow.Steps() {
		if result.Flow.Node(name).Kind == flow.KindStep {
			out = append(out, name)
		}
	}
	return out
}
