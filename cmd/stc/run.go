package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stc-project/stc/internal/cliui"
	"github.com/stc-project/stc/internal/coordinator"
)

type runOptions struct {
	from        []string
	to          []string
	haltOnError bool
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile the scenario and execute it",
		Long: `run compiles the scenario document into a dependency graph and
schedules it to completion. --from/--to restrict execution to the
subgraph reachable between the matched steps; every other step is
recorded SKIPPED without affecting its own dependents' eligibility.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, flags, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.from, "from", nil, "glob patterns selecting the range-run start steps (default: all roots)")
	cmd.Flags().StringSliceVar(&opts.to, "to", nil, "glob patterns selecting the range-run end steps (default: all leaves)")
	cmd.Flags().BoolVar(&opts.haltOnError, "halt-on-error", false, "skip remaining WAITING steps after the first FAILED step")

	return cmd
}

func runScenario(cmd *cobra.Command, flags *rootFlags, opts runOptions) error {
	result, err := loadAndCompile(flags.scenario)
	if err != nil {
		return err
	}

	runCfg, err := resolveRunConfig(flags)
	if err != nil {
		return err
	}
	log := newLogger(flags)

	c := coordinator.New(coordinator.Config{
		Flow:        result.Flow,
		LogDir:      result.LogDir,
		HaltOnError: opts.haltOnError || runCfg.HaltOnError,
	})
	c.AddListener(cliui.NewConsoleListener(cmd.OutOrStdout(), colorEnabled(runCfg)))

	if len(opts.from) > 0 || len(opts.to) > 0 {
		if err := c.ResetRange(opts.from, opts.to); err != nil {
			return fmt.Errorf("resolving --from/--to range: %w", err)
		}
	}

	log.WithComponent("cli").Info("starting run")
	c.Start(cmd.Context())
	exitCode := c.WaitFor()

	if runCfg.DumpLogs {
		dumpFailedLogs(cmd, c, result.LogDir)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func dumpFailedLogs(cmd *cobra.Command, c *coordinator.Coordinator, logDir string) {
	records, err := c.GetRecords()
	if err != nil {
		return
	}
	for _, rec := range records {
		if rec.Status != "FAILED" {
			continue
		}
		path := filepath.Join(logDir, rec.StepName+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "--- %s ---\n%s\n", rec.StepName, data)
	}
}
