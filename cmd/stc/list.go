package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stc-project/stc/internal/statusrecord"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Replay the persisted status record of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loadAndCompile(flags.scenario)
			if err != nil {
				return err
			}
			store := statusrecord.New(statusRecordPath(result.LogDir))
			records, err := store.Records()
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}
}

func newListFailedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "listFailed",
		Short: "Replay only the FAILED entries of the persisted status record",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loadAndCompile(flags.scenario)
			if err != nil {
				return err
			}
			store := statusrecord.New(statusRecordPath(result.LogDir))
			records, err := store.Failed()
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}
}

func printRecords(cmd *cobra.Command, records []statusrecord.Event) {
	out := cmd.OutOrStdout()
	for _, rec := range records {
		ts := time.UnixMilli(rec.TimeEpochMS).Format(time.RFC3339)
		line := fmt.Sprintf("%s  %-10s  %s", ts, rec.Status, rec.StepName)
		if rec.Description != "" {
			line += "  " + rec.Description
		}
		fmt.Fprintln(out, line)
	}
}
