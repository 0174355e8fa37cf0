package main

import (
	"fmt"
	"path/filepath"

	"github.com/stc-project/stc/internal/compiler"
	"github.com/stc-project/stc/internal/runconfig"
	"github.com/stc-project/stc/internal/scenario"
	"github.com/stc-project/stc/internal/stclog"
)

// loadAndCompile loads and elaborates the scenario document at path.
func loadAndCompile(path string) (*compiler.Result, error) {
	doc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(doc, compiler.Options{})
}

// resolveRunConfig layers environment configuration under the flags
// explicitly passed on the command line, flags winning on conflict.
func resolveRunConfig(flags *rootFlags) (runconfig.Config, error) {
	cfg, err := runconfig.FromEnviron()
	if err != nil {
		return runconfig.Config{}, fmt.Errorf("reading run configuration: %w", err)
	}
	if flags.color != "" {
		cfg.Color = flags.color
	}
	return cfg, nil
}

func newLogger(flags *rootFlags) stclog.Logger {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	return stclog.New(stclog.Options{Level: level, Human: true, Service: "stc"})
}

func colorEnabled(cfg runconfig.Config) bool {
	return cfg.Color != ""
}

// statusRecordPath returns the path to the status record file a compiled
// scenario writes under its log directory.
func statusRecordPath(logDir string) string {
	return filepath.Join(logDir, "status.jsonl")
}
