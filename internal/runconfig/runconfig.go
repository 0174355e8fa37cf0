// Package runconfig parses the stcColor/stcTitle/stcDumpLogs/stcHaltOnError
// environment variables recognized by the CLI front-end into a validated
// struct.
package runconfig

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config is the environment-derived run configuration.
type Config struct {
	// Color is "dark", "light", "true", or "" (coloring disabled).
	Color string `validate:"omitempty,oneof=dark light true"`
	// Title prefixes the terminal title, if the front-end sets one.
	Title string
	// DumpLogs, when true, dumps every FAILED step's log file to stdout
	// after the run completes.
	DumpLogs bool
	// HaltOnError, when true, skips remaining WAITING steps after the
	// first FAILED step.
	HaltOnError bool
}

// FromEnviron reads stcColor, stcTitle, stcDumpLogs and stcHaltOnError
// from the process environment and validates the result.
func FromEnviron() (Config, error) {
	cfg := Config{
		Color:       os.Getenv("stcColor"),
		Title:       os.Getenv("stcTitle"),
		DumpLogs:    isTrue(os.Getenv("stcDumpLogs")),
		HaltOnError: isTrue(os.Getenv("stcHaltOnError")),
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func isTrue(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}
