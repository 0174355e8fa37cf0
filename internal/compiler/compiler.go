// Package compiler elaborates a parsed scenario document into an
// immutable flow.ProcessFlow: substituting ${name} parameters, expanding
// imports, instantiating steps and groups, wiring dependency edges
// (including group-inherited requires), and checking the result for
// cycles.
package compiler

import (
	"path/filepath"
	"strings"

	"github.com/stc-project/stc/internal/flow"
	"github.com/stc-project/stc/internal/scenario"
)

// Options configures a single Compile call.
type Options struct {
	// BaseDir resolves relative <import file="…"/> paths. Defaults to
	// the directory containing the scenario document.
	BaseDir string
}

// Result is the compiler's output: the compiled flow, the log directory
// the coordinator should create and write per-step logs into, and the
// resolved ${name} parameter table used to build it.
type Result struct {
	Flow   *flow.ProcessFlow
	LogDir string
	Params map[string]string
}

// Compile elaborates doc into a Result, or returns the first fatal
// compile error encountered (unresolved reference, undefined parameter,
// import cycle, or a dependency cycle in the resulting graph).
func Compile(doc *scenario.Document, opts Options) (*Result, error) {
	baseDir := opts.BaseDir
	if baseDir == "" {
		baseDir = filepath.Dir(doc.Path)
	}

	elements, params, err := expandScenario(doc, baseDir)
	if err != nil {
		return nil, err
	}

	pf, err := buildFlow(elements)
	if err != nil {
		return nil, err
	}

	name := doc.Root.AttrDefault("name", "scenario")
	return &Result{Flow: pf, LogDir: logDirFor(baseDir, name), Params: params}, nil
}

// logDirFor derives a per-scenario log directory: one file per step,
// named "<stepName>.log", will live under the returned path. Creation is
// the coordinator's responsibility, not the compiler's.
func logDirFor(baseDir, scenarioName string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(scenarioName)
	if safe == "" {
		safe = "scenario"
	}
	return filepath.Join(baseDir, ".stc-logs", safe)
}
