package cliui

import "github.com/stc-project/stc/internal/runstatus"

// stepStartedMsg is sent when a step begins executing.
type stepStartedMsg struct {
	Name    string
	Command string
}

// stepOutputMsg carries one line of a step's merged stdout/stderr.
type stepOutputMsg struct {
	Name string
	Line string
}

// stepCompletedMsg is sent when a step reaches a terminal status.
type stepCompletedMsg struct {
	Name   string
	Status runstatus.Status
}

// runFinishedMsg is sent once the coordinator run completes.
type runFinishedMsg struct {
	ExitCode int
}
