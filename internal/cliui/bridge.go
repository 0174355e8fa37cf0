package cliui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stc-project/stc/internal/runstatus"
)

// ProgramBridge adapts a running *tea.Program into a stepproc.Listener,
// forwarding every lifecycle event as a tea.Msg via Program.Send.
type ProgramBridge struct {
	Program *tea.Program
}

func (b *ProgramBridge) OnStart(stepName, command string) {
	b.Program.Send(stepStartedMsg{Name: stepName, Command: command})
}

func (b *ProgramBridge) OnOutput(stepName, line string) {
	b.Program.Send(stepOutputMsg{Name: stepName, Line: line})
}

func (b *ProgramBridge) OnCompletion(stepName string, status runstatus.Status) {
	b.Program.Send(stepCompletedMsg{Name: stepName, Status: status})
}

// NotifyFinished sends the final run outcome to the dashboard.
func (b *ProgramBridge) NotifyFinished(exitCode int) {
	b.Program.Send(runFinishedMsg{ExitCode: exitCode})
}
