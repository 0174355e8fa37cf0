// Package cliui renders a running coordinator to a terminal: a plain
// always-on line printer, and an optional bubbletea live dashboard.
package cliui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/stc-project/stc/internal/runstatus"
)

// ConsoleListener prints one colored line per lifecycle event to Out. It
// is the default, always-on progress reporter used when the dashboard is
// not requested.
type ConsoleListener struct {
	Out   io.Writer
	Color bool

	mu sync.Mutex
}

// NewConsoleListener constructs a ConsoleListener writing to out. Color
// enables ANSI styling; callers typically derive this from runconfig.
func NewConsoleListener(out io.Writer, color bool) *ConsoleListener {
	return &ConsoleListener{Out: out, Color: color}
}

func (c *ConsoleListener) OnStart(stepName, command string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, c.render(statusInProgressStyle, "RUNNING", stepName)+" "+command)
}

func (c *ConsoleListener) OnOutput(stepName, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := stepName + " | "
	if c.Color {
		prefix = outputLineStyle.Render(prefix)
	}
	fmt.Fprintln(c.Out, prefix+line)
}

func (c *ConsoleListener) OnCompletion(stepName string, status runstatus.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, c.render(statusStyle(status.String()), status.String(), stepName))
}

func (c *ConsoleListener) render(style lipgloss.Style, label, stepName string) string {
	text := fmt.Sprintf("[%s] %s", label, stepName)
	if !c.Color {
		return text
	}
	return style.Render(text)
}
