package cliui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stc-project/stc/internal/runstatus"
)

// stepRow is the dashboard's view of a single step's live state.
type stepRow struct {
	name       string
	status     runstatus.Status
	lastOutput string
}

// Model is a bubbletea dashboard that renders the live status of every
// step in a run: a cursor-navigable list with a spinner for in-progress steps
// and the most recent output line trailing each row.
type Model struct {
	order   []string
	rows    map[string]*stepRow
	cursor  int
	spinner spinner.Model
	done    bool
	exit    int
	width   int
}

// NewModel constructs a dashboard Model seeded with the given step names
// in declaration order, all initially WAITING.
func NewModel(stepNames []string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusInProgressStyle

	rows := make(map[string]*stepRow, len(stepNames))
	for _, name := range stepNames {
		rows[name] = &stepRow{name: name, status: runstatus.Waiting}
	}
	return Model{
		order:   append([]string(nil), stepNames...),
		rows:    rows,
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.done {
				return m, tea.Quit
			}
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.order)-1 {
				m.cursor++
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepStartedMsg:
		if row, ok := m.rows[msg.Name]; ok {
			row.status = runstatus.InProgress
		}
		return m, nil

	case stepOutputMsg:
		if row, ok := m.rows[msg.Name]; ok {
			row.lastOutput = msg.Line
		}
		return m, nil

	case stepCompletedMsg:
		if row, ok := m.rows[msg.Name]; ok {
			row.status = msg.Status
		}
		return m, nil

	case runFinishedMsg:
		m.done = true
		m.exit = msg.ExitCode
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("stc run"))
	b.WriteString("\n")

	for i, name := range m.order {
		row := m.rows[name]
		indicator := statusStyle(row.status.String()).Render(fmt.Sprintf("%-10s", row.status.String()))
		if row.status == runstatus.InProgress {
			indicator = m.spinner.View() + " " + indicator
		}
		line := fmt.Sprintf("%s %s", indicator, row.name)
		if row.lastOutput != "" {
			line += outputLineStyle.Render("  " + truncate(row.lastOutput, 60))
		}
		if i == m.cursor {
			line = cursorStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	footer := "↑/↓ navigate · q quit"
	if m.done {
		footer = fmt.Sprintf("run finished, exit code %d · q quit", m.exit)
	}
	b.WriteString(footerStyle.Render(footer))
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
