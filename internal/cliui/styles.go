package cliui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("99")
	successColor = lipgloss.Color("42")
	failedColor  = lipgloss.Color("196")
	skippedColor = lipgloss.Color("226")
	mutedColor   = lipgloss.Color("245")
	accentColor  = lipgloss.Color("212")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			PaddingLeft(1).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(mutedColor).
			PaddingTop(1).
			MarginTop(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	statusWaitingStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	statusInProgressStyle = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	statusSucceededStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	statusFailedStyle     = lipgloss.NewStyle().Foreground(failedColor).Bold(true)
	statusSkippedStyle    = lipgloss.NewStyle().Foreground(skippedColor)

	outputLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(4)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "IN_PROGRESS":
		return statusInProgressStyle
	case "SUCCEEDED":
		return statusSucceededStyle
	case "FAILED":
		return statusFailedStyle
	case "SKIPPED":
		return statusSkippedStyle
	default:
		return statusWaitingStyle
	}
}
