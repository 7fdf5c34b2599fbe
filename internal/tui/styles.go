package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	table   lipgloss.Style
	muted   lipgloss.Style
	help    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A")),
		table:   lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
}
