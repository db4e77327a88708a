package main

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#8B9D83")
	muted  = lipgloss.Color("#8A8F98")
	warn   = lipgloss.Color("#B8786E")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	coachStyle = lipgloss.NewStyle().Foreground(accent).PaddingLeft(2)
	youStyle   = lipgloss.NewStyle().Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(muted).Italic(true)
	alertStyle = lipgloss.NewStyle().Foreground(warn).Bold(true).
			Border(lipgloss.RoundedBorder()).BorderForeground(warn).Padding(0, 1)
	entryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1).Width(72)
	labelStyle = lipgloss.NewStyle().Foreground(muted).Width(18)
)
