package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styleSet struct {
	trackLabel lipgloss.Style
	plain      lipgloss.Style
	past       lipgloss.Style
	current    lipgloss.Style
	selected   lipgloss.Style
	shadow     lipgloss.Style
	statusBar  lipgloss.Style
	statusNote lipgloss.Style
	searchBox  lipgloss.Style
	empty      lipgloss.Style
}

// newStyles builds the highlight palette, tuned for the terminal's
// background so the current-word highlight stays readable on both light
// and dark schemes.
func newStyles() styleSet {
	dark := termenv.HasDarkBackground()

	pastColor := lipgloss.Color("243")
	shadowColor := lipgloss.Color("66")
	if !dark {
		pastColor = lipgloss.Color("248")
		shadowColor = lipgloss.Color("109")
	}

	return styleSet{
		trackLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true).Width(16),
		plain:      lipgloss.NewStyle(),
		past:       lipgloss.NewStyle().Foreground(pastColor),
		current: lipgloss.NewStyle().
			Background(lipgloss.Color("226")).
			Foreground(lipgloss.Color("0")).
			Bold(true),
		selected: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("255")).
			Bold(true),
		shadow:     lipgloss.NewStyle().Foreground(shadowColor).Underline(true),
		statusBar:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("236")),
		statusNote: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		searchBox:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		empty:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
	}
}
