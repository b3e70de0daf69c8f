// Package ui renders the inspection reports printed by the heapstore binary.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette, light and dark variants.
var (
	PrimaryColor   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7C3AED"}
	SecondaryColor = lipgloss.AdaptiveColor{Light: "#EE6FF8", Dark: "#06B6D4"}
	SuccessColor   = lipgloss.AdaptiveColor{Light: "#02BA84", Dark: "#10B981"}
	WarningColor   = lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#F59E0B"}
	ErrorColor     = lipgloss.AdaptiveColor{Light: "#FF5F56", Dark: "#EF4444"}
	MutedColor     = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#94A3B8"}
	FgColor        = lipgloss.AdaptiveColor{Light: "#1E1E2E", Dark: "#CDD6F4"}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	ValueStyle = lipgloss.NewStyle().
			Foreground(FgColor)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(SecondaryColor).
				Bold(true).
				Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Foreground(FgColor).
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)
)
