// Package tui provides Bubble Tea views of stored run reports.
//
// The TUI is opt-in (--tui) and read-only. It shows the same report
// payloads the table, json and yaml formats render.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Outcome colors for counters and headings.
var (
	accentColor  = lipgloss.Color("#7C3AED")
	goodColor    = lipgloss.Color("#10B981")
	badColor     = lipgloss.Color("#EF4444")
	neutralColor = lipgloss.Color("#3B82F6")
	otherColor   = lipgloss.Color("#F59E0B")
	dimColor     = lipgloss.Color("#6B7280")
	textColor    = lipgloss.Color("#FFFFFF")
)

// Report header styles.
var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(dimColor).Width(12)
	ValueStyle = lipgloss.NewStyle().Foreground(textColor)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(badColor)
	HelpStyle  = lipgloss.NewStyle().Foreground(dimColor).MarginTop(1)
)

// Counter box styles. The border and value colors are set per counter.
var (
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(18).
			Align(lipgloss.Center)

	StatValueStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(dimColor).Align(lipgloss.Center)
)

// CounterColor picks a stat box color from the counter's name.
func CounterColor(name string) lipgloss.Color {
	_, outcome, _ := strings.Cut(name, "_")
	switch outcome {
	case "failed", "skipped":
		return badColor
	case "updated", "converted":
		return goodColor
	case "total", "processed", "attachments":
		return neutralColor
	default:
		return otherColor
	}
}
