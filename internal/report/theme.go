package report

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mockscope/internal/analytics"
)

// Color palette
var (
	Primary = lipgloss.Color("#8B5CF6") // Vivid Purple
	Success = lipgloss.Color("#22C55E") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Accent  = lipgloss.Color("#F97316") // Orange
	Error   = lipgloss.Color("#F43F5E") // Rose
	Info    = lipgloss.Color("#14B8A6") // Teal
	Text    = lipgloss.Color("#F8FAFC") // White
	TextDim = lipgloss.Color("#94A3B8") // Slate
	Border  = lipgloss.Color("#334155") // Slate
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Heading = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text).
		MarginTop(1)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)

	Cell = lipgloss.NewStyle().
		PaddingRight(2)
)

// statusColors maps each topic status to its display color.
var statusColors = map[analytics.Status]lipgloss.Style{
	analytics.StatusMastered:      lipgloss.NewStyle().Foreground(Success).Bold(true),
	analytics.StatusSpeedIssue:    lipgloss.NewStyle().Foreground(Warning),
	analytics.StatusGuessing:      lipgloss.NewStyle().Foreground(Accent),
	analytics.StatusConceptualGap: lipgloss.NewStyle().Foreground(Error).Bold(true),
	analytics.StatusAccuracyIssue: lipgloss.NewStyle().Foreground(Warning),
	analytics.StatusNeedsPractice: lipgloss.NewStyle().Foreground(Info),
}

var actionColors = map[analytics.ActionType]lipgloss.Style{
	analytics.ActionFocus:  lipgloss.NewStyle().Foreground(Error).Bold(true),
	analytics.ActionPause:  lipgloss.NewStyle().Foreground(Warning).Bold(true),
	analytics.ActionRevise: lipgloss.NewStyle().Foreground(Success).Bold(true),
}
