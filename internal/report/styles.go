package report

import "github.com/charmbracelet/lipgloss"

// Color palette - keeping it minimal and accessible.
var (
	ColorPrimary   = lipgloss.Color("39")  // Blue
	ColorSecondary = lipgloss.Color("245") // Gray
	ColorSuccess   = lipgloss.Color("34")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorMuted     = lipgloss.Color("240") // Dark gray
)

// styles groups what a summary is rendered with. The plain set carries no
// colors so output stays byte-stable in logs and CI.
type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	number  lipgloss.Style
	border  lipgloss.Style
	warning lipgloss.Style
	success lipgloss.Style
	muted   lipgloss.Style
	table   lipgloss.Border
}

func styledSet() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
		header:  lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary).Padding(0, 1),
		cell:    lipgloss.NewStyle().Padding(0, 1),
		number:  lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right),
		border:  lipgloss.NewStyle().Foreground(ColorMuted),
		warning: lipgloss.NewStyle().Foreground(ColorWarning),
		success: lipgloss.NewStyle().Foreground(ColorSuccess),
		muted:   lipgloss.NewStyle().Foreground(ColorMuted),
		table:   lipgloss.RoundedBorder(),
	}
}

func plainSet() styles {
	return styles{
		title:   lipgloss.NewStyle(),
		header:  lipgloss.NewStyle().Padding(0, 1),
		cell:    lipgloss.NewStyle().Padding(0, 1),
		number:  lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right),
		border:  lipgloss.NewStyle(),
		warning: lipgloss.NewStyle(),
		success: lipgloss.NewStyle(),
		muted:   lipgloss.NewStyle(),
		table:   lipgloss.ASCIIBorder(),
	}
}
