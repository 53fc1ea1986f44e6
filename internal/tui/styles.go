package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the footer styles.
type Styles struct {
	Link      lipgloss.Style
	LongLink  lipgloss.Style
	Label     lipgloss.Style
	Info      lipgloss.Style
	Warn      lipgloss.Style
	Footer    lipgloss.Style
	EmptyLink lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Link:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		LongLink:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true),
		Info:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Footer:    lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderTop(true).BorderForeground(lipgloss.Color("8")),
		EmptyLink: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
	}
}
