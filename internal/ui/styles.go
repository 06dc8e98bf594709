package ui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title      lipgloss.Style
	StatusBar  lipgloss.Style
	StatusGood lipgloss.Style
	StatusWarn lipgloss.Style
	StatusBad  lipgloss.Style
	Pending    lipgloss.Style
	Help       lipgloss.Style
	UserMsg    lipgloss.Style
	ErrorMsg   lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		StatusBar:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		StatusGood: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		StatusWarn: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		StatusBad:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		Pending:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		Help:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		UserMsg:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		ErrorMsg:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}
