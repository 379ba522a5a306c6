// Package tui renders the interactive sync status view.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every view.
const (
	ColorHeader  = lipgloss.Color("39")
	ColorLabel   = lipgloss.Color("245")
	ColorValue   = lipgloss.Color("252")
	ColorOK      = lipgloss.Color("42")
	ColorWarning = lipgloss.Color("214")
	ColorError   = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("241")
	ColorBorder  = lipgloss.Color("240")
)

// Status icons.
const (
	IconOnline  = "●"
	IconOffline = "○"
	IconCheck   = "✓"
	IconWarning = "!"
)

const (
	defaultWidth = 80
	labelWidth   = 18
)
