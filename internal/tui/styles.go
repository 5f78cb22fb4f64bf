package tui

import "github.com/charmbracelet/lipgloss"

// styles contains all lipgloss styles used by the TUI.
var styles = struct {
	// Layout styles
	Divider lipgloss.Style
	Title   lipgloss.Style
	Muted   lipgloss.Style

	// Header styles
	Mode lipgloss.Style
	Hash lipgloss.Style
	Data lipgloss.Style

	// Footer styles
	Footer lipgloss.Style
	Flash  lipgloss.Style

	// Event styles
	Selection lipgloss.Style
	Loader    lipgloss.Style
	Error     lipgloss.Style

	// Focus indicators
	FocusedBorder   lipgloss.Style
	UnfocusedBorder lipgloss.Style

	// Error screen
	Fatal lipgloss.Style
}{
	Divider: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")),

	Muted: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Mode: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("82")),

	Hash: lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")),

	Data: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Footer: lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")),

	Flash: lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")),

	Selection: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),

	Loader: lipgloss.NewStyle().
		Foreground(lipgloss.Color("177")),

	Error: lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")),

	FocusedBorder: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")), // Bright blue for focused

	UnfocusedBorder: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")), // Dimmed gray for unfocused

	Fatal: lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2),
}

// treeStyles contains styles specific to tree rows.
var treeStyles = struct {
	Row      lipgloss.Style // Default row
	Cursor   lipgloss.Style // Row under the cursor
	Selected lipgloss.Style // Selected structure
	Active   lipgloss.Style // Inside the selection
	Inactive lipgloss.Style // Outside an active selection
	Match    lipgloss.Style // Search hit
	Badge    lipgloss.Style
}{
	Row: lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")),

	Cursor: lipgloss.NewStyle().
		Background(lipgloss.Color("236")),

	Selected: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")),

	Active: lipgloss.NewStyle().
		Foreground(lipgloss.Color("255")),

	Inactive: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")),

	Match: lipgloss.NewStyle().
		Underline(true).
		Foreground(lipgloss.Color("220")),

	Badge: lipgloss.NewStyle().
		Foreground(lipgloss.Color("114")),
}
