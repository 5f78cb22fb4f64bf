package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/npratt/dandiatlas/internal/view"
)

const truncateIndicator = "…"

// truncate shortens plain text to width display cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, truncateIndicator)
}

// clip shortens styled text to width display cells.
func clip(s string, width int) string {
	return lipgloss.NewStyle().MaxWidth(max(width, 1)).Render(s)
}

// regionSummary describes the dataset coverage of a region listing.
func regionSummary(p view.Panel) string {
	if p.TotalItems == 0 {
		return "No dandisets"
	}
	direct := p.Stats.DirectCount()
	files := p.Stats.TotalFileCount
	noun := "dandisets"
	if p.TotalItems == 1 {
		noun = "dandiset"
	}
	return fmt.Sprintf("%d %s (%d direct), %d files", p.TotalItems, noun, direct, files)
}

// formatDandiset renders one region listing row.
func formatDandiset(it view.DandisetItem) string {
	mark := " "
	if it.Direct {
		mark = "*"
	}
	if it.Title == "" {
		return mark + " " + it.ID
	}
	return mark + " " + it.ID + "  " + it.Title
}

// formatSubject renders one subject or session row.
func formatSubject(r view.SubjectRow) string {
	var b strings.Builder
	switch {
	case r.Session:
		b.WriteString("    ")
	case r.Group && r.Selected:
		b.WriteString("▾ ")
	case r.Group:
		b.WriteString("▸ ")
	default:
		b.WriteString("  ")
	}
	b.WriteString(r.Label)
	fmt.Fprintf(&b, " (%d)", r.Regions)
	return b.String()
}

// formatToggle renders one region visibility checkbox.
func formatToggle(t view.RegionToggle) string {
	box := "[x]"
	if t.Hidden {
		box = "[ ]"
	}
	label := t.Name
	if t.Acronym != "" {
		label = t.Acronym + " " + t.Name
	}
	return box + " " + label
}
