package tui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/render"
	"github.com/npratt/dandiatlas/internal/view"
)

// View implements tea.Model. It renders the current state to a string.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}
	if m.fatal != nil {
		return m.renderFatal()
	}
	if m.engine == nil {
		msg := m.spinner.View() + " Loading atlas data..."
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
	}

	tree, scene, detail := m.panes()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.boxed(FocusTree, tree, m.renderTree(tree.inner())),
		styles.UnfocusedBorder.Width(scene.W-2).Height(scene.H-2).Render(m.renderScene()),
		m.boxed(FocusDetail, detail, m.renderDetail(detail.inner())),
	)
	screen := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())

	if m.gotoModal.IsOpen() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.gotoModal.View(m.width),
			lipgloss.WithWhitespaceChars(" "))
	}
	if m.showHelp {
		m.help.ShowAll = true
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			styles.FocusedBorder.Padding(1, 2).Render(m.help.View(keys)))
	}
	return screen
}

// boxed wraps content in a border that shows whether pane has focus.
func (m model) boxed(pane FocusedPane, r rect, content string) string {
	return m.containerStyleForFocus(pane).Width(r.W - 2).Height(r.H - 2).Render(content)
}

// containerStyleForFocus returns the appropriate container style based on
// whether the specified pane is currently focused.
func (m model) containerStyleForFocus(pane FocusedPane) lipgloss.Style {
	if m.focusedPane == pane {
		return styles.FocusedBorder
	}
	return styles.UnfocusedBorder
}

// renderTooSmall renders a minimal message for terminals that are too small.
func (m model) renderTooSmall() string {
	return fmt.Sprintf("Terminal too small (%dx%d). Need %dx%d minimum.",
		m.width, m.height, minWidth, minHeight)
}

// renderFatal renders the blocking startup error screen.
func (m model) renderFatal() string {
	msg := styles.Title.Render("Atlas data could not be loaded") + "\n\n" +
		styles.Error.Render(m.fatal.Error()) + "\n\n" +
		styles.Muted.Render("q: quit")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		styles.Fatal.Width(min(m.width-4, 80)).Render(msg))
}

// renderHeader renders the mode, the navigation hash and the data date.
func (m model) renderHeader() string {
	st := m.engine.State()
	left := styles.Mode.Render(strings.ToUpper(st.Kind.String())) + " " +
		styles.Hash.Render(events.HashLabel(m.engine.Hash()))
	right := ""
	if m.lastUpdated != "" {
		right = styles.Data.Render("data " + m.lastUpdated)
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return clip(left+strings.Repeat(" ", gap)+right, m.width)
}

// renderTree renders the visible window of the region tree.
func (m model) renderTree(in rect) string {
	var lines []string
	if m.searching || m.search.Value() != "" {
		m.search.Width = max(in.W-3, 1)
		line := m.search.View()
		if q := m.engine.Tree().Query(); q != "" {
			line += styles.Muted.Render(fmt.Sprintf(" %d", m.engine.Tree().Matches()))
		}
		lines = append(lines, line)
	}

	rows := m.engine.Tree().Rows()
	visible := m.treeRows()
	end := min(m.treeOffset+visible, len(rows))
	for i := m.treeOffset; i < end; i++ {
		lines = append(lines, m.renderTreeRow(rows[i], in.W, i == m.treeCursor && m.focusedPane == FocusTree))
	}
	for len(lines) < in.H {
		lines = append(lines, "")
	}
	return strings.Join(lines[:in.H], "\n")
}

// renderTreeRow renders one indented row with its expander and badge.
func (m model) renderTreeRow(r view.Row, width int, cursor bool) string {
	marker := "  "
	if r.HasChildren {
		marker = "▸ "
		if r.Expanded {
			marker = "▾ "
		}
	}
	label := r.Name
	if r.Acronym != "" {
		label = r.Acronym + " " + r.Name
	}
	badge := ""
	if r.Badge != "" {
		badge = " " + r.Badge
	}
	indent := strings.Repeat(" ", min(r.Depth, width/3))
	text := truncate(indent+marker+label, max(width-runewidth.StringWidth(badge), 1))
	text = runewidth.FillRight(text, max(width-runewidth.StringWidth(badge), 0))

	style := treeStyles.Row
	switch {
	case r.Selected:
		style = treeStyles.Selected
	case r.Match:
		style = treeStyles.Match
	case r.Inactive:
		style = treeStyles.Inactive
	case r.Active:
		style = treeStyles.Active
	}
	if cursor {
		style = style.Inherit(treeStyles.Cursor)
	}
	return style.Render(text) + treeStyles.Badge.Render(badge)
}

// renderScene renders the scene raster as colored terminal cells.
func (m model) renderScene() string {
	vp := m.sceneViewport()
	r := m.scene.Raster(vp)
	bg := m.scene.Background()

	var b strings.Builder
	for y := 0; y < r.H; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		var runStyle lipgloss.Style
		runKey := ""
		for x := 0; x < r.W; x++ {
			glyph, fg, back := cellLook(r.At(x, y), bg)
			k := glyph + hexColor(fg) + hexColor(back)
			if k != runKey && run.Len() > 0 {
				b.WriteString(runStyle.Render(run.String()))
				run.Reset()
			}
			if k != runKey {
				runKey = k
				runStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color(hexColor(fg))).
					Background(lipgloss.Color(hexColor(back)))
			}
			run.WriteString(glyph)
		}
		if run.Len() > 0 {
			b.WriteString(runStyle.Render(run.String()))
		}
	}
	return b.String()
}

// cellLook picks the glyph and colors of one raster cell.
func cellLook(c render.Cell, bg color.RGBA) (glyph string, fg, back color.RGBA) {
	switch {
	case c.Electrode:
		back = bg
		if c.Filled {
			back = c.Color
		}
		return "•", render.ElectrodeColor, back
	case c.Filled:
		return " ", c.Color, c.Color
	case c.Outline:
		return "·", c.Color, bg
	}
	return " ", bg, bg
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// renderDetail renders the detail panel for the current selection.
func (m model) renderDetail(in rect) string {
	p := m.engine.Panel()
	var lines []string
	lines = append(lines, styles.Title.Render(truncate(p.Heading, in.W)))
	if p.Subtitle != "" {
		lines = append(lines, styles.Muted.Render(truncate(p.Subtitle, in.W)))
	}
	lines = append(lines, styles.Divider.Render(strings.Repeat("─", in.W)))

	entries := m.detailEntries()
	cursor := -1
	if m.focusedPane == FocusDetail {
		cursor = m.detailCursor
	}
	cursorLine := 0

	if p.Mode == view.PanelRegion {
		lines = append(lines, styles.Muted.Render(truncate(regionSummary(p), in.W)))
		for i, e := range entries {
			if i == cursor {
				cursorLine = len(lines)
			}
			lines = append(lines, renderEntry(formatDandiset(e.dandiset), in.W, i == cursor, false))
		}
		if p.Pages > 1 {
			m.pager.SetTotalPages(p.Pages)
			m.pager.Page = p.Page
			lines = append(lines, "", m.pager.View()+styles.Muted.Render(fmt.Sprintf("  %d/%d", p.Page+1, p.Pages)))
		}
	} else {
		toggleHeader := false
		for i, e := range entries {
			if e.kind == entryToggle && !toggleHeader {
				lines = append(lines, "", styles.Muted.Render("Regions"))
				toggleHeader = true
			}
			if i == cursor {
				cursorLine = len(lines)
			}
			switch e.kind {
			case entrySubject:
				lines = append(lines, renderEntry(formatSubject(e.subject), in.W, i == cursor, e.subject.Selected))
			case entryToggle:
				lines = append(lines, renderEntry(formatToggle(e.toggle), in.W, i == cursor, false))
			}
		}
	}

	if len(lines) > in.H {
		first := max(0, min(cursorLine-in.H+1, len(lines)-in.H))
		lines = lines[first : first+in.H]
	}
	return strings.Join(lines, "\n")
}

func renderEntry(text string, width int, cursor, selected bool) string {
	style := treeStyles.Row
	if selected {
		style = treeStyles.Selected
	}
	if cursor {
		style = style.Inherit(treeStyles.Cursor)
	}
	return style.Render(runewidth.FillRight(truncate(text, width), width))
}

// renderFooter renders the status line and the key help.
func (m model) renderFooter() string {
	var status string
	switch {
	case m.flash != "":
		status = styles.Flash.Render(m.flash)
	case m.meshTotal > 0:
		frac := float64(m.meshDone) / float64(m.meshTotal)
		m.progress.Width = max(min(m.width/4, 30), 10)
		status = m.spinner.View() + " " + m.progress.ViewAs(frac) +
			styles.Loader.Render(fmt.Sprintf(" meshes %d/%d", m.meshDone, m.meshTotal))
	case len(m.eventLines) > 0:
		last := m.eventLines[len(m.eventLines)-1]
		status = styles.Muted.Render(last.Time.Format("15:04:05")+" ") + last.Style.Render(last.Text)
	}
	m.help.ShowAll = false
	return clip(status, m.width) + "\n" + styles.Footer.Render(m.help.View(keys))
}

// StyleForEvent returns the appropriate style for an event type.
func StyleForEvent(event events.Event) lipgloss.Style {
	switch event.(type) {
	case *events.SelectionChangedEvent, *events.NavigationEvent:
		if e, ok := event.(*events.NavigationEvent); ok && e.Error != "" {
			return styles.Error
		}
		return styles.Selection
	case *events.MeshBatchEvent, *events.TitlesResolvedEvent, *events.ElectrodesLoadedEvent:
		return styles.Loader
	case *events.MeshFailedEvent, *events.ErrorEvent, *events.ParseErrorEvent:
		return styles.Error
	default:
		return styles.Muted
	}
}
