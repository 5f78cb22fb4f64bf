package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/config"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/navstate"
	"github.com/npratt/dandiatlas/internal/selection"
	"github.com/npratt/dandiatlas/internal/view"
)

// flashDuration is how long a flash message stays in the footer.
const flashDuration = 3 * time.Second

// channelClosedMsg signals that the event channel was closed.
type channelClosedMsg struct{}

// flashExpiredMsg clears the flash message it was scheduled for.
type flashExpiredMsg struct{ text string }

// waitForEvent creates a command that waits for the next event from the channel.
// Returns channelClosedMsg if the channel is closed.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return channelClosedMsg{}
		}
		return eventMsg(event)
	}
}

// Update implements tea.Model. It handles all message types and updates the model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampCursors()
		return m, nil

	case bundleMsg:
		return m.handleBundle(msg)

	case meshChunkMsg:
		if m.engine == nil {
			return m, nil
		}
		m.meshDone += len(msg.results)
		m.engine.ReportBatch(m.meshDone, m.meshTotal, msg.results, msg.took)
		fx := m.engine.MeshesLoaded(msg.results)
		cmd := tea.Batch(meshChunkCmd(m.ctx, m.fetchers.Meshes, msg.rest, m.chunkSize), m.effectsCmd(fx))
		if m.meshDone >= m.meshTotal {
			m.meshDone, m.meshTotal = 0, 0
		}
		return m, cmd

	case titlesMsg:
		if m.engine == nil {
			return m, nil
		}
		m.engine.TitlesResolved(msg.requested, msg.titles)
		return m, titlesCmd(m.ctx, m.fetchers.Titles, msg.rest)

	case electrodesMsg:
		if m.engine == nil {
			return m, nil
		}
		m.engine.ElectrodesLoaded(msg.dandisetID, msg.set, msg.err)
		if msg.err != nil {
			return m, m.setFlash(fmt.Sprintf("electrodes for %s unavailable", msg.dandisetID))
		}
		return m, nil

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, waitForEvent(m.eventChan)

	case channelClosedMsg:
		slog.Debug("event channel closed")
		m.eventChan = nil
		return m, nil

	case flashExpiredMsg:
		if m.flash == msg.text {
			m.flash = ""
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

// busy reports whether startup or mesh loading is in progress.
func (m model) busy() bool {
	return m.loading || m.meshTotal > 0
}

func (m model) handleBundle(msg bundleMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.fatal = msg.err
		slog.Error("startup data load failed", "error", msg.err)
		return m, nil
	}

	opts := append([]app.Option{app.WithRenderer(m.scene)}, m.engineOpts...)
	m.engine = app.NewEngine(msg.bundle, opts...)
	if msg.bundle.LastUpdated != nil {
		m.lastUpdated = msg.bundle.LastUpdated.String()
	}

	fx := m.engine.Start()
	cmds := []tea.Cmd{m.effectsCmd(fx)}
	if m.initialHash != "" {
		navFx, err := m.engine.Navigate(m.initialHash)
		cmds = append(cmds, m.effectsCmd(navFx))
		if err != nil {
			cmds = append(cmds, m.setFlash(err.Error()))
		}
	}
	m.followSelection()
	cmds = append(cmds, m.spinner.Tick)
	return m, tea.Batch(cmds...)
}

// handleEvent appends an event to the recent activity list.
func (m *model) handleEvent(event events.Event) {
	text := events.Format(event)
	if text == "" {
		return
	}
	m.eventLines = append(m.eventLines, eventLine{
		Time:  event.Timestamp(),
		Text:  text,
		Style: StyleForEvent(event),
	})
	if len(m.eventLines) > maxEventLines {
		m.eventLines = m.eventLines[len(m.eventLines)-maxEventLines:]
	}
}

// setFlash shows text in the footer for flashDuration.
func (m *model) setFlash(text string) tea.Cmd {
	m.flash = text
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{text: text}
	})
}

// quit invokes the quit callback with the final view and exits.
func (m model) quit() (tea.Model, tea.Cmd) {
	if m.onQuit != nil {
		hash := m.initialHash
		if m.engine != nil {
			hash = m.engine.Hash()
		}
		m.onQuit(hash)
	}
	return m, tea.Quit
}

// apply runs the result of an engine handler: it starts the requested
// fetches, keeps the cursors on the selection and reports errors.
func (m *model) apply(fx app.Effects, err error) tea.Cmd {
	m.followSelection()
	cmd := m.effectsCmd(fx)
	if err == nil {
		return cmd
	}
	text := err.Error()
	if errors.Is(err, selection.ErrInvalidTransition) {
		text = "not available here"
	}
	return tea.Batch(cmd, m.setFlash(text))
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.engine == nil {
		if key.Matches(msg, keys.Quit) {
			return m.quit()
		}
		return m, nil
	}

	if m.gotoModal.IsOpen() {
		return m.handleGotoKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, keys.Focus):
		if m.focusedPane == FocusTree {
			m.focusedPane = FocusDetail
		} else {
			m.focusedPane = FocusTree
		}
		return m, nil

	case key.Matches(msg, keys.Search):
		m.searching = true
		m.focusedPane = FocusTree
		return m, m.search.Focus()

	case key.Matches(msg, keys.Goto):
		return m, m.gotoModal.Open(m.engine.Hash())

	case key.Matches(msg, keys.Back):
		return m, m.back()

	case key.Matches(msg, keys.Plane):
		m.scene.SetPlane(m.scene.Plane().Next())
		return m, m.setFlash("view: " + m.scene.Plane().String())

	case key.Matches(msg, keys.CopyView):
		return m, m.copyText(m.links.ViewLink(m.linkVars()), "view")

	case key.Matches(msg, keys.CopyLink):
		st := m.engine.State()
		if !st.HasDandiset() {
			return m, m.setFlash("no dandiset selected")
		}
		return m, m.copyText(m.links.DandisetLink(st.DandisetID), "dandiset link")

	case key.Matches(msg, keys.NextPage):
		m.engine.NextPage()
		m.detailCursor = 0
		return m, nil

	case key.Matches(msg, keys.PrevPage):
		m.engine.PrevPage()
		m.detailCursor = 0
		return m, nil

	case key.Matches(msg, keys.ShowAll):
		hide := false
		for _, t := range m.engine.Panel().Toggles {
			if !t.Hidden {
				hide = true
				break
			}
		}
		fx, err := m.engine.ToggleAllRegionsVisibility(hide)
		return m, m.apply(fx, err)
	}

	if m.focusedPane == FocusTree {
		return m.handleTreeKey(msg)
	}
	return m.handleDetailKey(msg)
}

func (m model) handleGotoKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	hash, submitted, cmd := m.gotoModal.Update(msg)
	if !submitted {
		return m, cmd
	}
	fx, err := m.engine.Navigate(hash)
	if errors.Is(err, navstate.ErrInvalidHash) {
		m.gotoModal.SetError(err)
		return m, nil
	}
	m.gotoModal.Close()
	return m, m.apply(fx, err)
}

func (m model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tree := m.engine.Tree()
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		tree.Search("")
		m.followSelection()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	tree.Search(m.search.Value())
	m.treeCursor, m.treeOffset = 0, 0
	return m, cmd
}

// back leaves the innermost selection: session or subject to the
// dandiset, a region filter to the whole dandiset, anything else to the
// default view.
func (m *model) back() tea.Cmd {
	if m.search.Value() != "" {
		m.search.SetValue("")
		m.engine.Tree().Search("")
		m.followSelection()
		return nil
	}
	st := m.engine.State()
	switch {
	case st.Kind == selection.KindSubject:
		fx, err := m.engine.SelectDandiset(st.DandisetID)
		return m.apply(fx, err)
	case st.Kind == selection.KindDandiset && hasFilter(st):
		fx, err := m.engine.ClearRegionFilter()
		return m.apply(fx, err)
	case st.Kind == selection.KindNone:
		return nil
	}
	return m.apply(m.engine.Clear(), nil)
}

func hasFilter(st selection.State) bool {
	_, ok := st.RegionFilter()
	return ok
}

func (m model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.engine.Tree().Rows()
	if len(rows) == 0 {
		return m, nil
	}
	m.treeCursor = min(m.treeCursor, len(rows)-1)
	row := rows[m.treeCursor]

	switch {
	case key.Matches(msg, keys.Up):
		m.moveTreeCursor(-1, len(rows))
	case key.Matches(msg, keys.Down):
		m.moveTreeCursor(1, len(rows))
	case key.Matches(msg, keys.Expand):
		if row.HasChildren {
			m.engine.Tree().Expand(row.ID)
		}
	case key.Matches(msg, keys.Collapse):
		if row.HasChildren && row.Expanded {
			m.engine.Tree().Collapse(row.ID)
			break
		}
		for i := m.treeCursor - 1; i >= 0; i-- {
			if rows[i].Depth < row.Depth {
				m.moveTreeCursor(i-m.treeCursor, len(rows))
				break
			}
		}
	case key.Matches(msg, keys.Select):
		fx, err := m.engine.ActivateRegion(row.ID)
		return m, m.apply(fx, err)
	case key.Matches(msg, keys.Toggle):
		st := m.engine.State()
		fx, err := m.engine.ToggleRegionVisibility(row.ID, !st.Hidden(row.ID))
		return m, m.apply(fx, err)
	}
	return m, nil
}

func (m *model) moveTreeCursor(delta, total int) {
	m.treeCursor = max(min(m.treeCursor+delta, total-1), 0)
	m.scrollTree()
}

// scrollTree keeps the tree cursor inside the visible window.
func (m *model) scrollTree() {
	visible := m.treeRows()
	if m.treeCursor < m.treeOffset {
		m.treeOffset = m.treeCursor
	}
	if m.treeCursor >= m.treeOffset+visible {
		m.treeOffset = m.treeCursor - visible + 1
	}
	m.treeOffset = max(m.treeOffset, 0)
}

// followSelection moves the tree cursor onto the selected structure.
func (m *model) followSelection() {
	if m.engine == nil {
		return
	}
	if id, ok := m.engine.Tree().Selected(); ok {
		for i, r := range m.engine.Tree().Rows() {
			if r.ID == id {
				m.treeCursor = i
				break
			}
		}
	}
	m.clampCursors()
}

func (m *model) clampCursors() {
	if m.engine == nil {
		return
	}
	rows := len(m.engine.Tree().Rows())
	m.treeCursor = max(min(m.treeCursor, rows-1), 0)
	m.scrollTree()
	entries := len(m.detailEntries())
	m.detailCursor = max(min(m.detailCursor, entries-1), 0)
}

// detailKind tells what a detail panel line acts on.
type detailKind int

const (
	entryDandiset detailKind = iota
	entrySubject
	entryToggle
)

// detailEntry is one selectable line of the detail panel.
type detailEntry struct {
	kind     detailKind
	dandiset view.DandisetItem
	subject  view.SubjectRow
	toggle   view.RegionToggle
}

// detailEntries lists the selectable lines of the panel in display order.
func (m model) detailEntries() []detailEntry {
	p := m.engine.Panel()
	var out []detailEntry
	if p.Mode == view.PanelRegion {
		for _, it := range p.Items {
			out = append(out, detailEntry{kind: entryDandiset, dandiset: it})
		}
		return out
	}
	for _, r := range p.Rows {
		out = append(out, detailEntry{kind: entrySubject, subject: r})
	}
	for _, t := range p.Toggles {
		out = append(out, detailEntry{kind: entryToggle, toggle: t})
	}
	return out
}

func (m model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.detailEntries()
	if len(entries) == 0 {
		return m, nil
	}
	m.detailCursor = max(min(m.detailCursor, len(entries)-1), 0)
	entry := entries[m.detailCursor]

	switch {
	case key.Matches(msg, keys.Up):
		m.detailCursor = max(m.detailCursor-1, 0)
	case key.Matches(msg, keys.Down):
		m.detailCursor = min(m.detailCursor+1, len(entries)-1)
	case key.Matches(msg, keys.Select):
		return m, m.activateEntry(entry)
	case key.Matches(msg, keys.Toggle):
		if entry.kind == entryToggle {
			fx, err := m.engine.ToggleRegionVisibility(entry.toggle.ID, !entry.toggle.Hidden)
			return m, m.apply(fx, err)
		}
	}
	return m, nil
}

// activateEntry performs the click action of a detail line.
func (m *model) activateEntry(e detailEntry) tea.Cmd {
	st := m.engine.State()
	switch e.kind {
	case entryDandiset:
		m.detailCursor = 0
		fx, err := m.engine.SelectDandiset(e.dandiset.ID)
		return m.apply(fx, err)
	case entrySubject:
		if e.subject.AllSubjects {
			if st.Kind == selection.KindSubject {
				fx, err := m.engine.SelectDandiset(st.DandisetID)
				return m.apply(fx, err)
			}
			if hasFilter(st) {
				fx, err := m.engine.ClearRegionFilter()
				return m.apply(fx, err)
			}
			return nil
		}
		fx, err := m.engine.SelectSubjectOrSession(e.subject.SubjectID, e.subject.AssetID)
		return m.apply(fx, err)
	case entryToggle:
		fx, err := m.engine.ToggleRegionVisibility(e.toggle.ID, !e.toggle.Hidden)
		return m.apply(fx, err)
	}
	return nil
}

func (m model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.engine == nil || m.gotoModal.IsOpen() {
		return m, nil
	}
	tree, scene, detail := m.panes()

	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		delta := 1
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		if tree.contains(msg.X, msg.Y) {
			m.moveTreeCursor(delta, len(m.engine.Tree().Rows()))
		}
		return m, nil
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	switch {
	case scene.inner().contains(msg.X, msg.Y):
		in := scene.inner()
		id, ok := m.scene.Pick(m.sceneViewport(), float64(msg.X-in.X)+0.5, float64(msg.Y-in.Y)+0.5)
		if !ok {
			return m, nil
		}
		fx, err := m.engine.ActivateRegion(id)
		return m, m.apply(fx, err)

	case tree.inner().contains(msg.X, msg.Y):
		m.focusedPane = FocusTree
		line := msg.Y - tree.inner().Y
		if m.searching || m.search.Value() != "" {
			line--
		}
		idx := m.treeOffset + line
		if line >= 0 && idx < len(m.engine.Tree().Rows()) {
			m.treeCursor = idx
		}

	case detail.contains(msg.X, msg.Y):
		m.focusedPane = FocusDetail
	}
	return m, nil
}

// linkVars describes the current view for link templates.
func (m model) linkVars() config.LinkVars {
	st := m.engine.State()
	return config.LinkVars{
		DandisetID: st.DandisetID,
		SubjectID:  st.SubjectID,
		AssetID:    st.SessionAssetID,
		Hash:       m.engine.Hash(),
	}
}

// copyText writes text to the clipboard and flashes the outcome.
func (m *model) copyText(text, what string) tea.Cmd {
	if text == "" {
		return m.setFlash("nothing to copy")
	}
	if m.clipboard == nil {
		return m.setFlash(what + ": " + text)
	}
	if err := m.clipboard(text); err != nil {
		slog.Warn("clipboard write failed", "error", err)
		return m.setFlash(what + ": " + text)
	}
	return m.setFlash("copied " + what)
}
