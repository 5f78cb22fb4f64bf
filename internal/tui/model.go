package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/config"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/render"
)

// FocusedPane represents which pane currently has keyboard focus.
type FocusedPane int

const (
	// FocusTree means the region tree has focus (default).
	FocusTree FocusedPane = iota
	// FocusDetail means the detail panel has focus.
	FocusDetail
)

// Layout size constants.
const (
	// minWidth and minHeight are the smallest usable terminal.
	minWidth  = 60
	minHeight = 16
	// treeWidthPercent is the share of the width given to the tree pane.
	treeWidthPercent = 30
	// detailWidthPercent is the share of the width given to the detail pane.
	detailWidthPercent = 32
	// headerLines and footerLines surround the panes.
	headerLines = 1
	footerLines = 2
	// maxEventLines is the number of recent events kept for the status line.
	maxEventLines = 50
)

// eventLine represents a formatted event for display.
type eventLine struct {
	Time  time.Time
	Text  string
	Style lipgloss.Style
}

// fetchers groups the asynchronous data sources of the browser.
type fetchers struct {
	Meshes     MeshFetcher
	Titles     TitleFetcher
	Electrodes ElectrodeFetcher
}

// rect is an outer pane rectangle in terminal cells.
type rect struct {
	X, Y, W, H int
}

// inner returns the content area inside the pane border.
func (r rect) inner() rect {
	return rect{X: r.X + 1, Y: r.Y + 1, W: max(r.W-2, 1), H: max(r.H-2, 1)}
}

func (r rect) contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// model is the bubbletea model for the TUI.
type model struct {
	ctx context.Context

	// Data sources
	load       BundleLoader
	fetchers   fetchers
	chunkSize  int
	titleBatch int
	engineOpts []app.Option

	// Session
	engine      *app.Engine
	scene       *render.Scene
	initialHash string
	lastUpdated string
	links       *config.Config
	clipboard   func(string) error
	onQuit      func(hash string)

	// Event source
	eventChan  <-chan events.Event
	eventLines []eventLine

	// UI state
	width        int
	height       int
	focusedPane  FocusedPane
	treeCursor   int
	treeOffset   int
	detailCursor int
	showHelp     bool
	searching    bool

	// Components
	help      help.Model
	search    textinput.Model
	pager     paginator.Model
	spinner   spinner.Model
	progress  progress.Model
	gotoModal HashModal

	// Loading state
	loading   bool
	meshTotal int
	meshDone  int
	flash     string
	fatal     error
}

// eventMsg wraps an event for the bubbletea message system.
type eventMsg events.Event

// newModel creates a model from the TUI configuration.
func newModel(t *TUI) model {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "name or acronym"
	search.CharLimit = 64

	pager := paginator.New()
	pager.Type = paginator.Dots

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Loader

	scene := t.scene
	if scene == nil {
		scene = render.NewScene()
	}
	links := t.links
	if links == nil {
		links = config.Default()
	}
	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	return model{
		ctx:         ctx,
		load:        t.load,
		fetchers:    t.fetchers,
		chunkSize:   max(t.chunkSize, 1),
		titleBatch:  max(t.titleBatch, 1),
		engineOpts:  t.engineOpts,
		scene:       scene,
		initialHash: t.initialHash,
		links:       links,
		clipboard:   t.clipboard,
		onQuit:      t.onQuit,
		eventChan:   t.eventChan,
		help:        help.New(),
		search:      search,
		pager:       pager,
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		gotoModal:   NewHashModal(),
		loading:     true,
	}
}

// Init implements tea.Model. It starts the startup load.
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.load != nil {
		cmds = append(cmds, loadBundleCmd(m.ctx, m.load))
	}
	if m.eventChan != nil {
		cmds = append(cmds, waitForEvent(m.eventChan))
	}
	return tea.Batch(cmds...)
}

// panes splits the body between the tree, the scene and the detail panel.
func (m model) panes() (tree, scene, detail rect) {
	bodyH := max(m.height-headerLines-footerLines, 3)
	treeW := max(m.width*treeWidthPercent/100, 20)
	detailW := max(m.width*detailWidthPercent/100, 24)
	sceneW := max(m.width-treeW-detailW, 4)

	tree = rect{X: 0, Y: headerLines, W: treeW, H: bodyH}
	scene = rect{X: treeW, Y: headerLines, W: sceneW, H: bodyH}
	detail = rect{X: treeW + sceneW, Y: headerLines, W: detailW, H: bodyH}
	return tree, scene, detail
}

// treeRows is the number of tree rows that fit the pane.
func (m model) treeRows() int {
	tree, _, _ := m.panes()
	rows := tree.inner().H
	if m.searching || m.search.Value() != "" {
		rows--
	}
	return max(rows, 1)
}

// sceneViewport is the terminal-cell viewport of the scene pane.
func (m model) sceneViewport() render.Viewport {
	_, scene, _ := m.panes()
	in := scene.inner()
	return render.Cells(in.W, in.H)
}
