// Package tui provides the interactive terminal atlas browser using bubbletea.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/config"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/render"
)

// TUI is the terminal atlas browser.
type TUI struct {
	ctx         context.Context
	load        BundleLoader
	fetchers    fetchers
	scene       *render.Scene
	engineOpts  []app.Option
	links       *config.Config
	clipboard   func(string) error
	chunkSize   int
	titleBatch  int
	initialHash string
	onQuit      func(hash string)
	eventChan   <-chan events.Event

	lastHash string
}

// Option configures the TUI.
type Option func(*TUI)

// New creates a TUI that loads its startup data with load.
func New(ctx context.Context, load BundleLoader, opts ...Option) *TUI {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &TUI{
		ctx:        ctx,
		load:       load,
		chunkSize:  20,
		titleBatch: 10,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithMeshFetcher sets the region geometry source.
func WithMeshFetcher(f MeshFetcher) Option {
	return func(t *TUI) { t.fetchers.Meshes = f }
}

// WithTitleFetcher sets the dandiset title source. Without one, panels
// show bare ids.
func WithTitleFetcher(f TitleFetcher) Option {
	return func(t *TUI) { t.fetchers.Titles = f }
}

// WithElectrodeFetcher sets the electrode coordinate source.
func WithElectrodeFetcher(f ElectrodeFetcher) Option {
	return func(t *TUI) { t.fetchers.Electrodes = f }
}

// WithScene sets the scene the browser draws into.
func WithScene(s *render.Scene) Option {
	return func(t *TUI) { t.scene = s }
}

// WithEngineOptions passes options to the engine created after startup.
func WithEngineOptions(opts ...app.Option) Option {
	return func(t *TUI) { t.engineOpts = append(t.engineOpts, opts...) }
}

// WithLinks sets the configuration holding the link templates.
func WithLinks(cfg *config.Config) Option {
	return func(t *TUI) { t.links = cfg }
}

// WithClipboard sets the function that copies links.
func WithClipboard(write func(string) error) Option {
	return func(t *TUI) { t.clipboard = write }
}

// WithChunkSize sets how many meshes are fetched per chunk.
func WithChunkSize(n int) Option {
	return func(t *TUI) { t.chunkSize = n }
}

// WithTitleBatch sets how many titles are resolved per batch.
func WithTitleBatch(n int) Option {
	return func(t *TUI) { t.titleBatch = n }
}

// WithInitialHash sets the view restored after startup.
func WithInitialHash(hash string) Option {
	return func(t *TUI) { t.initialHash = hash }
}

// WithOnQuit sets the callback invoked with the final view on quit.
func WithOnQuit(fn func(hash string)) Option {
	return func(t *TUI) { t.onQuit = fn }
}

// WithEvents sets the session event stream shown in the status line.
func WithEvents(ch <-chan events.Event) Option {
	return func(t *TUI) { t.eventChan = ch }
}

// Run starts the TUI and blocks until it exits.
func (t *TUI) Run() error {
	if t.load == nil {
		return errors.New("tui: no data loader")
	}
	if !isTerminal() {
		return t.runSimple()
	}

	m := newModel(t)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(t.ctx))
	final, err := p.Run()
	if fm, ok := final.(model); ok && fm.engine != nil {
		t.lastHash = fm.engine.Hash()
	}
	if errors.Is(err, tea.ErrProgramKilled) && t.ctx != nil && t.ctx.Err() != nil {
		return nil
	}
	return err
}

// LastHash returns the view the browser ended on.
func (t *TUI) LastHash() string {
	return t.lastHash
}
