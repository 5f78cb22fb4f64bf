package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/datastore"
	"github.com/npratt/dandiatlas/internal/electrode"
	"github.com/npratt/dandiatlas/internal/mesh"
)

// MeshFetcher retrieves region geometry. *mesh.Loader implements it.
type MeshFetcher interface {
	Fetch(ctx context.Context, ids []int) ([]mesh.Result, error)
}

// TitleFetcher resolves dandiset titles. *datastore.TitleClient implements it.
type TitleFetcher interface {
	FetchTitles(ctx context.Context, ids []string) (map[string]string, error)
}

// ElectrodeFetcher loads electrode coordinates. *datastore.ElectrodeCache
// implements it.
type ElectrodeFetcher interface {
	Load(ctx context.Context, dandisetID string) (electrode.Set, error)
}

// BundleLoader loads the startup documents.
type BundleLoader func(ctx context.Context) (*datastore.Bundle, error)

// bundleMsg carries the outcome of the startup load.
type bundleMsg struct {
	bundle *datastore.Bundle
	err    error
}

// meshChunkMsg carries one loaded chunk and the ids still queued behind it.
type meshChunkMsg struct {
	results []mesh.Result
	rest    []int
	took    time.Duration
}

// titlesMsg carries one resolved title batch and the batches queued behind it.
type titlesMsg struct {
	requested []string
	titles    map[string]string
	rest      [][]string
}

// electrodesMsg carries the coordinates of one dandiset.
type electrodesMsg struct {
	dandisetID string
	set        electrode.Set
	err        error
}

func loadBundleCmd(ctx context.Context, load BundleLoader) tea.Cmd {
	return func() tea.Msg {
		b, err := load(ctx)
		return bundleMsg{bundle: b, err: err}
	}
}

// meshChunkCmd fetches the first chunk of ids. Chunks run one after
// another so partial results reach the scene early.
func meshChunkCmd(ctx context.Context, f MeshFetcher, ids []int, chunk int) tea.Cmd {
	if f == nil || len(ids) == 0 {
		return nil
	}
	n := min(chunk, len(ids))
	head, rest := ids[:n], ids[n:]
	return func() tea.Msg {
		start := time.Now()
		res, _ := f.Fetch(ctx, head)
		return meshChunkMsg{results: res, rest: rest, took: time.Since(start)}
	}
}

// titlesCmd resolves the first batch. Failures are dropped by the fetcher.
func titlesCmd(ctx context.Context, f TitleFetcher, batches [][]string) tea.Cmd {
	if f == nil || len(batches) == 0 {
		return nil
	}
	head, rest := batches[0], batches[1:]
	return func() tea.Msg {
		titles, _ := f.FetchTitles(ctx, head)
		return titlesMsg{requested: head, titles: titles, rest: rest}
	}
}

func electrodesCmd(ctx context.Context, f ElectrodeFetcher, dandisetID string) tea.Cmd {
	if f == nil || dandisetID == "" {
		return nil
	}
	return func() tea.Msg {
		set, err := f.Load(ctx, dandisetID)
		return electrodesMsg{dandisetID: dandisetID, set: set, err: err}
	}
}

// effectsCmd starts every fetch an engine handler asked for.
func (m *model) effectsCmd(fx app.Effects) tea.Cmd {
	var cmds []tea.Cmd
	if len(fx.Meshes) > 0 && m.fetchers.Meshes != nil {
		m.meshTotal += len(fx.Meshes)
		cmds = append(cmds, meshChunkCmd(m.ctx, m.fetchers.Meshes, fx.Meshes, m.chunkSize))
	}
	if len(fx.Titles) > 0 && m.fetchers.Titles != nil {
		cmds = append(cmds, titlesCmd(m.ctx, m.fetchers.Titles, datastore.Batches(fx.Titles, m.titleBatch)))
	}
	if fx.Electrodes != "" {
		if m.fetchers.Electrodes == nil {
			m.engine.ElectrodesLoaded(fx.Electrodes, nil, datastore.ErrMetadataFetch)
		} else {
			cmds = append(cmds, electrodesCmd(m.ctx, m.fetchers.Electrodes, fx.Electrodes))
		}
	}
	return tea.Batch(cmds...)
}
