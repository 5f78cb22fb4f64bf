// Package app is the synchronization core of the atlas browser. Every
// handler computes the new selection state, re-runs the projectors and
// applies the mesh plan, and reports which fetches the caller must start.
// Handlers must be called from one goroutine.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/datastore"
	"github.com/npratt/dandiatlas/internal/electrode"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/mesh"
	"github.com/npratt/dandiatlas/internal/navstate"
	"github.com/npratt/dandiatlas/internal/selection"
	"github.com/npratt/dandiatlas/internal/view"
)

// Renderer receives geometry and mesh plans.
type Renderer interface {
	AddMesh(id int, g *mesh.Geometry)
	Apply(plan view.MeshPlan)
	SetElectrodes(pts []electrode.Point)
}

// Effects are the fetches a handler asks the caller to start.
type Effects struct {
	// Meshes are structure ids already marked in flight.
	Meshes []int
	// Electrodes names a dandiset whose coordinates are not loaded yet.
	Electrodes string
	// Titles are dandiset ids whose titles have not been requested.
	Titles []string
}

// Empty reports whether no fetch is requested.
func (e Effects) Empty() bool {
	return len(e.Meshes) == 0 && e.Electrodes == "" && len(e.Titles) == 0
}

// Engine owns the selection controller and every projection of it.
type Engine struct {
	data     *datastore.Bundle
	ctrl     *selection.Controller
	registry *mesh.Registry
	tree     *view.Tree

	renderer Renderer
	router   *events.Router
	logger   *slog.Logger

	materials map[int]mesh.Material
	titles    map[string]string
	requested map[string]bool

	electrodes        map[string]electrode.Set
	electrodesPending map[string]bool

	pageSize int
	page     int

	scope selection.Scope
	plan  view.MeshPlan
	panel view.Panel
}

// Option configures an Engine.
type Option func(*Engine)

// WithRenderer sets the scene the mesh plan is applied to.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// WithRouter sets the session event router.
func WithRouter(r *events.Router) Option {
	return func(e *Engine) { e.router = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPageSize sets the region listing page size.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// NewEngine returns an engine in the default view over data.
func NewEngine(data *datastore.Bundle, opts ...Option) *Engine {
	e := &Engine{
		data:              data,
		ctrl:              selection.NewController(data.Index, data.Catalog),
		tree:              view.NewTree(data.Index, data.Stats),
		logger:            slog.Default(),
		materials:         make(map[int]mesh.Material),
		titles:            make(map[string]string),
		requested:         make(map[string]bool),
		electrodes:        make(map[string]electrode.Set),
		electrodesPending: make(map[string]bool),
		pageSize:          view.DefaultPageSize,
	}
	e.registry = mesh.NewRegistry(func(id int) mesh.Material {
		return mesh.BaseMaterial(id, data.Stats, data.Avail, data.Index)
	})
	for _, opt := range opts {
		opt(e)
	}
	e.project()
	return e
}

// State returns the current selection state.
func (e *Engine) State() selection.State { return e.ctrl.State() }

// Scope returns the scope of the current state.
func (e *Engine) Scope() selection.Scope { return e.scope }

// Plan returns the mesh plan last applied.
func (e *Engine) Plan() view.MeshPlan { return e.plan }

// Panel returns the current detail panel.
func (e *Engine) Panel() view.Panel { return e.panel }

// Tree returns the region tree.
func (e *Engine) Tree() *view.Tree { return e.tree }

// Registry returns the mesh registry.
func (e *Engine) Registry() *mesh.Registry { return e.registry }

// Data returns the startup bundle.
func (e *Engine) Data() *datastore.Bundle { return e.data }

// Hash returns the navigation hash of the current state.
func (e *Engine) Hash() string { return navstate.Encode(e.ctrl.State()) }

// Title returns the resolved title of a dandiset.
func (e *Engine) Title(id string) (string, bool) {
	t, ok := e.titles[id]
	return t, ok
}

// Start returns the startup fetches: the default view's meshes and every
// dandiset title.
func (e *Engine) Start() Effects {
	fx := e.effects()
	fx.Titles = e.takeTitles(e.data.Catalog.IDs())
	return fx
}

// Clear returns to the default view.
func (e *Engine) Clear() Effects {
	return e.mutate("clear", func() error {
		e.ctrl.Clear()
		return nil
	})
}

// SelectRegion isolates the subtree of id.
func (e *Engine) SelectRegion(id int) (Effects, error) {
	return e.mutateErr("select_region", func() error { return e.ctrl.SelectRegion(id) })
}

// ActivateRegion is the tree and scene click path: inside a dandiset it
// narrows the listing to regions the dandiset covers, otherwise it selects
// the region.
func (e *Engine) ActivateRegion(id int) (Effects, error) {
	st := e.ctrl.State()
	if st.Kind == selection.KindDandiset && e.data.Index.DescendantsOf(id).Intersects(e.dandisetRegions()) {
		return e.FilterDandisetByRegion(id)
	}
	return e.SelectRegion(id)
}

func (e *Engine) dandisetRegions() atlas.IDSet {
	out := atlas.NewIDSet()
	for _, s := range e.ctrl.Subjects() {
		out.AddAll(s.Regions)
	}
	return out
}

// SelectDandiset selects a dandiset and lists its subjects.
func (e *Engine) SelectDandiset(id string) (Effects, error) {
	return e.mutateErr("select_dandiset", func() error { return e.ctrl.SelectDandiset(id) })
}

// FilterDandisetByRegion narrows the selected dandiset to subjects tagging
// the subtree of id.
func (e *Engine) FilterDandisetByRegion(id int) (Effects, error) {
	return e.mutateErr("filter_region", func() error { return e.ctrl.FilterDandisetByRegion(id) })
}

// ClearRegionFilter removes the dandiset region filter.
func (e *Engine) ClearRegionFilter() (Effects, error) {
	return e.mutateErr("clear_filter", e.ctrl.ClearRegionFilter)
}

// SelectSubjectOrSession selects a subject, or one session of it when
// sessionAssetID is set.
func (e *Engine) SelectSubjectOrSession(subjectID, sessionAssetID string) (Effects, error) {
	return e.mutateErr("select_subject", func() error {
		return e.ctrl.SelectSubjectOrSession(subjectID, sessionAssetID)
	})
}

// ToggleRegionVisibility hides or shows one displayed region.
func (e *Engine) ToggleRegionVisibility(id int, hidden bool) (Effects, error) {
	return e.mutateErr("toggle_region", func() error { return e.ctrl.ToggleRegionVisibility(id, hidden) })
}

// ToggleAllRegionsVisibility hides or shows every displayed region.
func (e *Engine) ToggleAllRegionsVisibility(hidden bool) (Effects, error) {
	return e.mutateErr("toggle_all", func() error { return e.ctrl.ToggleAllRegionsVisibility(hidden) })
}

// Navigate applies a navigation hash. An invalid hash leaves the state
// untouched; a stale one may leave a partial selection and still report
// the error.
func (e *Engine) Navigate(hash string) (Effects, error) {
	target, err := navstate.Parse(hash)
	if err != nil {
		e.emit(&events.NavigationEvent{BaseEvent: events.NewAppEvent(events.EventNavigation), Hash: hash, Error: err.Error()})
		return Effects{}, err
	}

	before := e.ctrl.State()
	applyErr := target.Apply(e.ctrl)
	after := e.ctrl.State()

	nav := &events.NavigationEvent{BaseEvent: events.NewAppEvent(events.EventNavigation), Hash: navstate.Encode(after)}
	if applyErr != nil {
		nav.Hash = hash
		nav.Error = applyErr.Error()
	}
	e.emit(nav)

	if after.Version == before.Version {
		return Effects{}, applyErr
	}
	e.page = 0
	e.project()
	e.emitChange("navigate", before, after)
	return e.effects(), applyErr
}

// SetPage moves the region listing to page n (zero-based, clamped).
func (e *Engine) SetPage(n int) {
	e.page = max(n, 0)
	e.projectPanel()
	e.page = e.panel.Page
}

// NextPage advances the region listing.
func (e *Engine) NextPage() { e.SetPage(e.page + 1) }

// PrevPage goes back one page of the region listing.
func (e *Engine) PrevPage() { e.SetPage(e.page - 1) }

// MeshesLoaded records fetch results and re-projects against the state
// current now, not the one that issued the fetch. Failed meshes may make
// an ancestor fallback necessary, which is returned as a new fetch.
func (e *Engine) MeshesLoaded(results []mesh.Result) Effects {
	for _, r := range results {
		entry, ok := e.registry.Complete(r.ID, r.Geometry, r.Err)
		if !ok {
			if r.Err == nil && r.Geometry != nil {
				continue
			}
			if err := e.registry.Err(r.ID); err != nil {
				e.logger.Debug("mesh unavailable", "structure", r.ID, "error", err)
				e.emit(&events.MeshFailedEvent{
					BaseEvent:   events.NewLoaderEvent(events.EventMeshFailed),
					StructureID: r.ID,
					Error:       err.Error(),
				})
			}
			continue
		}
		e.materials[r.ID] = entry.Base
		if e.renderer != nil {
			e.renderer.AddMesh(r.ID, entry.Geometry)
		}
	}
	e.applyMeshes()
	return Effects{Meshes: e.registry.Begin(view.NeededMeshes(e.meshInputs()))}
}

// ReportBatch emits progress for one completed chunk.
func (e *Engine) ReportBatch(done, total int, chunk []mesh.Result, took time.Duration) {
	ev := &events.MeshBatchEvent{
		BaseEvent:  events.NewLoaderEvent(events.EventMeshBatch),
		Requested:  len(chunk),
		Done:       done,
		Total:      total,
		DurationMs: took.Milliseconds(),
	}
	for _, r := range chunk {
		if r.Err != nil {
			ev.Failed++
		} else {
			ev.Loaded++
		}
	}
	e.emit(ev)
}

// TitlesResolved stores a batch of titles and refreshes the panel.
func (e *Engine) TitlesResolved(requested []string, titles map[string]string) {
	for id, t := range titles {
		e.titles[id] = t
	}
	e.emit(&events.TitlesResolvedEvent{
		BaseEvent: events.NewLoaderEvent(events.EventTitlesResolved),
		Requested: len(requested),
		Resolved:  len(titles),
	})
	e.projectPanel()
}

// ElectrodesLoaded stores the coordinates of a dandiset and refreshes the
// overlay when that dandiset is still selected. Failures are dropped and
// may be retried on the next selection.
func (e *Engine) ElectrodesLoaded(dandisetID string, set electrode.Set, err error) {
	delete(e.electrodesPending, dandisetID)
	if err != nil {
		e.logger.Debug("electrodes unavailable", "dandiset", dandisetID, "error", err)
		return
	}
	e.electrodes[dandisetID] = set
	shown := e.applyElectrodes()
	e.emit(&events.ElectrodesLoadedEvent{
		BaseEvent:  events.NewLoaderEvent(events.EventElectrodesLoaded),
		DandisetID: dandisetID,
		Points:     set.Len(),
		Shown:      shown,
	})
}

// Electrodes returns the electrode points for the current selection.
func (e *Engine) Electrodes() []electrode.Point {
	st := e.ctrl.State()
	set, ok := e.electrodes[st.DandisetID]
	if !st.HasDandiset() || !ok {
		return nil
	}
	return set.Filter(e.displayedAssets())
}

// displayedAssets returns the asset ids whose electrodes are shown. Nil
// means every asset of the dandiset.
func (e *Engine) displayedAssets() []string {
	st := e.ctrl.State()
	switch st.Kind {
	case selection.KindSubject:
		assets := e.scope.Assets
		if assets == nil && len(e.scope.Subjects) > 0 {
			assets = e.scope.Subjects[0].Assets
		}
		ids := make([]string, 0, len(assets))
		for _, a := range assets {
			ids = append(ids, a.AssetID)
		}
		return ids
	case selection.KindDandiset:
		if _, filtered := st.RegionFilter(); !filtered {
			return nil
		}
		ids := []string{}
		for _, s := range e.scope.Subjects {
			for _, a := range s.Assets {
				ids = append(ids, a.AssetID)
			}
		}
		sort.Strings(ids)
		return ids
	}
	return nil
}

func (e *Engine) mutate(op string, fn func() error) Effects {
	fx, _ := e.mutateErr(op, fn)
	return fx
}

func (e *Engine) mutateErr(op string, fn func() error) (Effects, error) {
	before := e.ctrl.State()
	if err := fn(); err != nil {
		if !errors.Is(err, selection.ErrInvalidTransition) {
			e.logger.Debug("selection rejected", "operation", op, "error", err)
		}
		return Effects{}, fmt.Errorf("%s: %w", op, err)
	}
	after := e.ctrl.State()
	if before.Kind != after.Kind || before.DandisetID != after.DandisetID || before.SubjectID != after.SubjectID {
		e.page = 0
	}
	if r, ok := after.Region(); ok {
		if br, bok := before.Region(); !bok || br != r {
			e.page = 0
		}
	}
	e.project()
	e.emitChange(op, before, after)
	return e.effects(), nil
}

func (e *Engine) emitChange(op string, before, after selection.State) {
	e.emit(&events.SelectionChangedEvent{
		BaseEvent: events.NewAppEvent(events.EventSelectionChanged),
		Operation: op,
		From:      before.Kind.String(),
		To:        after.Kind.String(),
		Version:   after.Version,
		Hash:      navstate.Encode(after),
	})
}

func (e *Engine) emit(ev events.Event) {
	e.router.Emit(ev)
}

// effects collects the fetches the current state still needs.
func (e *Engine) effects() Effects {
	fx := Effects{Meshes: e.registry.Begin(view.NeededMeshes(e.meshInputs()))}
	st := e.ctrl.State()
	if st.HasDandiset() && e.data.HasElectrodes(st.DandisetID) {
		_, loaded := e.electrodes[st.DandisetID]
		if !loaded && !e.electrodesPending[st.DandisetID] {
			e.electrodesPending[st.DandisetID] = true
			fx.Electrodes = st.DandisetID
		}
	}
	return fx
}

func (e *Engine) takeTitles(ids []string) []string {
	var out []string
	for _, id := range ids {
		if e.requested[id] {
			continue
		}
		e.requested[id] = true
		out = append(out, id)
	}
	return out
}

func (e *Engine) meshInputs() view.MeshInputs {
	return view.MeshInputs{
		State:  e.ctrl.State(),
		Scope:  e.scope,
		Index:  e.data.Index,
		Avail:  e.data.Avail,
		Meshes: e.materials,
		Status: e.registry.Status,
	}
}

// project re-runs every projector for the current state.
func (e *Engine) project() {
	e.scope = e.ctrl.Scope()
	e.tree.Sync(e.ctrl.State(), e.scope, e.ctrl.Counts())
	e.applyMeshes()
	e.applyElectrodes()
	e.projectPanel()
}

func (e *Engine) applyMeshes() {
	e.plan = view.ProjectMeshes(e.meshInputs())
	for id, a := range e.plan.Appearances {
		e.registry.SetApplied(id, a)
	}
	if e.renderer != nil {
		e.renderer.Apply(e.plan)
	}
}

func (e *Engine) applyElectrodes() int {
	pts := e.Electrodes()
	if e.renderer != nil {
		e.renderer.SetElectrodes(pts)
	}
	return len(pts)
}

func (e *Engine) projectPanel() {
	e.panel = view.ProjectPanel(view.PanelInputs{
		State:    e.ctrl.State(),
		Scope:    e.scope,
		Index:    e.data.Index,
		Stats:    e.data.Stats,
		RootID:   e.data.Avail.RootID,
		Subjects: e.ctrl.Subjects(),
		Titles:   e.titles,
		Page:     e.page,
		PageSize: e.pageSize,
	})
}
