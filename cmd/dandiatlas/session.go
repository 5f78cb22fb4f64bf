package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/config"
	"github.com/npratt/dandiatlas/internal/datastore"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/mesh"
	"github.com/npratt/dandiatlas/internal/render"
)

// session holds the data pipeline shared by the commands.
type session struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *datastore.Store
	meshes     *mesh.Loader
	electrodes *datastore.ElectrodeCache
	titles     *datastore.TitleClient // nil when title lookup is disabled
}

// newSession wires the stores for cfg.Data.Source.
func newSession(cfg *config.Config, logger *slog.Logger) *session {
	src := datastore.NewSource(cfg.Data.Source, cfg.Data.Timeout)
	store := datastore.NewStore(src, logger)
	s := &session{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		meshes:     mesh.NewLoader(src, mesh.WithConcurrency(cfg.Mesh.Concurrency), mesh.WithLogger(logger)),
		electrodes: datastore.NewElectrodeCache(store),
	}
	if cfg.Titles.Enabled {
		s.titles = datastore.NewTitleClient(
			datastore.WithTitleEndpoint(cfg.Titles.Endpoint),
			datastore.WithHTTPClient(&http.Client{Timeout: cfg.Titles.Timeout}),
			datastore.WithBatchSize(cfg.Titles.BatchSize),
			datastore.WithTitleLogger(logger),
		)
	}
	return s
}

// loadBundle fetches the startup documents and announces the session.
func (s *session) loadBundle(ctx context.Context, router *events.Router) (*datastore.Bundle, error) {
	b, err := datastore.LoadBundle(ctx, s.store)
	if err != nil {
		if router != nil {
			router.Emit(&events.ErrorEvent{
				BaseEvent: events.NewAppEvent(events.EventError),
				Message:   err.Error(),
				Severity:  events.SeverityFatal,
			})
		}
		return nil, err
	}
	if router != nil {
		ev := &events.SessionStartEvent{
			BaseEvent:  events.NewAppEvent(events.EventSessionStart),
			DataSource: s.cfg.Data.Source,
			Structures: b.Index.Len(),
			Dandisets:  len(b.Catalog),
		}
		if b.LastUpdated != nil {
			ev.LastUpdated = b.LastUpdated.String()
		}
		router.Emit(ev)
	}
	return b, nil
}

// settle runs every fetch fx asks for, and the fetches those results ask
// for in turn, until the engine is quiet. Mesh and electrode failures are
// recorded by the engine and do not stop the loop.
func (s *session) settle(ctx context.Context, engine *app.Engine, fx app.Effects, withTitles bool) error {
	for !fx.Empty() {
		var next app.Effects
		if len(fx.Meshes) > 0 {
			start := time.Now()
			results, err := s.meshes.FetchChunked(ctx, fx.Meshes, s.cfg.Mesh.ChunkSize, func(done, total int, chunk []mesh.Result) {
				engine.ReportBatch(done, total, chunk, time.Since(start))
				start = time.Now()
			})
			if err != nil {
				return fmt.Errorf("fetch meshes: %w", err)
			}
			next = engine.MeshesLoaded(results)
		}
		if fx.Electrodes != "" {
			set, err := s.electrodes.Load(ctx, fx.Electrodes)
			engine.ElectrodesLoaded(fx.Electrodes, set, err)
		}
		if withTitles && s.titles != nil && len(fx.Titles) > 0 {
			titles, err := s.titles.FetchTitles(ctx, fx.Titles)
			if err != nil {
				return fmt.Errorf("fetch titles: %w", err)
			}
			engine.TitlesResolved(fx.Titles, titles)
		}
		fx = next
	}
	return ctx.Err()
}

// newScene builds the scene described by the render settings.
func newScene(rc config.RenderConfig) (*render.Scene, error) {
	plane, err := render.ParsePlane(rc.Plane)
	if err != nil {
		return nil, err
	}
	opts := []render.Option{render.WithPlane(plane)}
	if rc.Background != "" {
		opts = append(opts, render.WithBackground(atlas.ParseColor(rc.Background)))
	}
	return render.NewScene(opts...), nil
}

// openView loads the data, moves the engine to hash and waits for the
// fetches that view needs. Titles are resolved only when withTitles is set.
func (s *session) openView(ctx context.Context, hash string, renderer app.Renderer, withTitles bool) (*app.Engine, error) {
	bundle, err := s.loadBundle(ctx, nil)
	if err != nil {
		return nil, err
	}
	opts := []app.Option{
		app.WithLogger(s.logger),
		app.WithPageSize(s.cfg.Panel.PageSize),
	}
	if renderer != nil {
		opts = append(opts, app.WithRenderer(renderer))
	}
	engine := app.NewEngine(bundle, opts...)

	// Navigate before Start so only the requested view's meshes are fetched.
	var fx app.Effects
	if hash = strings.TrimPrefix(hash, "#"); hash != "" {
		if fx, err = engine.Navigate(hash); err != nil {
			return nil, fmt.Errorf("navigate to %q: %w", hash, err)
		}
	}
	fx = mergeEffects(fx, engine.Start())
	fx.Titles = nil
	if withTitles {
		fx.Titles = shownDandisets(engine)
	}
	if err := s.settle(ctx, engine, fx, withTitles); err != nil {
		return nil, err
	}
	return engine, nil
}

// shownDandisets lists the dandisets whose titles the panel displays.
func shownDandisets(engine *app.Engine) []string {
	var ids []string
	for _, it := range engine.Panel().Items {
		ids = append(ids, it.ID)
	}
	if st := engine.State(); st.HasDandiset() {
		ids = append(ids, st.DandisetID)
	}
	return ids
}

func mergeEffects(a, b app.Effects) app.Effects {
	out := app.Effects{
		Meshes:     append(append([]int(nil), a.Meshes...), b.Meshes...),
		Electrodes: a.Electrodes,
		Titles:     append(append([]string(nil), a.Titles...), b.Titles...),
	}
	if out.Electrodes == "" {
		out.Electrodes = b.Electrodes
	}
	return out
}
