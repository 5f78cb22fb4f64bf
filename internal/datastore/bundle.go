package datastore

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
)

// ErrDataFetch reports that a required startup document could not be loaded
// or decoded. The browser cannot start without it.
var ErrDataFetch = errors.New("data fetch failed")

// Bundle is everything loaded at startup.
type Bundle struct {
	Index        *atlas.Index
	Stats        atlas.StatsTable
	Avail        atlas.MeshAvailability
	Catalog      dandiset.Catalog
	LastUpdated  *LastUpdated
	ElectrodeIDs []string
}

// HasElectrodes reports whether the electrode manifest lists dandisetID.
func (b *Bundle) HasElectrodes(dandisetID string) bool {
	for _, id := range b.ElectrodeIDs {
		if id == dandisetID {
			return true
		}
	}
	return false
}

// LoadBundle fetches the startup documents in parallel. Any required
// document failing cancels the rest and returns an error wrapping
// ErrDataFetch. Missing optional documents leave their fields empty.
func LoadBundle(ctx context.Context, store *Store) (*Bundle, error) {
	var (
		b     Bundle
		nodes []atlas.StructureNode
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nodes, err = store.LoadHierarchy(gctx)
		return required(HierarchyDoc, err)
	})
	g.Go(func() error {
		var err error
		b.Stats, err = store.LoadStats(gctx)
		return required(RegionStatsDoc, err)
	})
	g.Go(func() error {
		var err error
		b.Avail, err = store.LoadManifest(gctx)
		return required(MeshManifestDoc, err)
	})
	g.Go(func() error {
		var err error
		b.Catalog, err = store.LoadCatalog(gctx)
		return required(AssetsDoc, err)
	})
	g.Go(func() error {
		lu, err := store.LoadLastUpdated(gctx)
		if err != nil {
			store.logger.Warn("ignoring last-updated document", "error", err)
			return nil
		}
		b.LastUpdated = lu
		return nil
	})
	g.Go(func() error {
		ids, err := store.LoadElectrodeManifest(gctx)
		if err != nil {
			store.logger.Warn("ignoring electrode manifest", "error", err)
			return nil
		}
		b.ElectrodeIDs = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx, err := atlas.NewIndex(nodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDataFetch, HierarchyDoc, err)
	}
	b.Index = idx

	store.logger.Info("atlas data loaded",
		"source", fmt.Sprint(store.Source()),
		"structures", idx.Len(),
		"regions_with_data", len(b.Stats),
		"dandisets", len(b.Catalog),
		"with_electrodes", len(b.ElectrodeIDs))
	return &b, nil
}

func required(doc string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrDataFetch, doc, err)
}
