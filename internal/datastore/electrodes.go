package datastore

import (
	"context"
	"fmt"
	"sync"

	"github.com/npratt/dandiatlas/internal/electrode"
)

// ElectrodeCache loads and normalizes per-dandiset electrode coordinates.
// Successful loads are kept for the session; failures are retried on the
// next request.
type ElectrodeCache struct {
	store *Store

	mu   sync.Mutex
	sets map[string]electrode.Set
}

// NewElectrodeCache returns an empty cache over store.
func NewElectrodeCache(store *Store) *ElectrodeCache {
	return &ElectrodeCache{store: store, sets: make(map[string]electrode.Set)}
}

// Cached returns the normalized set for dandisetID if it was loaded.
func (c *ElectrodeCache) Cached(dandisetID string) (electrode.Set, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[dandisetID]
	return s, ok
}

// Load returns the normalized coordinates for dandisetID, fetching them on
// first use. Failures wrap ErrMetadataFetch.
func (c *ElectrodeCache) Load(ctx context.Context, dandisetID string) (electrode.Set, error) {
	if s, ok := c.Cached(dandisetID); ok {
		return s, nil
	}
	raw, err := c.store.LoadElectrodes(ctx, dandisetID)
	if err != nil {
		return nil, fmt.Errorf("%w: electrodes for %s: %w", ErrMetadataFetch, dandisetID, err)
	}
	set := electrode.Normalize(raw)
	if raw.Scaled() {
		c.store.logger.Debug("electrode coordinates rescaled",
			"dandiset", dandisetID, "max_abs", raw.MaxAbs(), "factor", electrode.ScaleFactor)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sets[dandisetID]; ok {
		return s, nil
	}
	c.sets[dandisetID] = set
	return set, nil
}
