package mesh

import (
	"sort"
	"sync"
)

// Status is the load state of one structure's mesh.
type Status int

const (
	// StatusUnknown means no fetch was ever requested.
	StatusUnknown Status = iota
	// StatusPending means a fetch is in flight.
	StatusPending
	// StatusLoaded means a runtime entry exists.
	StatusLoaded
	// StatusFailed means the fetch failed and will not be retried.
	StatusFailed
)

// String returns a string representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is the runtime state of one loaded mesh.
type Entry struct {
	ID       int
	Geometry *Geometry
	Base     Material
	Applied  Appearance
}

// Registry holds the mesh runtime entries of a session. Entries are created
// on the first successful load and never evicted. Failed ids are remembered
// so they are not fetched again.
type Registry struct {
	mu       sync.Mutex
	entries  map[int]*Entry
	pending  map[int]struct{}
	failed   map[int]error
	material func(id int) Material
}

// NewRegistry returns an empty registry. material derives the base material
// of a newly loaded mesh; nil leaves it zero.
func NewRegistry(material func(id int) Material) *Registry {
	return &Registry{
		entries:  make(map[int]*Entry),
		pending:  make(map[int]struct{}),
		failed:   make(map[int]error),
		material: material,
	}
}

// Begin marks ids as in flight and returns the subset that actually needs a
// fetch: ids already loaded, pending or failed are skipped, as are
// duplicates within ids. Order is preserved.
func (r *Registry) Begin(ids []int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []int
	for _, id := range ids {
		if r.statusLocked(id) != StatusUnknown {
			continue
		}
		r.pending[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Complete records the outcome of a fetch started with Begin. On success it
// creates the runtime entry and returns it. A failure is negative-cached.
// Completing an id that was not pending is ignored.
func (r *Registry) Complete(id int, g *Geometry, err error) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[id]; !ok {
		return nil, false
	}
	delete(r.pending, id)
	if err != nil || g == nil {
		if err == nil {
			err = ErrMeshFetch
		}
		r.failed[id] = err
		return nil, false
	}
	e := &Entry{ID: id, Geometry: g}
	if r.material != nil {
		e.Base = r.material(id)
	}
	r.entries[id] = e
	return e, true
}

// Status returns the load state of id.
func (r *Registry) Status(id int) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked(id)
}

func (r *Registry) statusLocked(id int) Status {
	if _, ok := r.entries[id]; ok {
		return StatusLoaded
	}
	if _, ok := r.pending[id]; ok {
		return StatusPending
	}
	if _, ok := r.failed[id]; ok {
		return StatusFailed
	}
	return StatusUnknown
}

// Loaded reports whether id has a runtime entry.
func (r *Registry) Loaded(id int) bool {
	return r.Status(id) == StatusLoaded
}

// Entry returns the runtime entry of id.
func (r *Registry) Entry(id int) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Err returns the recorded failure of id, if any.
func (r *Registry) Err(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed[id]
}

// LoadedIDs returns the ids with runtime entries in ascending order.
func (r *Registry) LoadedIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SetApplied records the appearance last applied to id.
func (r *Registry) SetApplied(id int, a Appearance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Applied = a
	}
}

// Counts returns the number of loaded, pending and failed ids.
func (r *Registry) Counts() (loaded, pending, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), len(r.pending), len(r.failed)
}
