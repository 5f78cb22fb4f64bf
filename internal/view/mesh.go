// Package view derives presentation plans from the selection state: mesh
// roles for the scene, rows and badges for the region tree, and the
// detail panel listing. Every projector is a function of the state, its
// scope and read-only atlas data; none reads another's output.
package view

import (
	"sort"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/mesh"
	"github.com/npratt/dandiatlas/internal/selection"
)

// MeshInputs are the inputs of ProjectMeshes.
type MeshInputs struct {
	State selection.State
	Scope selection.Scope
	Index *atlas.Index
	Avail atlas.MeshAvailability

	// Meshes holds the base material of every loaded mesh.
	Meshes map[int]mesh.Material
	// Status reports the load state of a mesh. Nil treats every mesh
	// missing from Meshes as unknown.
	Status func(id int) mesh.Status
}

func (in MeshInputs) loaded(id int) bool {
	_, ok := in.Meshes[id]
	return ok
}

func (in MeshInputs) status(id int) mesh.Status {
	if in.loaded(id) {
		return mesh.StatusLoaded
	}
	if in.Status == nil {
		return mesh.StatusUnknown
	}
	return in.Status(id)
}

// ownMeshUnavailable reports whether id will never get its own geometry:
// the manifest lists none, or its fetch failed.
func (in MeshInputs) ownMeshUnavailable(id int) bool {
	if id == in.Avail.RootID {
		return true
	}
	return !in.Avail.HasMesh(id) || in.status(id) == mesh.StatusFailed
}

// fallback returns the nearest loaded mesh-bearing ancestor of id. The
// forest root only ever renders as an outline and is never a fallback.
func (in MeshInputs) fallback(id int) (int, bool) {
	return in.Index.NearestMeshBearingAncestor(id, func(a int) bool {
		return a != in.Avail.RootID && in.loaded(a)
	})
}

// MeshPlan is the appearance of every loaded mesh under one selection.
type MeshPlan struct {
	Version     uint64
	Appearances map[int]mesh.Appearance
	// Backing maps each shown mesh to the regions it represents.
	Backing map[int]atlas.IDSet
}

// Role returns the role planned for id.
func (p MeshPlan) Role(id int) mesh.Role {
	return p.Appearances[id].Role
}

// Pickable returns the ids that take part in hit-testing, ascending.
func (p MeshPlan) Pickable() []int {
	var out []int
	for id, a := range p.Appearances {
		if a.Pickable {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// WithRole returns the ids planned with role r, ascending.
func (p MeshPlan) WithRole(r mesh.Role) []int {
	var out []int
	for id, a := range p.Appearances {
		if a.Role == r {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// ProjectMeshes assigns a role to every loaded mesh.
//
// In the default view data meshes are active and ancestor meshes are
// wireframe context. With a selection, a mesh is active only when at least
// one region it backs is selection-active and not hidden; everything else
// is dimmed. A region whose own mesh is unavailable is backed by its
// nearest loaded ancestor. The root mesh is always the outline.
func ProjectMeshes(in MeshInputs) MeshPlan {
	plan := MeshPlan{
		Version:     in.State.Version,
		Appearances: make(map[int]mesh.Appearance, len(in.Meshes)),
		Backing:     make(map[int]atlas.IDSet),
	}

	if in.Scope.Default() {
		for id, base := range in.Meshes {
			switch {
			case id == in.Avail.RootID:
				plan.Appearances[id] = rootOutline(base)
			case in.Avail.Category(id) == atlas.CategoryAncestor:
				plan.Appearances[id] = contextOutline(base)
			default:
				plan.Appearances[id] = active(base, base.Opacity)
				plan.Backing[id] = atlas.NewIDSet(id)
			}
		}
		return plan
	}

	for r := range in.Scope.Active {
		m := r
		if in.ownMeshUnavailable(r) {
			fb, ok := in.fallback(r)
			if !ok {
				continue
			}
			m = fb
		}
		set, ok := plan.Backing[m]
		if !ok {
			set = atlas.NewIDSet()
			plan.Backing[m] = set
		}
		set.Add(r)
	}

	for id, base := range in.Meshes {
		if id == in.Avail.RootID {
			plan.Appearances[id] = rootOutline(base)
			continue
		}
		shown := false
		for r := range plan.Backing[id] {
			if in.Scope.Shown(r) {
				shown = true
				break
			}
		}
		if !shown {
			plan.Appearances[id] = dimmed(base)
			continue
		}
		opacity := base.Opacity
		if in.Scope.HasTarget && id == in.Scope.Target {
			opacity = mesh.SolidOpacity
		}
		plan.Appearances[id] = active(base, opacity)
	}

	for id := range plan.Backing {
		if a, ok := plan.Appearances[id]; !ok || a.Role != mesh.RoleActive {
			delete(plan.Backing, id)
		}
	}
	return plan
}

// NeededMeshes returns the meshes the scope wants that are neither loaded,
// in flight nor failed, ascending. A region without usable geometry asks
// for its nearest mesh-bearing ancestor that has not failed.
func NeededMeshes(in MeshInputs) []int {
	want := atlas.NewIDSet()
	if in.Scope.Default() {
		want.Add(in.Avail.RootID)
		want.AddAll(in.Avail.Data)
		want.AddAll(in.Avail.Ancestor)
	} else {
		want.Add(in.Avail.RootID)
		for r := range in.Scope.Active {
			if !in.ownMeshUnavailable(r) {
				want.Add(r)
				continue
			}
			for _, a := range reversed(in.Index.AncestorsOf(r)) {
				if a == in.Avail.RootID || !in.Avail.HasMesh(a) {
					continue
				}
				if in.status(a) == mesh.StatusFailed {
					continue
				}
				want.Add(a)
				break
			}
		}
	}

	var out []int
	for _, id := range want.Sorted() {
		if in.status(id) == mesh.StatusUnknown {
			out = append(out, id)
		}
	}
	return out
}

func reversed(ids []int) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func active(base mesh.Material, opacity float64) mesh.Appearance {
	return mesh.Appearance{
		Role:     mesh.RoleActive,
		Color:    base.Color,
		Opacity:  opacity,
		Visible:  true,
		Pickable: true,
	}
}

func contextOutline(base mesh.Material) mesh.Appearance {
	return mesh.Appearance{
		Role:      mesh.RoleContext,
		Color:     base.Color,
		Opacity:   mesh.ContextOpacity,
		Wireframe: true,
		Visible:   true,
	}
}

func dimmed(base mesh.Material) mesh.Appearance {
	return mesh.Appearance{Role: mesh.RoleDimmed, Color: base.Color}
}

func rootOutline(base mesh.Material) mesh.Appearance {
	return mesh.Appearance{
		Role:      mesh.RoleRootOutline,
		Color:     base.Color,
		Opacity:   mesh.RootOpacity,
		Wireframe: true,
		Visible:   true,
	}
}
