package view

import (
	"strconv"
	"strings"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
	"github.com/npratt/dandiatlas/internal/selection"
)

// Badge formats a direct/total count pair. The slash form is used only
// when both differ and direct is non-zero; zero totals render nothing.
func Badge(direct, total int) string {
	switch {
	case total <= 0 && direct <= 0:
		return ""
	case direct == total || direct == 0:
		return strconv.Itoa(total)
	case total == 0:
		return strconv.Itoa(direct)
	default:
		return strconv.Itoa(direct) + "/" + strconv.Itoa(total)
	}
}

// TreeNode is the per-structure state of the region tree. Children are
// materialized on first expansion and kept afterwards.
type TreeNode struct {
	ID           int
	Depth        int
	Materialized bool
	Expanded     bool
}

// Row is one visible line of the tree.
type Row struct {
	ID          int
	Depth       int
	Name        string
	Acronym     string
	HasChildren bool
	Expanded    bool
	Selected    bool
	Active      bool // member of the selection's tree set
	Inactive    bool // a selection is active and this row is outside it
	Match       bool // matches the search query
	Badge       string
}

// Tree is the region tree projector. Expansion state lives in an arena
// keyed by structure id; everything else is re-derived on Sync.
type Tree struct {
	idx   *atlas.Index
	stats atlas.StatsTable
	nodes map[int]*TreeNode

	selected    int
	hasSelected bool
	active      atlas.IDSet
	subjects    *dandiset.Counts

	query   string
	matches atlas.IDSet
	visible atlas.IDSet
}

// NewTree returns a tree with the forest roots materialized and expanded.
func NewTree(idx *atlas.Index, stats atlas.StatsTable) *Tree {
	t := &Tree{
		idx:   idx,
		stats: stats,
		nodes: make(map[int]*TreeNode),
	}
	for _, id := range idx.Roots() {
		t.nodes[id] = &TreeNode{ID: id}
		t.Expand(id)
	}
	return t
}

// Node returns the arena entry of id, if materialized.
func (t *Tree) Node(id int) (*TreeNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *Tree) materialize(id int) *TreeNode {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	if n.Materialized {
		return n
	}
	for _, c := range t.idx.Children(id) {
		if _, ok := t.nodes[c]; !ok {
			t.nodes[c] = &TreeNode{ID: c, Depth: n.Depth + 1}
		}
	}
	n.Materialized = true
	return n
}

// Expand opens id, materializing its children on first use.
func (t *Tree) Expand(id int) {
	if n := t.materialize(id); n != nil {
		n.Expanded = true
	}
}

// Collapse closes id. Its children stay materialized.
func (t *Tree) Collapse(id int) {
	if n, ok := t.nodes[id]; ok {
		n.Expanded = false
	}
}

// Toggle flips the expansion of id.
func (t *Tree) Toggle(id int) {
	if n, ok := t.nodes[id]; ok && n.Expanded {
		t.Collapse(id)
		return
	}
	t.Expand(id)
}

// Reveal expands every ancestor of id so its row is visible.
func (t *Tree) Reveal(id int) {
	for _, a := range t.idx.AncestorsOf(id) {
		t.Expand(a)
	}
}

// Sync re-derives the selection channels and badge source from state.
// The selected row and the active regions are revealed.
func (t *Tree) Sync(state selection.State, scope selection.Scope, counts dandiset.Counts) {
	t.hasSelected = false
	t.subjects = nil
	t.active = scope.TreeActive

	switch state.Kind {
	case selection.KindRegion:
		t.selected, t.hasSelected = scope.Target, scope.HasTarget
	case selection.KindDandiset, selection.KindSubject:
		c := counts
		t.subjects = &c
		if f, ok := state.RegionFilter(); ok {
			t.selected, t.hasSelected = f, true
		}
	}

	if t.hasSelected {
		t.Reveal(t.selected)
	}
	if state.HasDandiset() {
		for _, id := range scope.Active.Sorted() {
			t.Reveal(id)
		}
	}
}

// Selected returns the selected structure, if any.
func (t *Tree) Selected() (int, bool) {
	return t.selected, t.hasSelected
}

// Query returns the current search query.
func (t *Tree) Query() string { return t.query }

// Search filters rows to structures whose name or acronym contains q,
// case-insensitively, plus their ancestors. A non-empty query expands the
// whole tree. Clearing the query shows every row again but keeps the
// expansion the search forced.
func (t *Tree) Search(q string) {
	t.query = strings.TrimSpace(q)
	if t.query == "" {
		t.matches = nil
		t.visible = nil
		return
	}

	needle := strings.ToLower(t.query)
	t.matches = atlas.NewIDSet()
	for _, id := range t.idx.IDs() {
		n, _ := t.idx.Lookup(id)
		hit := containsFold(n.Name, needle) || containsFold(n.Acronym, needle)
		if s, ok := t.stats.Get(id); ok && !hit {
			hit = containsFold(s.Name, needle) || containsFold(s.Acronym, needle)
		}
		if hit {
			t.matches.Add(id)
		}
	}
	t.visible = t.idx.WithAncestors(t.matches)

	for _, root := range t.idx.Roots() {
		t.idx.Walk(root, t.Expand)
	}
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

// Matches returns the number of structures matching the query.
func (t *Tree) Matches() int { return t.matches.Len() }

// Rows flattens the visible tree in pre-order.
func (t *Tree) Rows() []Row {
	var rows []Row
	var visit func(id int)
	visit = func(id int) {
		n, ok := t.nodes[id]
		if !ok {
			return
		}
		if t.visible != nil && !t.visible.Has(id) {
			return
		}
		rows = append(rows, t.row(n))
		if !n.Expanded {
			return
		}
		for _, c := range t.idx.Children(id) {
			visit(c)
		}
	}
	for _, root := range t.idx.Roots() {
		visit(root)
	}
	return rows
}

func (t *Tree) row(n *TreeNode) Row {
	node, _ := t.idx.Lookup(n.ID)
	r := Row{
		ID:          n.ID,
		Depth:       n.Depth,
		Name:        node.Name,
		Acronym:     node.Acronym,
		HasChildren: len(t.idx.Children(n.ID)) > 0,
		Expanded:    n.Expanded,
		Selected:    t.hasSelected && t.selected == n.ID,
		Match:       t.matches.Has(n.ID),
	}
	if t.active != nil {
		r.Active = t.active.Has(n.ID)
		r.Inactive = !r.Active
	}
	if t.subjects != nil {
		r.Badge = Badge(t.subjects.Direct[n.ID], t.subjects.Total[n.ID])
	} else if s, ok := t.stats.Get(n.ID); ok {
		r.Badge = Badge(s.DirectCount(), s.TotalCount())
	}
	return r
}
