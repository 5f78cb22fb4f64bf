package atlas

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Index is the flattened structure hierarchy: id lookups, parent chains and
// subtree walks. It is built once and never mutated.
type Index struct {
	nodes    map[int]StructureNode
	children map[int][]int
	roots    []int
	order    []int // input order, used for deterministic iteration
}

// NewIndex validates nodes and builds the lookup tables. ParentID is
// authoritative; Children on the input is ignored and rebuilt in input order.
// Duplicate ids, self-parents, dangling parents and parent cycles fail with
// ErrMalformedHierarchy.
func NewIndex(nodes []StructureNode) (*Index, error) {
	idx := &Index{
		nodes:    make(map[int]StructureNode, len(nodes)),
		children: make(map[int][]int),
		order:    make([]int, 0, len(nodes)),
	}

	for _, n := range nodes {
		if _, dup := idx.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate structure id %d", ErrMalformedHierarchy, n.ID)
		}
		idx.nodes[n.ID] = n
		idx.order = append(idx.order, n.ID)
	}

	g := simple.NewDirectedGraph()
	for _, id := range idx.order {
		g.AddNode(simple.Node(id))
	}
	for _, id := range idx.order {
		n := idx.nodes[id]
		if !n.HasParent() {
			idx.roots = append(idx.roots, id)
			continue
		}
		if n.ParentID == id {
			return nil, fmt.Errorf("%w: structure %d is its own parent", ErrMalformedHierarchy, id)
		}
		if _, ok := idx.nodes[n.ParentID]; !ok {
			return nil, fmt.Errorf("%w: structure %d references missing parent %d", ErrMalformedHierarchy, id, n.ParentID)
		}
		g.SetEdge(g.NewEdge(simple.Node(n.ParentID), simple.Node(id)))
		idx.children[n.ParentID] = append(idx.children[n.ParentID], id)
	}

	if _, err := topo.Sort(g); err != nil {
		return nil, fmt.Errorf("%w: parent cycle: %v", ErrMalformedHierarchy, err)
	}

	for id, kids := range idx.children {
		n := idx.nodes[id]
		n.Children = append([]int(nil), kids...)
		idx.nodes[id] = n
	}

	return idx, nil
}

// Len returns the number of structures.
func (x *Index) Len() int { return len(x.nodes) }

// Lookup returns the node for id.
func (x *Index) Lookup(id int) (StructureNode, bool) {
	n, ok := x.nodes[id]
	return n, ok
}

// Require returns ErrNotFound (wrapped) when id is not in the index.
func (x *Index) Require(id int) error {
	if _, ok := x.nodes[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// Roots returns the forest roots in document order.
func (x *Index) Roots() []int {
	return append([]int(nil), x.roots...)
}

// Children returns the direct children of id in document order.
func (x *Index) Children(id int) []int {
	return x.children[id]
}

// IDs returns every structure id in document order.
func (x *Index) IDs() []int {
	return append([]int(nil), x.order...)
}

// Parent returns the parent of id, if any.
func (x *Index) Parent(id int) (int, bool) {
	n, ok := x.nodes[id]
	if !ok || !n.HasParent() {
		return 0, false
	}
	return n.ParentID, true
}

// AncestorsOf returns the chain from the forest root down to the immediate
// parent of id. The id itself is excluded. Unknown ids yield nil.
func (x *Index) AncestorsOf(id int) []int {
	var chain []int
	cur, ok := x.Parent(id)
	for ok {
		chain = append(chain, cur)
		cur, ok = x.Parent(cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Depth returns the number of ancestors of id.
func (x *Index) Depth(id int) int {
	d := 0
	cur, ok := x.Parent(id)
	for ok {
		d++
		cur, ok = x.Parent(cur)
	}
	return d
}

// DescendantsOf returns id and every structure below it.
// Unknown ids yield an empty set.
func (x *Index) DescendantsOf(id int) IDSet {
	out := NewIDSet()
	x.Walk(id, func(n int) { out.Add(n) })
	return out
}

// Walk visits id and its subtree in pre-order. Each call restarts the walk.
func (x *Index) Walk(id int, visit func(int)) {
	if _, ok := x.nodes[id]; !ok {
		return
	}
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(cur)
		kids := x.children[cur]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// NearestMeshBearingAncestor walks up from id's parent and returns the first
// ancestor for which loaded reports true. It returns false at the forest root.
func (x *Index) NearestMeshBearingAncestor(id int, loaded func(int) bool) (int, bool) {
	cur, ok := x.Parent(id)
	for ok {
		if loaded(cur) {
			return cur, true
		}
		cur, ok = x.Parent(cur)
	}
	return 0, false
}

// WithAncestors returns ids plus all of their ancestors.
func (x *Index) WithAncestors(ids IDSet) IDSet {
	out := ids.Clone()
	for id := range ids {
		cur, ok := x.Parent(id)
		for ok && !out.Has(cur) {
			out.Add(cur)
			cur, ok = x.Parent(cur)
		}
	}
	return out
}

// AggregateUp propagates every structure's direct members to all of its
// ancestors. The result holds, for each structure that has members in its
// subtree, the sorted deduplicated union of its own and its descendants'
// direct members. Ids unknown to the index keep only their direct members.
func (x *Index) AggregateUp(direct map[int][]string) map[int][]string {
	sets := make(map[int]map[string]struct{}, len(direct))
	add := func(id int, members []string) {
		s, ok := sets[id]
		if !ok {
			s = make(map[string]struct{}, len(members))
			sets[id] = s
		}
		for _, m := range members {
			s[m] = struct{}{}
		}
	}

	for id, members := range direct {
		add(id, members)
		cur, ok := x.Parent(id)
		for ok {
			add(cur, members)
			cur, ok = x.Parent(cur)
		}
	}

	out := make(map[int][]string, len(sets))
	for id, s := range sets {
		list := make([]string, 0, len(s))
		for m := range s {
			list = append(list, m)
		}
		sort.Strings(list)
		out[id] = list
	}
	return out
}
