package atlas

import (
	"errors"
	"reflect"
	"testing"

	"pgregory.net/rapid"
)

// sampleNodes is a two-root forest:
//
//	997 root
//	├── 8 grey
//	│   ├── 567 cerebrum
//	│   │   ├── 313 midbrain
//	│   │   └── 400 pons
//	│   └── 512 cerebellum
//	└── 1009 fiber tracts
//	2000 second root
//	└── 2001 child
func sampleNodes() []StructureNode {
	return []StructureNode{
		{ID: 997, Name: "root", Acronym: "root", ColorHex: "FFFFFF", ParentID: NoParent},
		{ID: 8, Name: "Basic cell groups and regions", Acronym: "grey", ColorHex: "BFDAE3", ParentID: 997},
		{ID: 567, Name: "Cerebrum", Acronym: "CH", ColorHex: "B0F0FF", ParentID: 8},
		{ID: 313, Name: "Midbrain", Acronym: "MB", ColorHex: "FF64FF", ParentID: 567},
		{ID: 400, Name: "Pons", Acronym: "P", ColorHex: "FF9B88", ParentID: 567},
		{ID: 512, Name: "Cerebellum", Acronym: "CB", ColorHex: "F0F080", ParentID: 8},
		{ID: 1009, Name: "fiber tracts", Acronym: "fiber tracts", ColorHex: "CCCCCC", ParentID: 997},
		{ID: 2000, Name: "Second root", Acronym: "R2", ColorHex: "", ParentID: NoParent},
		{ID: 2001, Name: "Second child", Acronym: "R2c", ColorHex: "123456", ParentID: 2000},
	}
}

func mustIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(sampleNodes())
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	return idx
}

func TestNewIndex_Basics(t *testing.T) {
	idx := mustIndex(t)

	if idx.Len() != 9 {
		t.Errorf("Len() = %d, want 9", idx.Len())
	}
	if got := idx.Roots(); !reflect.DeepEqual(got, []int{997, 2000}) {
		t.Errorf("Roots() = %v, want [997 2000]", got)
	}
	if got := idx.Children(567); !reflect.DeepEqual(got, []int{313, 400}) {
		t.Errorf("Children(567) = %v, want [313 400]", got)
	}
	n, ok := idx.Lookup(313)
	if !ok {
		t.Fatal("Lookup(313) not found")
	}
	if n.Acronym != "MB" {
		t.Errorf("Acronym = %q, want MB", n.Acronym)
	}
	if _, ok := idx.Lookup(42); ok {
		t.Error("Lookup(42) should not be found")
	}
	if err := idx.Require(42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Require(42) = %v, want ErrNotFound", err)
	}
}

func TestNewIndex_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		nodes []StructureNode
	}{
		{
			name: "duplicate id",
			nodes: []StructureNode{
				{ID: 1, ParentID: NoParent},
				{ID: 1, ParentID: NoParent},
			},
		},
		{
			name: "dangling parent",
			nodes: []StructureNode{
				{ID: 1, ParentID: NoParent},
				{ID: 2, ParentID: 99},
			},
		},
		{
			name: "self parent",
			nodes: []StructureNode{
				{ID: 1, ParentID: 1},
			},
		},
		{
			name: "two node cycle",
			nodes: []StructureNode{
				{ID: 1, ParentID: 2},
				{ID: 2, ParentID: 1},
			},
		},
		{
			name: "cycle below a valid root",
			nodes: []StructureNode{
				{ID: 1, ParentID: NoParent},
				{ID: 2, ParentID: 4},
				{ID: 3, ParentID: 2},
				{ID: 4, ParentID: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIndex(tt.nodes)
			if !errors.Is(err, ErrMalformedHierarchy) {
				t.Errorf("NewIndex() error = %v, want ErrMalformedHierarchy", err)
			}
		})
	}
}

func TestAncestorsOf(t *testing.T) {
	idx := mustIndex(t)

	tests := []struct {
		id   int
		want []int
	}{
		{313, []int{997, 8, 567}},
		{8, []int{997}},
		{997, nil},
		{2001, []int{2000}},
		{42, nil},
	}
	for _, tt := range tests {
		if got := idx.AncestorsOf(tt.id); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("AncestorsOf(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
	if d := idx.Depth(313); d != 3 {
		t.Errorf("Depth(313) = %d, want 3", d)
	}
}

func TestDescendantsOf(t *testing.T) {
	idx := mustIndex(t)

	got := idx.DescendantsOf(567)
	want := NewIDSet(567, 313, 400)
	if !got.Equal(want) {
		t.Errorf("DescendantsOf(567) = %v, want %v", got.Sorted(), want.Sorted())
	}

	all := idx.DescendantsOf(997)
	if all.Has(2000) || all.Has(2001) {
		t.Error("DescendantsOf(997) leaked into the second root")
	}
	if all.Len() != 7 {
		t.Errorf("DescendantsOf(997) has %d members, want 7", all.Len())
	}

	if idx.DescendantsOf(42).Len() != 0 {
		t.Error("DescendantsOf(unknown) should be empty")
	}
}

func TestWalkPreOrder(t *testing.T) {
	idx := mustIndex(t)

	var visited []int
	idx.Walk(997, func(id int) { visited = append(visited, id) })
	want := []int{997, 8, 567, 313, 400, 512, 1009}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk(997) = %v, want %v", visited, want)
	}

	// Restartable: a second walk yields the same sequence.
	var again []int
	idx.Walk(997, func(id int) { again = append(again, id) })
	if !reflect.DeepEqual(again, want) {
		t.Errorf("second Walk(997) = %v, want %v", again, want)
	}
}

func TestNearestMeshBearingAncestor(t *testing.T) {
	idx := mustIndex(t)
	loaded := NewIDSet(997, 8)

	got, ok := idx.NearestMeshBearingAncestor(313, loaded.Has)
	if !ok || got != 8 {
		t.Errorf("NearestMeshBearingAncestor(313) = %d, %v; want 8, true", got, ok)
	}

	loaded.Add(567)
	got, ok = idx.NearestMeshBearingAncestor(313, loaded.Has)
	if !ok || got != 567 {
		t.Errorf("NearestMeshBearingAncestor(313) = %d, %v; want 567, true", got, ok)
	}

	if _, ok := idx.NearestMeshBearingAncestor(2001, loaded.Has); ok {
		t.Error("expected no loaded ancestor under the second root")
	}
	if _, ok := idx.NearestMeshBearingAncestor(997, loaded.Has); ok {
		t.Error("forest root has no ancestor")
	}
}

func TestWithAncestors(t *testing.T) {
	idx := mustIndex(t)

	got := idx.WithAncestors(NewIDSet(313, 512))
	want := NewIDSet(313, 512, 567, 8, 997)
	if !got.Equal(want) {
		t.Errorf("WithAncestors = %v, want %v", got.Sorted(), want.Sorted())
	}
}

func TestAggregateUp(t *testing.T) {
	idx := mustIndex(t)

	direct := map[int][]string{
		313: {"000017", "001176"},
		400: {"000017"},
		512: {"001176", "000409"},
	}
	total := idx.AggregateUp(direct)

	tests := []struct {
		id   int
		want []string
	}{
		{313, []string{"000017", "001176"}},
		{567, []string{"000017", "001176"}},
		{8, []string{"000017", "000409", "001176"}},
		{997, []string{"000017", "000409", "001176"}},
	}
	for _, tt := range tests {
		if got := total[tt.id]; !reflect.DeepEqual(got, tt.want) {
			t.Errorf("total[%d] = %v, want %v", tt.id, got, tt.want)
		}
	}
	if _, ok := total[1009]; ok {
		t.Error("fiber tracts has no data and should be absent")
	}
}

// TestDescendantsIncludeSelfProperty checks that every subtree contains its
// root and is finite on randomly generated forests.
func TestDescendantsIncludeSelfProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := randomForest(t)
		idx, err := NewIndex(nodes)
		if err != nil {
			t.Fatalf("NewIndex on generated forest: %v", err)
		}
		for _, n := range nodes {
			d := idx.DescendantsOf(n.ID)
			if !d.Has(n.ID) {
				t.Fatalf("DescendantsOf(%d) misses itself", n.ID)
			}
			if d.Len() > len(nodes) {
				t.Fatalf("DescendantsOf(%d) has %d members for %d nodes", n.ID, d.Len(), len(nodes))
			}
		}
	})
}

// TestAggregateTotalContainsDirectProperty checks total ⊇ direct for every
// structure after aggregation.
func TestAggregateTotalContainsDirectProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nodes := randomForest(t)
		idx, err := NewIndex(nodes)
		if err != nil {
			t.Fatalf("NewIndex on generated forest: %v", err)
		}
		direct := make(map[int][]string)
		for _, n := range nodes {
			direct[n.ID] = rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d"}), 0, 3).Draw(t, "members")
		}
		total := idx.AggregateUp(direct)
		for id, members := range direct {
			stats := RegionStats{StructureID: id, DirectDandisets: members, TotalDandisets: total[id]}
			if !stats.Validate() {
				t.Fatalf("total %v does not contain direct %v for %d", total[id], members, id)
			}
		}
	})
}

// randomForest builds nodes where every parent precedes its children,
// so the result is always acyclic.
func randomForest(t *rapid.T) []StructureNode {
	n := rapid.IntRange(1, 40).Draw(t, "n")
	nodes := make([]StructureNode, 0, n)
	for i := 0; i < n; i++ {
		parent := NoParent
		if i > 0 && rapid.Bool().Draw(t, "hasParent") {
			parent = rapid.IntRange(0, i-1).Draw(t, "parent")
		}
		nodes = append(nodes, StructureNode{ID: i, ParentID: parent})
	}
	return nodes
}

func TestRegionStatsRepair(t *testing.T) {
	s := RegionStats{
		DirectDandisets: []string{"000003", "000001"},
		TotalDandisets:  []string{"000002"},
	}
	if s.Validate() {
		t.Fatal("expected invalid stats before repair")
	}
	s.Repair()
	if !s.Validate() {
		t.Fatal("expected valid stats after repair")
	}
	if !reflect.DeepEqual(s.TotalDandisets, []string{"000001", "000002", "000003"}) {
		t.Errorf("TotalDandisets = %v", s.TotalDandisets)
	}
	if got := s.DescendantOnly(); !reflect.DeepEqual(got, []string{"000002"}) {
		t.Errorf("DescendantOnly() = %v, want [000002]", got)
	}
}

func TestMeshAvailability(t *testing.T) {
	a := NewMeshAvailability([]int{313, 512}, []int{8, 567, 313}, []int{400, 8}, 997)

	tests := []struct {
		id   int
		want Category
		mesh bool
	}{
		{997, CategoryRoot, true},
		{313, CategoryData, true},
		{567, CategoryAncestor, true},
		{8, CategoryAncestor, true},
		{400, CategoryNoMesh, false},
		{1009, CategoryNone, false},
	}
	for _, tt := range tests {
		if got := a.Category(tt.id); got != tt.want {
			t.Errorf("Category(%d) = %v, want %v", tt.id, got, tt.want)
		}
		if got := a.HasMesh(tt.id); got != tt.mesh {
			t.Errorf("HasMesh(%d) = %v, want %v", tt.id, got, tt.mesh)
		}
	}
}

func TestParseColor(t *testing.T) {
	c := ParseColor("FF64FF")
	if c.R != 0xff || c.G != 0x64 || c.B != 0xff || c.A != 0xff {
		t.Errorf("ParseColor(FF64FF) = %+v", c)
	}
	c = ParseColor("#0a0b0c")
	if c.R != 0x0a || c.G != 0x0b || c.B != 0x0c {
		t.Errorf("ParseColor(#0a0b0c) = %+v", c)
	}
	c = ParseColor("not-a-colour")
	if c.R != 0xaa || c.G != 0xaa || c.B != 0xaa {
		t.Errorf("fallback colour = %+v, want AAAAAA", c)
	}
}
