package testutil

import (
	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
)

// Atlas fixture shared by the projector, engine and TUI tests.
//
//	997 root
//	├── 8 grey (ancestor mesh)
//	│   ├── 567 CH (ancestor mesh)
//	│   │   ├── 313 MB (data)
//	│   │   └── 400 P (data)
//	│   └── 512 CB (data)
//	└── 1009 fiber tracts (data)
//	    └── 1010 II (no mesh)
//	2000 unassigned (second root, not in the manifest)
//	└── 2001 unassigned child

// Structure ids of the fixture.
const (
	RootID     = 997
	GreyID     = 8
	CerebrumID = 567
	MidbrainID = 313
	PonsID     = 400
	CerebellID = 512
	FiberID    = 1009
	OpticID    = 1010
	OtherRoot  = 2000
	OtherChild = 2001
)

// Dandiset ids of the fixture.
const (
	DandisetMulti   = "001176" // tags 313 and 512 across two subjects
	DandisetSingle  = "000017" // tags 313, one flat subject
	DandisetPons    = "000020" // tags 400
	DandisetNoMesh  = "000030" // tags 1010, a structure without geometry
	DandisetUnknown = "999999"
)

// Nodes returns the fixture hierarchy in document order.
func Nodes() []atlas.StructureNode {
	return []atlas.StructureNode{
		{ID: RootID, Name: "root", Acronym: "root", ColorHex: "FFFFFF", ParentID: atlas.NoParent},
		{ID: GreyID, Name: "Basic cell groups and regions", Acronym: "grey", ColorHex: "BFDAE3", ParentID: RootID},
		{ID: CerebrumID, Name: "Cerebrum", Acronym: "CH", ColorHex: "B0F0FF", ParentID: GreyID},
		{ID: MidbrainID, Name: "Midbrain", Acronym: "MB", ColorHex: "FF64FF", ParentID: CerebrumID},
		{ID: PonsID, Name: "Pons", Acronym: "P", ColorHex: "FF9B88", ParentID: CerebrumID},
		{ID: CerebellID, Name: "Cerebellum", Acronym: "CB", ColorHex: "F0F080", ParentID: GreyID},
		{ID: FiberID, Name: "fiber tracts", Acronym: "fiber tracts", ColorHex: "CCCCCC", ParentID: RootID},
		{ID: OpticID, Name: "optic nerve", Acronym: "II", ColorHex: "", ParentID: FiberID},
		{ID: OtherRoot, Name: "unassigned", Acronym: "UA", ColorHex: "AAAAAA", ParentID: atlas.NoParent},
		{ID: OtherChild, Name: "unassigned child", Acronym: "UAc", ColorHex: "AAAAAA", ParentID: OtherRoot},
	}
}

// TB is the subset of testing.TB the fixtures need. Both *testing.T and
// *rapid.T satisfy it.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Index builds the fixture index, failing the test on error.
func Index(t TB) *atlas.Index {
	t.Helper()
	idx, err := atlas.NewIndex(Nodes())
	if err != nil {
		t.Fatalf("fixture index: %v", err)
	}
	return idx
}

// Stats returns the fixture region statistics.
func Stats() atlas.StatsTable {
	all := []string{"000017", "000020", "000030", "001176"}
	grey := []string{"000017", "000020", "001176"}
	return atlas.StatsTable{
		RootID:     {StructureID: RootID, Name: "root", Acronym: "root", TotalDandisets: all, TotalFileCount: 9},
		GreyID:     {StructureID: GreyID, Name: "Basic cell groups and regions", Acronym: "grey", TotalDandisets: grey, TotalFileCount: 8},
		CerebrumID: {StructureID: CerebrumID, Name: "Cerebrum", Acronym: "CH", TotalDandisets: grey, TotalFileCount: 6},
		MidbrainID: {StructureID: MidbrainID, Name: "Midbrain", Acronym: "MB", ColorHex: "FF64FF",
			DirectDandisets: []string{"000017", "001176"}, TotalDandisets: []string{"000017", "001176"},
			DirectFileCount: 4, TotalFileCount: 4},
		PonsID: {StructureID: PonsID, Name: "Pons", Acronym: "P", ColorHex: "FF9B88",
			DirectDandisets: []string{"000020"}, TotalDandisets: []string{"000020"},
			DirectFileCount: 2, TotalFileCount: 2},
		CerebellID: {StructureID: CerebellID, Name: "Cerebellum", Acronym: "CB", ColorHex: "F0F080",
			DirectDandisets: []string{"001176"}, TotalDandisets: []string{"001176"},
			DirectFileCount: 2, TotalFileCount: 2},
		FiberID: {StructureID: FiberID, Name: "fiber tracts", Acronym: "fiber tracts",
			TotalDandisets: []string{"000030"}, TotalFileCount: 1},
		OpticID: {StructureID: OpticID, Name: "optic nerve", Acronym: "II",
			DirectDandisets: []string{"000030"}, TotalDandisets: []string{"000030"},
			DirectFileCount: 1, TotalFileCount: 1},
	}
}

// Availability returns the fixture mesh manifest.
func Availability() atlas.MeshAvailability {
	return atlas.NewMeshAvailability(
		[]int{MidbrainID, PonsID, CerebellID, FiberID},
		[]int{GreyID, CerebrumID},
		[]int{OpticID},
		RootID,
	)
}

// Catalog returns the fixture dandiset assets.
func Catalog() dandiset.Catalog {
	return dandiset.Catalog{
		DandisetMulti: {
			{Path: "sub-01/sub-01_ses-a_ecephys.nwb", AssetID: "asset-01a", Regions: []int{MidbrainID}, Session: "ses-a"},
			{Path: "sub-01/sub-01_ses-b_ecephys.nwb", AssetID: "asset-01b", Regions: []int{CerebellID}, Session: "ses-b"},
			{Path: "sub-02/sub-02_ecephys.nwb", AssetID: "asset-02", Regions: []int{MidbrainID, CerebellID}},
		},
		DandisetSingle: {
			{Path: "sub-A_ecephys.nwb", AssetID: "asset-A", Regions: []int{MidbrainID}},
		},
		DandisetPons: {
			{Path: "sub-P/sub-P_ecephys.nwb", AssetID: "asset-P", Regions: []int{PonsID}},
		},
		DandisetNoMesh: {
			{Path: "sub-N/sub-N_ecephys.nwb", AssetID: "asset-N", Regions: []int{OpticID}},
		},
	}
}

// AllMeshIDs returns every fixture structure that has geometry, root first.
func AllMeshIDs() []int {
	return []int{RootID, GreyID, CerebrumID, MidbrainID, PonsID, CerebellID, FiberID}
}
