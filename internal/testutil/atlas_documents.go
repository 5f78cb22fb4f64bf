package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Data documents matching Nodes, Stats, Availability and Catalog.

// StructureGraphJSON is the fixture hierarchy document.
var StructureGraphJSON = `[
  {"id": 997, "name": "root", "acronym": "root", "color_hex_triplet": "FFFFFF", "parent_structure_id": null, "children": [
    {"id": 8, "name": "Basic cell groups and regions", "acronym": "grey", "color_hex_triplet": "BFDAE3", "parent_structure_id": 997, "children": [
      {"id": 567, "name": "Cerebrum", "acronym": "CH", "color_hex_triplet": "B0F0FF", "parent_structure_id": 8, "children": [
        {"id": 313, "name": "Midbrain", "acronym": "MB", "color_hex_triplet": "FF64FF", "parent_structure_id": 567, "children": []},
        {"id": 400, "name": "Pons", "acronym": "P", "color_hex_triplet": "FF9B88", "parent_structure_id": 567, "children": []}
      ]},
      {"id": 512, "name": "Cerebellum", "acronym": "CB", "color_hex_triplet": "F0F080", "parent_structure_id": 8, "children": []}
    ]},
    {"id": 1009, "name": "fiber tracts", "acronym": "fiber tracts", "color_hex_triplet": "CCCCCC", "parent_structure_id": 997, "children": [
      {"id": 1010, "name": "optic nerve", "acronym": "II", "color_hex_triplet": "", "parent_structure_id": 1009, "children": []}
    ]}
  ]},
  {"id": 2000, "name": "unassigned", "acronym": "UA", "color_hex_triplet": "AAAAAA", "parent_structure_id": null, "children": [
    {"id": 2001, "name": "unassigned child", "acronym": "UAc", "color_hex_triplet": "AAAAAA", "parent_structure_id": 2000, "children": []}
  ]}
]`

// DandiRegionsJSON is the fixture region statistics document.
var DandiRegionsJSON = `{
  "997": {"acronym": "root", "name": "root", "file_count": 0, "dandiset_count": 0, "dandisets": [], "total_file_count": 9, "total_dandiset_count": 4, "total_dandisets": ["000017", "000020", "000030", "001176"]},
  "8": {"acronym": "grey", "name": "Basic cell groups and regions", "file_count": 0, "dandiset_count": 0, "dandisets": [], "total_file_count": 8, "total_dandiset_count": 3, "total_dandisets": ["000017", "000020", "001176"]},
  "567": {"acronym": "CH", "name": "Cerebrum", "file_count": 0, "dandiset_count": 0, "dandisets": [], "total_file_count": 6, "total_dandiset_count": 3, "total_dandisets": ["000017", "000020", "001176"]},
  "313": {"acronym": "MB", "name": "Midbrain", "color_hex_triplet": "FF64FF", "file_count": 4, "dandiset_count": 2, "dandisets": ["000017", "001176"], "total_file_count": 4, "total_dandiset_count": 2, "total_dandisets": ["000017", "001176"]},
  "400": {"acronym": "P", "name": "Pons", "color_hex_triplet": "FF9B88", "file_count": 2, "dandiset_count": 1, "dandisets": ["000020"], "total_file_count": 2, "total_dandiset_count": 1, "total_dandisets": ["000020"]},
  "512": {"acronym": "CB", "name": "Cerebellum", "color_hex_triplet": "F0F080", "file_count": 2, "dandiset_count": 1, "dandisets": ["001176"], "total_file_count": 2, "total_dandiset_count": 1, "total_dandisets": ["001176"]},
  "1009": {"acronym": "fiber tracts", "name": "fiber tracts", "file_count": 0, "dandiset_count": 0, "dandisets": [], "total_file_count": 1, "total_dandiset_count": 1, "total_dandisets": ["000030"]},
  "1010": {"acronym": "II", "name": "optic nerve", "file_count": 1, "dandiset_count": 1, "dandisets": ["000030"], "total_file_count": 1, "total_dandiset_count": 1, "total_dandisets": ["000030"]}
}`

// MeshManifestJSON is the fixture mesh manifest.
var MeshManifestJSON = `{
  "data_structures": [313, 400, 512, 1009],
  "ancestor_structures": [8, 567],
  "no_mesh_structures": [1010],
  "root_id": 997
}`

// DandisetAssetsJSON is the fixture asset document.
var DandisetAssetsJSON = `{
  "001176": [
    {"path": "sub-01/sub-01_ses-a_ecephys.nwb", "asset_id": "asset-01a", "session": "ses-a", "regions": [{"id": 313, "acronym": "MB", "name": "Midbrain"}]},
    {"path": "sub-01/sub-01_ses-b_ecephys.nwb", "asset_id": "asset-01b", "session": "ses-b", "regions": [{"id": 512, "acronym": "CB", "name": "Cerebellum"}]},
    {"path": "sub-02/sub-02_ecephys.nwb", "asset_id": "asset-02", "regions": [{"id": 313, "acronym": "MB", "name": "Midbrain"}, {"id": 512, "acronym": "CB", "name": "Cerebellum"}]}
  ],
  "000017": [
    {"path": "sub-A_ecephys.nwb", "asset_id": "asset-A", "regions": [{"id": 313, "acronym": "MB", "name": "Midbrain"}]}
  ],
  "000020": [
    {"path": "sub-P/sub-P_ecephys.nwb", "asset_id": "asset-P", "regions": [{"id": 400, "acronym": "P", "name": "Pons"}]}
  ],
  "000030": [
    {"path": "sub-N/sub-N_ecephys.nwb", "asset_id": "asset-N", "regions": [{"id": 1010, "acronym": "II", "name": "optic nerve"}]}
  ]
}`

// LastUpdatedJSON is the optional data timestamp document.
var LastUpdatedJSON = `{"timestamp": "2026-09-30T12:00:00Z", "mode": "full"}`

// ElectrodeManifestJSON lists dandisets with electrode coordinates.
var ElectrodeManifestJSON = `["001176"]`

// ElectrodesMultiJSON holds coordinates for DandisetMulti in 10 µm units,
// which the unit heuristic scales by ten.
var ElectrodesMultiJSON = `{
  "asset-01a": [[400, 300, 570], [410, 305, 575]],
  "asset-02": [[1000, 450, 570]]
}`

// MeshBox places one fixture mesh as an axis-aligned box (µm).
type MeshBox struct {
	X, Y, Z float64
	Half    float64
}

// MeshBoxes are the fixture mesh placements.
var MeshBoxes = map[int]MeshBox{
	RootID:     {6600, 4000, 5700, 5000},
	GreyID:     {6600, 4000, 5700, 4000},
	CerebrumID: {5000, 3500, 5700, 2500},
	MidbrainID: {4000, 3000, 5700, 600},
	PonsID:     {6000, 4000, 5700, 700},
	CerebellID: {10000, 4500, 5700, 1500},
	FiberID:    {8000, 6500, 5700, 800},
}

// CubeOBJ returns a Wavefront OBJ cube centred at b.
func CubeOBJ(b MeshBox) string {
	var sb strings.Builder
	sb.WriteString("# fixture cube\no cube\n")
	for _, dx := range []float64{-1, 1} {
		for _, dy := range []float64{-1, 1} {
			for _, dz := range []float64{-1, 1} {
				fmt.Fprintf(&sb, "v %g %g %g\n", b.X+dx*b.Half, b.Y+dy*b.Half, b.Z+dz*b.Half)
			}
		}
	}
	// Vertex n = 1 + 4*ix + 2*iy + iz.
	sb.WriteString("f 1 2 4 3\nf 5 7 8 6\nf 1 5 6 2\nf 3 4 8 7\nf 1 3 7 5\nf 2 6 8 4\n")
	return sb.String()
}

// AtlasFiles returns every fixture document keyed by source path,
// including one OBJ per mesh-bearing structure.
func AtlasFiles() map[string]string {
	files := map[string]string{
		"structure_graph.json":           StructureGraphJSON,
		"dandi_regions.json":             DandiRegionsJSON,
		"mesh_manifest.json":             MeshManifestJSON,
		"dandiset_assets.json":           DandisetAssetsJSON,
		"last_updated.json":              LastUpdatedJSON,
		"dandisets_with_electrodes.json": ElectrodeManifestJSON,
	}
	files["electrodes/"+DandisetMulti+".json"] = ElectrodesMultiJSON
	for id, box := range MeshBoxes {
		files[MeshPath(id)] = CubeOBJ(box)
	}
	return files
}

// MeshPath returns the source path of a structure's mesh.
func MeshPath(id int) string {
	return fmt.Sprintf("meshes/%d.obj", id)
}

// NewAtlasSource returns a MemSource serving AtlasFiles.
func NewAtlasSource() *MemSource {
	return NewMemSource(AtlasFiles())
}

// WriteAtlasDir writes AtlasFiles under dir so a directory source can
// serve them.
func WriteAtlasDir(t TB, dir string) {
	t.Helper()
	for name, content := range AtlasFiles() {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}
