package datastore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
	"github.com/npratt/dandiatlas/internal/electrode"
)

// Document paths relative to the data root.
const (
	HierarchyDoc         = "structure_graph.json"
	RegionStatsDoc       = "dandi_regions.json"
	MeshManifestDoc      = "mesh_manifest.json"
	AssetsDoc            = "dandiset_assets.json"
	LastUpdatedDoc       = "last_updated.json"
	ElectrodeManifestDoc = "dandisets_with_electrodes.json"
)

// ElectrodeDoc returns the coordinate document of a dandiset.
func ElectrodeDoc(dandisetID string) string {
	return "electrodes/" + dandisetID + ".json"
}

// Store decodes the data documents of a Source.
type Store struct {
	src    Source
	logger *slog.Logger
}

// NewStore returns a store over src. A nil logger uses slog.Default().
func NewStore(src Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{src: src, logger: logger}
}

// Source returns the underlying source.
func (s *Store) Source() Source { return s.src }

func (s *Store) decode(ctx context.Context, name string, v any) error {
	rc, err := s.src.Open(ctx, name)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

type graphNode struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Acronym  string      `json:"acronym"`
	Color    string      `json:"color_hex_triplet"`
	ParentID *int        `json:"parent_structure_id"`
	Children []graphNode `json:"children"`
}

// LoadHierarchy reads the structure forest and flattens it in pre-order.
// parent_structure_id wins over nesting; a null parent inside a children
// list takes the enclosing node.
func (s *Store) LoadHierarchy(ctx context.Context) ([]atlas.StructureNode, error) {
	var forest []graphNode
	if err := s.decode(ctx, HierarchyDoc, &forest); err != nil {
		return nil, err
	}

	var out []atlas.StructureNode
	type frame struct {
		node   graphNode
		parent int
	}
	stack := make([]frame, 0, len(forest))
	for i := len(forest) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: forest[i], parent: atlas.NoParent})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		parent := f.parent
		if f.node.ParentID != nil {
			parent = *f.node.ParentID
		}
		out = append(out, atlas.StructureNode{
			ID:       f.node.ID,
			Name:     f.node.Name,
			Acronym:  f.node.Acronym,
			ColorHex: f.node.Color,
			ParentID: parent,
		})
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], parent: f.node.ID})
		}
	}
	return out, nil
}

type regionDoc struct {
	Acronym        string   `json:"acronym"`
	Name           string   `json:"name"`
	Color          string   `json:"color_hex_triplet"`
	FileCount      int      `json:"file_count"`
	Dandisets      []string `json:"dandisets"`
	TotalFileCount int      `json:"total_file_count"`
	TotalDandisets []string `json:"total_dandisets"`
}

// LoadStats reads the per-structure dandiset statistics. Entries whose total
// set misses direct members are repaired and logged.
func (s *Store) LoadStats(ctx context.Context) (atlas.StatsTable, error) {
	var doc map[string]regionDoc
	if err := s.decode(ctx, RegionStatsDoc, &doc); err != nil {
		return nil, err
	}

	table := make(atlas.StatsTable, len(doc))
	for key, r := range doc {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("decode %s: structure key %q: %w", RegionStatsDoc, key, err)
		}
		st := atlas.RegionStats{
			StructureID:     id,
			Name:            r.Name,
			Acronym:         r.Acronym,
			ColorHex:        r.Color,
			DirectDandisets: sortedCopy(r.Dandisets),
			TotalDandisets:  sortedCopy(r.TotalDandisets),
			DirectFileCount: r.FileCount,
			TotalFileCount:  r.TotalFileCount,
		}
		if !st.Validate() {
			s.logger.Warn("region total misses direct dandisets, repairing",
				"structure", id, "direct", len(st.DirectDandisets), "total", len(st.TotalDandisets))
			st.Repair()
		}
		table[id] = st
	}
	return table, nil
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

type manifestDoc struct {
	Data     []int `json:"data_structures"`
	Ancestor []int `json:"ancestor_structures"`
	NoMesh   []int `json:"no_mesh_structures"`
	RootID   *int  `json:"root_id"`
}

// DefaultRootID is the root structure when the manifest names none.
const DefaultRootID = 997

// LoadManifest reads the mesh availability manifest.
func (s *Store) LoadManifest(ctx context.Context) (atlas.MeshAvailability, error) {
	var doc manifestDoc
	if err := s.decode(ctx, MeshManifestDoc, &doc); err != nil {
		return atlas.MeshAvailability{}, err
	}
	root := DefaultRootID
	if doc.RootID != nil {
		root = *doc.RootID
	}
	return atlas.NewMeshAvailability(doc.Data, doc.Ancestor, doc.NoMesh, root), nil
}

type assetDoc struct {
	Path    string `json:"path"`
	AssetID string `json:"asset_id"`
	Regions []struct {
		ID int `json:"id"`
	} `json:"regions"`
	Session string `json:"session"`
	Desc    string `json:"desc"`
}

// LoadCatalog reads the per-dandiset asset records.
func (s *Store) LoadCatalog(ctx context.Context) (dandiset.Catalog, error) {
	var doc map[string][]assetDoc
	if err := s.decode(ctx, AssetsDoc, &doc); err != nil {
		return nil, err
	}
	catalog := make(dandiset.Catalog, len(doc))
	for id, assets := range doc {
		list := make([]dandiset.Asset, 0, len(assets))
		for _, a := range assets {
			regions := make([]int, 0, len(a.Regions))
			for _, r := range a.Regions {
				regions = append(regions, r.ID)
			}
			list = append(list, dandiset.Asset{
				Path:    a.Path,
				AssetID: a.AssetID,
				Regions: regions,
				Session: a.Session,
				Desc:    a.Desc,
			})
		}
		catalog[id] = list
	}
	return catalog, nil
}

// LastUpdated is the data build timestamp.
type LastUpdated struct {
	Timestamp time.Time
	Raw       string
	Mode      string
}

// String returns the parsed timestamp in UTC, or the raw value when it
// did not parse.
func (l LastUpdated) String() string {
	if !l.Timestamp.IsZero() {
		return l.Timestamp.UTC().Format("2006-01-02 15:04 MST")
	}
	return l.Raw
}

// LoadLastUpdated reads the optional build timestamp. A missing document
// returns nil without error.
func (s *Store) LoadLastUpdated(ctx context.Context) (*LastUpdated, error) {
	var doc struct {
		Timestamp string `json:"timestamp"`
		Mode      string `json:"mode"`
	}
	if err := s.decode(ctx, LastUpdatedDoc, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	lu := &LastUpdated{Raw: doc.Timestamp, Mode: doc.Mode}
	if ts, err := time.Parse(time.RFC3339, doc.Timestamp); err == nil {
		lu.Timestamp = ts
	}
	return lu, nil
}

// LoadElectrodeManifest reads the optional list of dandisets that have
// electrode coordinates. A missing document returns nil without error.
func (s *Store) LoadElectrodeManifest(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.decode(ctx, ElectrodeManifestDoc, &ids); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadElectrodes reads the raw electrode coordinates of a dandiset. Points
// with fewer than three coordinates are dropped.
func (s *Store) LoadElectrodes(ctx context.Context, dandisetID string) (electrode.Set, error) {
	var doc map[string][][]float64
	if err := s.decode(ctx, ElectrodeDoc(dandisetID), &doc); err != nil {
		return nil, err
	}
	set := make(electrode.Set, len(doc))
	for assetID, coords := range doc {
		pts := make([]electrode.Point, 0, len(coords))
		for _, c := range coords {
			if len(c) < 3 {
				continue
			}
			pts = append(pts, electrode.Point{c[0], c[1], c[2]})
		}
		set[assetID] = pts
	}
	return set, nil
}
