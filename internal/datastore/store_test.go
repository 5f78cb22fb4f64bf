package datastore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/electrode"
	"github.com/npratt/dandiatlas/internal/testutil"
)

func newStore(src Source) *Store {
	return NewStore(src, nil)
}

func TestLoadHierarchy(t *testing.T) {
	nodes, err := newStore(testutil.NewAtlasSource()).LoadHierarchy(context.Background())
	require.NoError(t, err)

	want := testutil.Nodes()
	require.Len(t, nodes, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, nodes[i].ID, "pre-order position %d", i)
		assert.Equal(t, want[i].ParentID, nodes[i].ParentID, "parent of %d", want[i].ID)
		assert.Equal(t, want[i].Acronym, nodes[i].Acronym)
	}

	idx, err := atlas.NewIndex(nodes)
	require.NoError(t, err)
	assert.Equal(t, []int{testutil.RootID, testutil.OtherRoot}, idx.Roots())
}

func TestLoadHierarchyNestingFallback(t *testing.T) {
	src := testutil.NewMemSource(map[string]string{
		HierarchyDoc: `[{"id": 1, "children": [{"id": 2, "children": [{"id": 3}]}]}]`,
	})
	nodes, err := newStore(src).LoadHierarchy(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, atlas.NoParent, nodes[0].ParentID)
	assert.Equal(t, 1, nodes[1].ParentID)
	assert.Equal(t, 2, nodes[2].ParentID)
}

func TestLoadStats(t *testing.T) {
	stats, err := newStore(testutil.NewAtlasSource()).LoadStats(context.Background())
	require.NoError(t, err)

	assert.Len(t, stats, 8)
	mb, ok := stats.Get(testutil.MidbrainID)
	require.True(t, ok)
	assert.Equal(t, []string{"000017", "001176"}, mb.DirectDandisets)
	assert.Equal(t, 4, mb.TotalFileCount)
	assert.Equal(t, "FF64FF", mb.ColorHex)

	_, ok = stats.Get(testutil.OtherRoot)
	assert.False(t, ok)
}

func TestLoadStatsRepairsTotals(t *testing.T) {
	src := testutil.NewMemSource(map[string]string{
		RegionStatsDoc: `{"5": {"acronym": "X", "dandisets": ["b", "a"], "total_dandisets": ["a"]}}`,
	})
	stats, err := newStore(src).LoadStats(context.Background())
	require.NoError(t, err)
	st := stats[5]
	assert.True(t, st.Validate())
	assert.Equal(t, []string{"a", "b"}, st.TotalDandisets)
}

func TestLoadStatsBadKey(t *testing.T) {
	src := testutil.NewMemSource(map[string]string{RegionStatsDoc: `{"root": {}}`})
	_, err := newStore(src).LoadStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"root"`)
}

func TestLoadManifest(t *testing.T) {
	avail, err := newStore(testutil.NewAtlasSource()).LoadManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.RootID, avail.RootID)
	assert.Equal(t, atlas.CategoryData, avail.Category(testutil.PonsID))
	assert.Equal(t, atlas.CategoryAncestor, avail.Category(testutil.CerebrumID))
	assert.False(t, avail.HasMesh(testutil.OpticID))

	src := testutil.NewMemSource(map[string]string{MeshManifestDoc: `{"data_structures": [1]}`})
	avail, err = newStore(src).LoadManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultRootID, avail.RootID)
}

func TestLoadCatalog(t *testing.T) {
	catalog, err := newStore(testutil.NewAtlasSource()).LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.Catalog(), catalog)
}

func TestOptionalDocuments(t *testing.T) {
	ctx := context.Background()
	store := newStore(testutil.NewAtlasSource())

	lu, err := store.LoadLastUpdated(ctx)
	require.NoError(t, err)
	require.NotNil(t, lu)
	assert.Equal(t, "full", lu.Mode)
	assert.Equal(t, "2026-09-30 12:00 UTC", lu.String())

	ids, err := store.LoadElectrodeManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testutil.DandisetMulti}, ids)

	src := testutil.NewAtlasSource()
	src.Remove(LastUpdatedDoc)
	src.Remove(ElectrodeManifestDoc)
	store = newStore(src)

	lu, err = store.LoadLastUpdated(ctx)
	require.NoError(t, err)
	assert.Nil(t, lu)
	ids, err = store.LoadElectrodeManifest(ctx)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestLastUpdatedUnparsedTimestamp(t *testing.T) {
	src := testutil.NewMemSource(map[string]string{LastUpdatedDoc: `{"timestamp": "yesterday"}`})
	lu, err := newStore(src).LoadLastUpdated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yesterday", lu.String())
}

func TestLoadElectrodes(t *testing.T) {
	src := testutil.NewAtlasSource()
	src.Set(ElectrodeDoc("x"), `{"a": [[1, 2, 3], [4, 5]], "b": []}`)
	set, err := newStore(src).LoadElectrodes(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, electrode.Set{"a": {{1, 2, 3}}, "b": {}}, set)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "meshes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meshes", "1.obj"), []byte("v 0 0 0\n"), 0o644))

	src := NewSource(dir, 0)
	rc, err := src.Open(context.Background(), "meshes/1.obj")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "v 0 0 0\n", string(body))

	// Paths cannot escape the root.
	_, err = src.Open(context.Background(), "../../meshes/1.obj")
	require.NoError(t, err)

	_, err = src.Open(context.Background(), "missing.json")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/data/mesh_manifest.json":
			_, _ = io.WriteString(w, testutil.MeshManifestJSON)
		case "/data/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewSource(srv.URL+"/data", 0)
	_, isHTTP := src.(*HTTPSource)
	require.True(t, isHTTP)

	avail, err := newStore(src).LoadManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testutil.RootID, avail.RootID)

	_, err = src.Open(context.Background(), "missing.json")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = src.Open(context.Background(), "broken.json")
	require.Error(t, err)
	assert.False(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, strings.Contains(err.Error(), "500"))
}
