package mesh

import (
	"context"
	"errors"
	"io/fs"
	"testing"

	"github.com/npratt/dandiatlas/internal/testutil"
)

func TestLoaderFetchOne(t *testing.T) {
	src := testutil.NewAtlasSource()
	l := NewLoader(src)

	res := l.FetchOne(context.Background(), testutil.MidbrainID)
	if res.Err != nil {
		t.Fatalf("FetchOne: %v", res.Err)
	}
	if c := res.Geometry.Centroid(); c != (Vec3{4000, 3000, 5700}) {
		t.Errorf("centroid = %v", c)
	}

	res = l.FetchOne(context.Background(), testutil.OpticID)
	if !errors.Is(res.Err, ErrMeshFetch) {
		t.Errorf("missing mesh error = %v, want ErrMeshFetch", res.Err)
	}
	if !errors.Is(res.Err, fs.ErrNotExist) {
		t.Errorf("missing mesh error should keep the cause: %v", res.Err)
	}

	src.Set(testutil.MeshPath(testutil.PonsID), "not an obj")
	res = l.FetchOne(context.Background(), testutil.PonsID)
	if !errors.Is(res.Err, ErrMeshFetch) {
		t.Errorf("unparseable mesh error = %v, want ErrMeshFetch", res.Err)
	}
}

func TestLoaderFetchIsolatesFailures(t *testing.T) {
	src := testutil.NewAtlasSource()
	src.Fail(testutil.MeshPath(testutil.PonsID), errors.New("connection reset"))
	l := NewLoader(src, WithConcurrency(2))

	ids := []int{testutil.MidbrainID, testutil.PonsID, testutil.CerebellID, testutil.OpticID}
	results, err := l.Fetch(context.Background(), ids)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(results) != len(ids) {
		t.Fatalf("results = %d, want %d", len(results), len(ids))
	}
	for i, res := range results {
		if res.ID != ids[i] {
			t.Errorf("result %d id = %d, want %d", i, res.ID, ids[i])
		}
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy meshes failed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil || results[3].Err == nil {
		t.Error("broken meshes should fail")
	}
}

func TestLoaderFetchChunked(t *testing.T) {
	src := testutil.NewAtlasSource()
	l := NewLoader(src)

	ids := testutil.AllMeshIDs()
	var progress []int
	results, err := l.FetchChunked(context.Background(), ids, 3, func(done, total int, chunk []Result) {
		if total != len(ids) {
			t.Errorf("total = %d, want %d", total, len(ids))
		}
		if len(chunk) == 0 || len(chunk) > 3 {
			t.Errorf("chunk size = %d", len(chunk))
		}
		progress = append(progress, done)
	})
	if err != nil {
		t.Fatalf("FetchChunked: %v", err)
	}
	if len(results) != len(ids) {
		t.Errorf("results = %d, want %d", len(results), len(ids))
	}
	want := []int{3, 6, 7}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress = %v, want %v", progress, want)
			break
		}
	}
	for _, id := range ids {
		if n := src.Opens(testutil.MeshPath(id)); n != 1 {
			t.Errorf("mesh %d opened %d times", id, n)
		}
	}
}

func TestLoaderFetchCancelled(t *testing.T) {
	src := testutil.NewAtlasSource()
	l := NewLoader(src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := l.FetchChunked(ctx, []int{testutil.MidbrainID, testutil.PonsID}, 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want the first chunk only", len(results))
	}
	if !errors.Is(results[0].Err, ErrMeshFetch) {
		t.Errorf("cancelled result error = %v", results[0].Err)
	}
}

func TestLoaderWithRegistryDedup(t *testing.T) {
	src := testutil.NewAtlasSource()
	l := NewLoader(src)
	r := NewRegistry(nil)

	// Two overlapping requests: the second sees the first's ids in flight.
	first := r.Begin([]int{testutil.MidbrainID, testutil.PonsID})
	second := r.Begin([]int{testutil.PonsID, testutil.CerebellID})

	results, _ := l.Fetch(context.Background(), append(first, second...))
	for _, res := range results {
		r.Complete(res.ID, res.Geometry, res.Err)
	}
	if n := src.Opens(testutil.MeshPath(testutil.PonsID)); n != 1 {
		t.Errorf("pons opened %d times, want 1", n)
	}
	if got := r.LoadedIDs(); len(got) != 3 {
		t.Errorf("LoadedIDs = %v", got)
	}
}
