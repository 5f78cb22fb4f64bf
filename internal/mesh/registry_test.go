package mesh

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/testutil"
)

func triangle() *Geometry {
	return &Geometry{
		Vertices:  []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Triangles: [][3]int32{{0, 1, 2}},
	}
}

func TestRegistryBeginDeduplicates(t *testing.T) {
	r := NewRegistry(nil)

	got := r.Begin([]int{1, 2, 2, 3})
	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Begin = %v, want [1 2 3]", got)
	}
	if got := r.Begin([]int{1, 2, 4}); !reflect.DeepEqual(got, []int{4}) {
		t.Errorf("Begin with in-flight ids = %v, want [4]", got)
	}
	if r.Status(1) != StatusPending {
		t.Errorf("Status(1) = %v, want pending", r.Status(1))
	}

	if _, ok := r.Complete(1, triangle(), nil); !ok {
		t.Fatal("Complete(1) should create an entry")
	}
	if got := r.Begin([]int{1}); len(got) != 0 {
		t.Errorf("Begin of loaded id = %v, want none", got)
	}
}

func TestRegistryNegativeCache(t *testing.T) {
	r := NewRegistry(nil)
	r.Begin([]int{7})

	failure := errors.New("404")
	if _, ok := r.Complete(7, nil, failure); ok {
		t.Fatal("failed fetch must not create an entry")
	}
	if r.Status(7) != StatusFailed {
		t.Errorf("Status = %v, want failed", r.Status(7))
	}
	if !errors.Is(r.Err(7), failure) {
		t.Errorf("Err = %v", r.Err(7))
	}
	if got := r.Begin([]int{7, 7}); len(got) != 0 {
		t.Errorf("failed id was scheduled again: %v", got)
	}

	r.Begin([]int{8})
	r.Complete(8, nil, nil)
	if !errors.Is(r.Err(8), ErrMeshFetch) {
		t.Errorf("nil geometry Err = %v, want ErrMeshFetch", r.Err(8))
	}
}

func TestRegistryIgnoresUnrequestedCompletion(t *testing.T) {
	r := NewRegistry(nil)
	if _, ok := r.Complete(5, triangle(), nil); ok {
		t.Error("completion without Begin should be ignored")
	}
	if r.Status(5) != StatusUnknown {
		t.Errorf("Status = %v, want unknown", r.Status(5))
	}
}

func TestRegistryMaterialAndApplied(t *testing.T) {
	idx := testutil.Index(t)
	stats := testutil.Stats()
	avail := testutil.Availability()
	r := NewRegistry(func(id int) Material {
		return BaseMaterial(id, stats, avail, idx)
	})

	r.Begin([]int{testutil.MidbrainID, testutil.RootID, testutil.GreyID})
	mb, _ := r.Complete(testutil.MidbrainID, triangle(), nil)
	root, _ := r.Complete(testutil.RootID, triangle(), nil)
	grey, _ := r.Complete(testutil.GreyID, triangle(), nil)

	if mb.Base.Color != atlas.ParseColor("FF64FF") {
		t.Errorf("313 colour = %v", mb.Base.Color)
	}
	if want := DisplayOpacity(2); mb.Base.Opacity != want {
		t.Errorf("313 opacity = %v, want %v", mb.Base.Opacity, want)
	}
	if root.Base.Opacity != RootOpacity || root.Base.Category != atlas.CategoryRoot {
		t.Errorf("root material = %+v", root.Base)
	}
	if !grey.Base.Wireframe {
		t.Error("ancestor structure should be wireframe")
	}
	// No stats colour for grey: hierarchy colour is used.
	if grey.Base.Color != atlas.ParseColor("BFDAE3") {
		t.Errorf("grey colour = %v", grey.Base.Color)
	}

	r.SetApplied(testutil.MidbrainID, Appearance{Role: RoleActive, Visible: true, Pickable: true})
	e, _ := r.Entry(testutil.MidbrainID)
	if e.Applied.Role != RoleActive {
		t.Errorf("Applied.Role = %v", e.Applied.Role)
	}
	if got := r.LoadedIDs(); !reflect.DeepEqual(got, []int{8, 313, 997}) {
		t.Errorf("LoadedIDs = %v", got)
	}
	if l, p, f := r.Counts(); l != 3 || p != 0 || f != 0 {
		t.Errorf("Counts = %d %d %d", l, p, f)
	}
}

func TestDisplayOpacity(t *testing.T) {
	tests := []struct {
		total int
		want  float64
	}{
		{0, 0.3},
		{1, 0.5},
		{3, 0.7},
		{7, 0.9},
		{1000, 0.9},
		{-4, 0.3},
	}
	for _, tt := range tests {
		if got := DisplayOpacity(tt.total); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DisplayOpacity(%d) = %v, want %v", tt.total, got, tt.want)
		}
	}
}
