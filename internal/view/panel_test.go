package view

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/selection"
	"github.com/npratt/dandiatlas/internal/testutil"
)

func panelInputs(ctrl *selection.Controller, page int) PanelInputs {
	return PanelInputs{
		State:    ctrl.State(),
		Scope:    ctrl.Scope(),
		Index:    ctrl.Index(),
		Stats:    testutil.Stats(),
		RootID:   testutil.RootID,
		Subjects: ctrl.Subjects(),
		Titles:   map[string]string{"001176": "Human hippocampus recordings"},
		Page:     page,
	}
}

func TestRegionDandisetsDirectFirst(t *testing.T) {
	stats := atlas.RegionStats{
		DirectDandisets: []string{"000009", "000001"},
		TotalDandisets:  []string{"000001", "000005", "000009"},
	}
	got := RegionDandisets(stats)
	want := []DandisetItem{
		{ID: "000009", Direct: true},
		{ID: "000001", Direct: true},
		{ID: "000005"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RegionDandisets = %+v, want %+v", got, want)
	}
}

func TestProjectPanelDefaultListsRoot(t *testing.T) {
	ctrl := selection.NewController(testutil.Index(t), testutil.Catalog())
	p := ProjectPanel(panelInputs(ctrl, 0))
	if p.Mode != PanelRegion || p.RegionID != testutil.RootID {
		t.Errorf("panel = %+v", p)
	}
	if p.TotalItems != 4 {
		t.Errorf("TotalItems = %d, want 4", p.TotalItems)
	}
	if p.Items[3].Title != "Human hippocampus recordings" {
		t.Errorf("title lookup failed: %+v", p.Items[3])
	}
	if p.Items[0].Title != "" {
		t.Errorf("unresolved title = %q, want empty placeholder", p.Items[0].Title)
	}
}

func TestProjectPanelPagination(t *testing.T) {
	idx := testutil.Index(t)
	ctrl := selection.NewController(idx, testutil.Catalog())
	if err := ctrl.SelectRegion(testutil.CerebrumID); err != nil {
		t.Fatal(err)
	}

	var total []string
	for i := 0; i < 45; i++ {
		total = append(total, fmt.Sprintf("%06d", i))
	}
	stats := testutil.Stats()
	stats[testutil.CerebrumID] = atlas.RegionStats{
		StructureID:     testutil.CerebrumID,
		DirectDandisets: []string{"000044"},
		TotalDandisets:  total,
	}

	tests := []struct {
		page      int
		wantPage  int
		wantLen   int
		wantFirst string
	}{
		{0, 0, 20, "000044"},
		{1, 1, 20, "000019"},
		{2, 2, 5, "000039"},
		{9, 2, 5, "000039"},
		{-1, 0, 20, "000044"},
	}
	for _, tt := range tests {
		in := panelInputs(ctrl, tt.page)
		in.Stats = stats
		p := ProjectPanel(in)
		if p.Pages != 3 {
			t.Errorf("Pages = %d, want 3", p.Pages)
		}
		if p.Page != tt.wantPage || len(p.Items) != tt.wantLen {
			t.Errorf("page %d: got page %d with %d items", tt.page, p.Page, len(p.Items))
			continue
		}
		if p.Items[0].ID != tt.wantFirst {
			t.Errorf("page %d first = %s, want %s", tt.page, p.Items[0].ID, tt.wantFirst)
		}
	}
}

func TestProjectPanelDandisetRows(t *testing.T) {
	ctrl := selection.NewController(testutil.Index(t), testutil.Catalog())
	if err := ctrl.SelectDandiset(testutil.DandisetMulti); err != nil {
		t.Fatal(err)
	}
	p := ProjectPanel(panelInputs(ctrl, 0))

	if p.Mode != PanelDandiset || p.Subtitle != "Human hippocampus recordings" {
		t.Errorf("panel header = %q / %q", p.Heading, p.Subtitle)
	}
	if len(p.Rows) != 3 {
		t.Fatalf("rows = %+v", p.Rows)
	}
	if !p.Rows[0].AllSubjects || !p.Rows[0].Selected || p.Rows[0].Label != AllSubjectsLabel {
		t.Errorf("first row = %+v, want selected All Subjects", p.Rows[0])
	}
	if !p.Rows[1].Group || p.Rows[1].SubjectID != "sub-01" {
		t.Errorf("sub-01 row = %+v, want group", p.Rows[1])
	}
	if p.Rows[2].Group {
		t.Errorf("sub-02 has one asset and renders flat: %+v", p.Rows[2])
	}

	var toggles []int
	for _, tg := range p.Toggles {
		toggles = append(toggles, tg.ID)
	}
	if !reflect.DeepEqual(toggles, []int{313, 512}) {
		t.Errorf("toggles = %v", toggles)
	}
}

func TestProjectPanelSubjectExpandsSessions(t *testing.T) {
	ctrl := selection.NewController(testutil.Index(t), testutil.Catalog())
	if err := ctrl.SelectDandiset(testutil.DandisetMulti); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.SelectSubjectOrSession("sub-01", "asset-01b"); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.ToggleRegionVisibility(testutil.CerebellID, true); err != nil {
		t.Fatal(err)
	}
	p := ProjectPanel(panelInputs(ctrl, 0))

	var labels []string
	for _, r := range p.Rows {
		labels = append(labels, r.Label)
	}
	want := []string{AllSubjectsLabel, "sub-01", "ses-a", "ses-b", "sub-02"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("rows = %v, want %v", labels, want)
	}
	if p.Rows[0].Selected || p.Rows[1].Selected {
		t.Error("only the session row is selected")
	}
	if !p.Rows[3].Selected || !p.Rows[3].Session {
		t.Errorf("ses-b row = %+v", p.Rows[3])
	}

	// Toggles follow the selected session only.
	if len(p.Toggles) != 1 || p.Toggles[0].ID != testutil.CerebellID || !p.Toggles[0].Hidden {
		t.Errorf("toggles = %+v", p.Toggles)
	}
}

func TestProjectPanelRegionFilterNarrowsSubjects(t *testing.T) {
	ctrl := selection.NewController(testutil.Index(t), testutil.Catalog())
	if err := ctrl.SelectDandiset(testutil.DandisetMulti); err != nil {
		t.Fatal(err)
	}
	if err := ctrl.FilterDandisetByRegion(testutil.FiberID); err != nil {
		t.Fatal(err)
	}
	p := ProjectPanel(panelInputs(ctrl, 0))
	if len(p.Rows) != 1 || !p.Rows[0].AllSubjects {
		t.Errorf("rows = %+v, want only All Subjects", p.Rows)
	}
	if len(p.Toggles) != 0 {
		t.Errorf("toggles = %+v, want none", p.Toggles)
	}
}

func TestSessionLabel(t *testing.T) {
	tests := []struct {
		path, session, want string
	}{
		{"sub-01/sub-01_ses-a.nwb", "ses-a", "ses-a"},
		{"sub-01/sub-01_ses-a.nwb", "", "sub-01_ses-a"},
		{"plain", "", "plain"},
	}
	for _, tt := range tests {
		a := testutil.Catalog()[testutil.DandisetMulti][0]
		a.Path, a.Session = tt.path, tt.session
		if got := SessionLabel(a); got != tt.want {
			t.Errorf("SessionLabel(%q, %q) = %q, want %q", tt.path, tt.session, got, tt.want)
		}
	}
}
