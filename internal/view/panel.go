package view

import (
	"path"
	"strings"

	"github.com/npratt/dandiatlas/internal/atlas"
	"github.com/npratt/dandiatlas/internal/dandiset"
	"github.com/npratt/dandiatlas/internal/selection"
)

// DefaultPageSize is the number of dandisets per panel page.
const DefaultPageSize = 20

// AllSubjectsLabel is the label of the unfiltered pseudo-row.
const AllSubjectsLabel = "All Subjects"

// PanelMode selects which listing the panel shows.
type PanelMode int

const (
	// PanelRegion lists the dandisets of one structure's subtree.
	PanelRegion PanelMode = iota
	// PanelDandiset lists the subjects of one dandiset.
	PanelDandiset
)

// PanelInputs are the inputs of ProjectPanel.
type PanelInputs struct {
	State selection.State
	Scope selection.Scope
	Index *atlas.Index
	Stats atlas.StatsTable
	// RootID is the structure listed in the default view.
	RootID int
	// Subjects are all subjects of the selected dandiset.
	Subjects []dandiset.Subject
	// Titles holds resolved dandiset titles. Missing ids render with an
	// empty title.
	Titles   map[string]string
	Page     int
	PageSize int
}

// DandisetItem is one dandiset row of a region listing.
type DandisetItem struct {
	ID     string
	Title  string
	Direct bool // tagged to the structure itself, not only a descendant
}

// SubjectRow is one row of a dandiset listing.
type SubjectRow struct {
	Label       string
	SubjectID   string
	AssetID     string // set on session rows
	AllSubjects bool
	Group       bool // subject with more than one asset
	Session     bool // asset row under a group
	Selected    bool
	Regions     int
}

// RegionToggle is one visibility checkbox.
type RegionToggle struct {
	ID      int
	Name    string
	Acronym string
	Hidden  bool
}

// Panel is the detail panel content.
type Panel struct {
	Mode     PanelMode
	Heading  string
	Subtitle string

	// Region listing.
	RegionID   int
	Stats      atlas.RegionStats
	Items      []DandisetItem
	Page       int
	Pages      int
	TotalItems int

	// Dandiset listing.
	DandisetID string
	Rows       []SubjectRow
	Toggles    []RegionToggle
}

// ProjectPanel builds the panel for the current selection.
func ProjectPanel(in PanelInputs) Panel {
	if in.PageSize <= 0 {
		in.PageSize = DefaultPageSize
	}
	switch in.State.Kind {
	case selection.KindDandiset, selection.KindSubject:
		return projectDandiset(in)
	case selection.KindRegion:
		return projectRegion(in, in.Scope.Target)
	default:
		return projectRegion(in, in.RootID)
	}
}

// RegionDandisets lists the direct dandisets of stats followed by the
// descendant-only ones, without duplicates.
func RegionDandisets(stats atlas.RegionStats) []DandisetItem {
	seen := make(map[string]struct{}, len(stats.TotalDandisets))
	var out []DandisetItem
	for _, d := range stats.DirectDandisets {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, DandisetItem{ID: d, Direct: true})
	}
	for _, d := range stats.DescendantOnly() {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, DandisetItem{ID: d})
	}
	return out
}

func projectRegion(in PanelInputs, id int) Panel {
	p := Panel{Mode: PanelRegion, RegionID: id}
	if n, ok := in.Index.Lookup(id); ok {
		p.Heading = n.Name
		p.Subtitle = n.Acronym
	}
	stats, _ := in.Stats.Get(id)
	p.Stats = stats

	all := RegionDandisets(stats)
	p.TotalItems = len(all)
	p.Pages = (len(all) + in.PageSize - 1) / in.PageSize
	p.Page = clampPage(in.Page, p.Pages)

	start := p.Page * in.PageSize
	end := min(start+in.PageSize, len(all))
	for _, item := range all[start:end] {
		item.Title = in.Titles[item.ID]
		p.Items = append(p.Items, item)
	}
	return p
}

func clampPage(page, pages int) int {
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

func projectDandiset(in PanelInputs) Panel {
	st := in.State
	p := Panel{
		Mode:       PanelDandiset,
		DandisetID: st.DandisetID,
		Heading:    "Dandiset " + st.DandisetID,
		Subtitle:   in.Titles[st.DandisetID],
	}
	if f, ok := st.RegionFilter(); ok {
		if n, ok := in.Index.Lookup(f); ok {
			p.Heading += " in " + n.Acronym
		}
	}

	listed := in.Scope.Subjects
	if st.Kind == selection.KindSubject {
		listed = in.Subjects
	}

	union := atlas.NewIDSet()
	for _, subj := range listed {
		union.AddAll(subj.Regions)
	}
	p.Rows = append(p.Rows, SubjectRow{
		Label:       AllSubjectsLabel,
		AllSubjects: true,
		Selected:    st.Kind == selection.KindDandiset,
		Regions:     union.Len(),
	})
	for _, subj := range listed {
		selected := st.Kind == selection.KindSubject && st.SubjectID == subj.ID
		p.Rows = append(p.Rows, SubjectRow{
			Label:     subj.ID,
			SubjectID: subj.ID,
			Group:     subj.IsGroup(),
			Selected:  selected && st.SessionAssetID == "",
			Regions:   subj.Regions.Len(),
		})
		if !subj.IsGroup() || !selected {
			continue
		}
		for _, a := range subj.Assets {
			p.Rows = append(p.Rows, SubjectRow{
				Label:     SessionLabel(a),
				SubjectID: subj.ID,
				AssetID:   a.AssetID,
				Session:   true,
				Selected:  st.SessionAssetID == a.AssetID,
				Regions:   len(a.Regions),
			})
		}
	}

	for _, id := range in.Scope.Toggleable.Sorted() {
		t := RegionToggle{ID: id, Hidden: st.Hidden(id)}
		if n, ok := in.Index.Lookup(id); ok {
			t.Name, t.Acronym = n.Name, n.Acronym
		}
		p.Toggles = append(p.Toggles, t)
	}
	return p
}

// SessionLabel names an asset row: its session when known, else the file
// name without extension.
func SessionLabel(a dandiset.Asset) string {
	if a.Session != "" {
		return a.Session
	}
	base := path.Base(a.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}
