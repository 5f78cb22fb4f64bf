package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/view"
)

// planReport is the JSON form of a projected view.
type planReport struct {
	Hash       string       `json:"hash"`
	Kind       string       `json:"kind"`
	Meshes     []meshReport `json:"meshes"`
	TreeActive []int        `json:"tree_active,omitempty"`
	Electrodes int          `json:"electrodes"`
	Panel      panelReport  `json:"panel"`
}

type meshReport struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Role      string  `json:"role"`
	Visible   bool    `json:"visible"`
	Pickable  bool    `json:"pickable"`
	Wireframe bool    `json:"wireframe"`
	Opacity   float64 `json:"opacity"`
	Color     string  `json:"color"`
	Backing   []int   `json:"backing,omitempty"`
}

type panelReport struct {
	Heading    string         `json:"heading"`
	Subtitle   string         `json:"subtitle,omitempty"`
	Dandisets  []dandisetLine `json:"dandisets,omitempty"`
	Page       int            `json:"page,omitempty"`
	Pages      int            `json:"pages,omitempty"`
	TotalItems int            `json:"total_items,omitempty"`
	Subjects   []subjectLine  `json:"subjects,omitempty"`
	Toggles    []toggleLine   `json:"toggles,omitempty"`
}

type dandisetLine struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Direct bool   `json:"direct"`
}

type subjectLine struct {
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
	Regions  int    `json:"regions"`
}

type toggleLine struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Hidden bool   `json:"hidden,omitempty"`
}

func newPlanCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the projected meshes and panel of a view as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			nav, _ := cmd.Flags().GetString(FlagNav)
			withTitles, _ := cmd.Flags().GetBool(FlagTitles)
			if !cfg.Titles.Enabled {
				withTitles = false
			}

			s := newSession(cfg, c.logger)
			engine, err := s.openView(cmd.Context(), nav, nil, withTitles)
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), engine)
		},
	}

	cmd.Flags().String(FlagNav, "", "View hash to project (default: the whole atlas)")
	cmd.Flags().Bool(FlagTitles, false, "Resolve dandiset titles for the panel")
	cmd.Flags().Int(FlagPageSize, 0, "Dandisets per page in the region listing")
	return cmd
}

// writePlan prints the engine's current view as indented JSON.
func writePlan(out io.Writer, engine *app.Engine) error {
	data, err := json.MarshalIndent(buildPlanReport(engine), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func buildPlanReport(engine *app.Engine) planReport {
	st := engine.State()
	plan := engine.Plan()
	idx := engine.Data().Index

	r := planReport{
		Hash:       events.HashLabel(engine.Hash()),
		Kind:       st.Kind.String(),
		Electrodes: len(engine.Electrodes()),
		Panel:      buildPanelReport(engine.Panel()),
	}
	if active := engine.Scope().TreeActive; active != nil {
		r.TreeActive = active.Sorted()
	}

	ids := make([]int, 0, len(plan.Appearances))
	for id := range plan.Appearances {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		look := plan.Appearances[id]
		m := meshReport{
			ID:        id,
			Status:    engine.Registry().Status(id).String(),
			Role:      look.Role.String(),
			Visible:   look.Visible,
			Pickable:  look.Pickable,
			Wireframe: look.Wireframe,
			Opacity:   look.Opacity,
			Color:     fmt.Sprintf("#%02x%02x%02x", look.Color.R, look.Color.G, look.Color.B),
		}
		if n, ok := idx.Lookup(id); ok {
			m.Name = n.Name
		}
		if backing, ok := plan.Backing[id]; ok {
			m.Backing = backing.Sorted()
		}
		r.Meshes = append(r.Meshes, m)
	}
	return r
}

func buildPanelReport(p view.Panel) panelReport {
	out := panelReport{Heading: p.Heading, Subtitle: p.Subtitle}
	if p.Mode == view.PanelRegion {
		out.Page = p.Page + 1
		out.Pages = p.Pages
		out.TotalItems = p.TotalItems
		for _, it := range p.Items {
			out.Dandisets = append(out.Dandisets, dandisetLine{ID: it.ID, Title: it.Title, Direct: it.Direct})
		}
		return out
	}
	for _, row := range p.Rows {
		out.Subjects = append(out.Subjects, subjectLine{Label: row.Label, Selected: row.Selected, Regions: row.Regions})
	}
	for _, t := range p.Toggles {
		out.Toggles = append(out.Toggles, toggleLine{ID: t.ID, Name: t.Name, Hidden: t.Hidden})
	}
	return out
}
