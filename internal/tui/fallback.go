package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/npratt/dandiatlas/internal/app"
	"github.com/npratt/dandiatlas/internal/events"
	"github.com/npratt/dandiatlas/internal/view"
)

// IsTerminal returns true if both stdout and stdin are TTYs.
func IsTerminal() bool {
	return isTerminal()
}

// isTerminal returns true if both stdout and stdin are TTYs.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}

// terminalSize returns the current terminal width and height.
// Returns 0, 0 if the terminal size cannot be determined.
func terminalSize() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0
	}
	return width, height
}

// runSimple prints the initial view as plain text for non-interactive
// environments.
func (t *TUI) runSimple() error {
	return t.writePlain(os.Stdout)
}

// writePlain loads the data, applies the initial hash and writes the
// detail panel and the expanded tree.
func (t *TUI) writePlain(out io.Writer) error {
	bundle, err := t.load(t.ctx)
	if err != nil {
		return err
	}
	engine := app.NewEngine(bundle, t.engineOpts...)
	if t.initialHash != "" {
		if _, err := engine.Navigate(t.initialHash); err != nil {
			fmt.Fprintf(out, "warning: %v\n", err)
		}
	}
	if f := t.fetchers.Titles; f != nil {
		var ids []string
		for _, it := range engine.Panel().Items {
			ids = append(ids, it.ID)
		}
		if st := engine.State(); st.HasDandiset() {
			ids = append(ids, st.DandisetID)
		}
		if len(ids) > 0 {
			titles, _ := f.FetchTitles(t.ctx, ids)
			engine.TitlesResolved(ids, titles)
		}
	}
	t.lastHash = engine.Hash()

	width, _ := terminalSize()
	if width <= 0 {
		width = 100
	}

	fmt.Fprintf(out, "%s %s\n\n", strings.ToUpper(engine.State().Kind.String()), events.HashLabel(engine.Hash()))
	p := engine.Panel()
	fmt.Fprintln(out, p.Heading)
	if p.Subtitle != "" {
		fmt.Fprintln(out, p.Subtitle)
	}
	if p.Mode == view.PanelRegion {
		fmt.Fprintln(out, regionSummary(p))
		for _, it := range p.Items {
			fmt.Fprintln(out, truncate(formatDandiset(it), width))
		}
		if p.Pages > 1 {
			fmt.Fprintf(out, "page %d/%d\n", p.Page+1, p.Pages)
		}
	} else {
		for _, r := range p.Rows {
			fmt.Fprintln(out, truncate(formatSubject(r), width))
		}
		for _, tg := range p.Toggles {
			fmt.Fprintln(out, truncate(formatToggle(tg), width))
		}
	}

	fmt.Fprintln(out)
	for _, r := range engine.Tree().Rows() {
		if r.Inactive {
			continue
		}
		line := strings.Repeat("  ", r.Depth) + r.Name
		if r.Badge != "" {
			line += " [" + r.Badge + "]"
		}
		fmt.Fprintln(out, truncate(line, width))
	}
	return nil
}
