package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HashModal is the overlay that jumps to a typed navigation hash.
type HashModal struct {
	open  bool
	input textinput.Model
	err   string
}

// NewHashModal creates a closed modal.
func NewHashModal() HashModal {
	in := textinput.New()
	in.Prompt = "#"
	in.Placeholder = "region=1234 or dandiset=000123&subject=sub-01"
	in.CharLimit = 256
	return HashModal{input: in}
}

// Open shows the modal prefilled with the current hash.
func (m *HashModal) Open(current string) tea.Cmd {
	m.open = true
	m.err = ""
	m.input.SetValue(current)
	m.input.CursorEnd()
	return m.input.Focus()
}

// Close hides the modal.
func (m *HashModal) Close() {
	m.open = false
	m.err = ""
	m.input.Blur()
}

// IsOpen returns whether the modal is visible.
func (m *HashModal) IsOpen() bool {
	return m.open
}

// SetError keeps the modal open and shows why the hash was rejected.
func (m *HashModal) SetError(err error) {
	if err == nil {
		m.err = ""
		return
	}
	m.err = err.Error()
}

// Update handles a key while the modal is open. submitted is true when
// enter was pressed; hash is the typed value without a leading '#'.
func (m *HashModal) Update(msg tea.KeyMsg) (hash string, submitted bool, cmd tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		return strings.TrimPrefix(strings.TrimSpace(m.input.Value()), "#"), true, nil
	case tea.KeyEsc:
		m.Close()
		return "", false, nil
	}
	m.input, cmd = m.input.Update(msg)
	return "", false, cmd
}

// View renders the modal box.
func (m HashModal) View(parentWidth int) string {
	if !m.open {
		return ""
	}
	w := max(min(parentWidth*70/100, 90), 40)
	m.input.Width = w - 8

	var b strings.Builder
	b.WriteString(styles.Title.Render("Go to view"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.Error.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.Footer.Italic(true).Render("[Enter] go | [Esc] cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(1, 2).
		Width(w)
	return box.Render(b.String())
}
