// Package ui holds the terminal pieces of conanws: the entry chooser and
// the markdown view of the active environment.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPrimary = lipgloss.Color("205")
	ColorDim     = lipgloss.Color("241")

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Choose: key.NewBinding(key.WithKeys("enter")),
	Cancel: key.NewBinding(key.WithKeys("esc", "q", "ctrl+c")),
}

// chooserModel implements tea.Model for a single-selection list.
type chooserModel struct {
	title      string
	candidates []string
	cursor     int
	chosen     bool
	cancelled  bool
}

func newChooserModel(title string, candidates []string) chooserModel {
	return chooserModel{title: title, candidates: candidates}
}

func (m chooserModel) Init() tea.Cmd {
	return nil
}

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(keyMsg, keys.Down):
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}
	case key.Matches(keyMsg, keys.Choose):
		m.chosen = true
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Cancel):
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m chooserModel) View() string {
	if m.chosen || m.cancelled {
		return ""
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Render(m.title))
	lines = append(lines, "")

	for i, c := range m.candidates {
		if i == m.cursor {
			lines = append(lines, lipgloss.NewStyle().
				Foreground(ColorPrimary).
				Bold(true).
				Render(fmt.Sprintf("▸ %s", c)))
		} else {
			lines = append(lines, fmt.Sprintf("  %s", c))
		}
	}

	lines = append(lines, "")
	lines = append(lines, lipgloss.NewStyle().Foreground(ColorDim).Render("↑/↓: Navigate  Enter: Select  Esc: Cancel"))

	return BoxStyle.Render(strings.Join(lines, "\n"))
}

// Chooser asks the user to pick one entry in the terminal.
type Chooser struct {
	in  io.Reader
	out io.Writer
}

// NewChooser creates a Chooser reading keys from in and drawing to out.
func NewChooser(in io.Reader, out io.Writer) *Chooser {
	if in == nil {
		panic("in is required")
	}
	if out == nil {
		panic("out is required")
	}
	return &Chooser{in: in, out: out}
}

// ChooseOne returns the index of the chosen candidate. ok is false when the
// user cancelled or there was nothing to choose. A single candidate is
// returned without prompting.
func (c *Chooser) ChooseOne(ctx context.Context, title string, candidates []string) (int, bool, error) {
	switch len(candidates) {
	case 0:
		return 0, false, nil
	case 1:
		return 0, true, nil
	}

	p := tea.NewProgram(newChooserModel(title, candidates),
		tea.WithContext(ctx),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		return 0, false, err
	}
	m := final.(chooserModel)
	if !m.chosen {
		return 0, false, nil
	}
	return m.cursor, true, nil
}
