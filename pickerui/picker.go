// Package pickerui is the interactive form for choosing a MIDI file and the
// keys to move it between.
package pickerui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rapidmidiex/modeshift/config"
	"github.com/rapidmidiex/modeshift/keymap"
	"github.com/rapidmidiex/modeshift/mapper"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/rmxerr"
	"github.com/rapidmidiex/modeshift/scale"
	"github.com/rapidmidiex/modeshift/smfio"
	"github.com/rapidmidiex/modeshift/styles"
	"github.com/rapidmidiex/modeshift/transform"
	"github.com/rapidmidiex/modeshift/vpiano"
	"golang.org/x/term"
)

// Roots in the order the picker offers them.
var Roots = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	inputField field = iota
	fromScaleField
	fromRootField
	toScaleField
	toRootField
	noteOffField
	outputField
	// Keep last.
	numFields
)

type (
	field int

	RemapFunc func(in, out string, r *transform.Remapper) (smfio.Stats, error)

	Options struct {
		// Defaults to smfio.RemapPath.
		Remap RemapFunc
		// Persists the last used keys. Defaults to (*config.Config).Save.
		Save func(*config.Config) error
	}

	// DoneMsg is sent once a file has been written.
	DoneMsg struct {
		Out   string
		Stats smfio.Stats
	}

	Model struct {
		cfg    *config.Config
		table  scale.Table
		scales []string
		opts   Options

		input  textinput.Model
		output textinput.Model
		// Set once the user types an output path; stops it following the
		// input and target key.
		outputEdited bool

		fromScale, fromRoot int
		toScale, toRoot     int
		noteOff             bool

		focus   field
		mapping table.Model
		help    help.Model
		width   int

		running bool
		status  string
		err     error
	}
)

func New(cfg *config.Config, t scale.Table, opts Options) Model {
	if opts.Remap == nil {
		opts.Remap = smfio.RemapPath
	}
	if opts.Save == nil {
		opts.Save = (*config.Config).Save
	}

	in := textinput.New()
	in.Placeholder = "song.mid"
	in.Prompt = ""
	in.CharLimit = 512
	in.Focus()

	out := textinput.New()
	out.Placeholder = "derived from the input"
	out.Prompt = ""
	out.CharLimit = 512

	m := Model{
		cfg:      cfg,
		table:    t,
		scales:   t.Names(),
		opts:     opts,
		input:    in,
		output:   out,
		noteOff:  cfg.NoteOff,
		fromRoot: rootIndex(cfg.From.Root),
		toRoot:   rootIndex(cfg.To.Root),
		help:     help.New(),
		mapping: table.New(
			table.WithColumns([]table.Column{
				{Title: "From", Width: 6},
				{Title: "Degree", Width: 8},
				{Title: "To", Width: 6},
			}),
			table.WithHeight(12),
		),
	}
	m.fromScale = m.scaleIndex(cfg.From.Scale)
	m.toScale = m.scaleIndex(cfg.To.Scale)
	m.refresh()
	return m
}

func rootIndex(root string) int {
	c, err := pitch.ParseRoot(root)
	if err != nil {
		return 0
	}
	return int(c)
}

func (m Model) scaleIndex(name string) int {
	for i, s := range m.scales {
		if strings.EqualFold(s, name) {
			return i
		}
	}
	return 0
}

// Keys returns the origin and target currently selected.
func (m Model) Keys() (from, to transform.Key) {
	from = transform.Key{Scale: m.scales[m.fromScale], Root: pitch.Class(m.fromRoot)}
	to = transform.Key{Scale: m.scales[m.toScale], Root: pitch.Class(m.toRoot)}
	return from, to
}

func (m Model) Output() string { return m.output.Value() }

func (m Model) Status() string { return m.status }

func (m Model) Err() error { return m.err }

func (m Model) remapper() (*transform.Remapper, error) {
	from, to := m.Keys()
	return transform.New(m.table, from, to, transform.WithNoteOff(m.noteOff))
}

// refresh recomputes everything derived from the selection.
func (m *Model) refresh() {
	r, err := m.remapper()
	if err != nil {
		m.err = err
		return
	}
	m.mapping.SetRows(MappingRows(r))
	if !m.outputEdited && m.input.Value() != "" {
		_, to := m.Keys()
		m.output.SetValue(smfio.OutputName(m.input.Value(), to))
	}
}

// MappingRows lists where each of the twelve notes above the origin root
// ends up.
func MappingRows(r *transform.Remapper) []table.Row {
	origin, _ := r.Scales()
	fromRoot, toRoot := r.Origin().Root, r.Target().Root
	mapping := r.Mapping()

	rows := make([]table.Row, 0, len(mapping))
	for c, to := range mapping {
		d := mapper.NoteToDegree(pitch.Class(c), origin)
		rows = append(rows, table.Row{
			((pitch.Class(c) + fromRoot) % 12).String(),
			d.String(),
			((to + toRoot) % 12).String(),
		})
	}
	return rows
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case rmxerr.ErrMsg:
		m.err = msg
		m.running = false

	case DoneMsg:
		m.running = false
		m.err = nil
		m.status = fmt.Sprintf("Complete! %d of %d notes moved, written to %s", msg.Stats.Changed, msg.Stats.Notes, msg.Out)

	case tea.KeyMsg:
		km := keymap.DefaultMapping
		switch {
		case key.Matches(msg, km.Quit):
			return m, tea.Quit
		case key.Matches(msg, km.Run):
			if m.running {
				return m, nil
			}
			m.running = true
			m.status = "Transforming..."
			return m, m.run()
		case key.Matches(msg, km.CycleFocus):
			return m, m.setFocus((m.focus + 1) % numFields)
		case key.Matches(msg, km.FocusBack):
			return m, m.setFocus((m.focus + numFields - 1) % numFields)
		case m.isSelector() && key.Matches(msg, km.Prev):
			m.step(-1)
			return m, nil
		case m.isSelector() && key.Matches(msg, km.Next):
			m.step(1)
			return m, nil
		case m.focus == noteOffField && key.Matches(msg, km.Toggle):
			m.noteOff = !m.noteOff
			m.refresh()
			return m, nil
		}

		switch m.focus {
		case inputField:
			m.input, cmd = m.input.Update(msg)
			m.refresh()
		case outputField:
			before := m.output.Value()
			m.output, cmd = m.output.Update(msg)
			if m.output.Value() != before {
				m.outputEdited = m.output.Value() != ""
			}
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) isSelector() bool {
	return m.focus >= fromScaleField && m.focus <= toRootField
}

func (m *Model) step(delta int) {
	wrap := func(i, n int) int { return ((i+delta)%n + n) % n }
	switch m.focus {
	case fromScaleField:
		m.fromScale = wrap(m.fromScale, len(m.scales))
	case fromRootField:
		m.fromRoot = wrap(m.fromRoot, len(Roots))
	case toScaleField:
		m.toScale = wrap(m.toScale, len(m.scales))
	case toRootField:
		m.toRoot = wrap(m.toRoot, len(Roots))
	}
	m.err = nil
	m.refresh()
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.input.Blur()
	m.output.Blur()
	switch f {
	case inputField:
		return m.input.Focus()
	case outputField:
		return m.output.Focus()
	}
	return nil
}

func (m Model) run() tea.Cmd {
	in, out := strings.TrimSpace(m.input.Value()), strings.TrimSpace(m.output.Value())
	from, to := m.Keys()
	r, rerr := m.remapper()
	cfg := *m.cfg
	cfg.From = config.KeyConfig{Scale: from.Scale, Root: Roots[from.Root]}
	cfg.To = config.KeyConfig{Scale: to.Scale, Root: Roots[to.Root]}
	cfg.NoteOff = m.noteOff

	return func() tea.Msg {
		if rerr != nil {
			return rmxerr.ErrMsg{Err: rerr}
		}
		if in == "" {
			return rmxerr.ErrMsg{Err: errors.New("choose a MIDI file first")}
		}
		if out == "" {
			out = smfio.OutputName(in, to)
		}
		stats, err := m.opts.Remap(in, out, r)
		if err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("transform: %w", err)}
		}
		if err := m.opts.Save(&cfg); err != nil {
			return rmxerr.ErrMsg{Err: fmt.Errorf("save config: %w", err)}
		}
		return DoneMsg{Out: out, Stats: stats}
	}
}

func (m Model) View() string {
	physicalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	doc := strings.Builder{}

	doc.WriteString(styles.Title.Render("Midi Scale Transformation") + "\n\n")

	from, to := m.Keys()
	doc.WriteString(m.row(inputField, "Input file", m.input.View()))
	doc.WriteString(m.row(fromScaleField, "From scale", m.choice(fromScaleField, from.Scale)))
	doc.WriteString(m.row(fromRootField, "From root", m.choice(fromRootField, Roots[from.Root])))
	doc.WriteString(m.row(toScaleField, "To scale", m.choice(toScaleField, to.Scale)))
	doc.WriteString(m.row(toRootField, "To root", m.choice(toRootField, Roots[to.Root])))
	check := "[ ]"
	if m.noteOff {
		check = "[x]"
	}
	doc.WriteString(m.row(noteOffField, "Note-offs", m.choice(noteOffField, check)))
	doc.WriteString(m.row(outputField, "Output file", m.output.View()))
	doc.WriteString("\n")

	if r, err := m.remapper(); err == nil {
		origin, target := r.Scales()
		doc.WriteString(styles.Label.Render("From keys") + keyboard(from.Root, origin) + "\n")
		doc.WriteString(styles.Label.Render("To keys") + keyboard(to.Root, target) + "\n\n")
	}

	doc.WriteString(styles.BaseStyle.Render(m.mapping.View()) + "\n")

	switch {
	case m.err != nil:
		doc.WriteString(styles.RenderError(m.err.Error()) + "\n")
	case m.status != "":
		doc.WriteString(styles.Success.Render(m.status) + "\n")
	}

	doc.WriteString(styles.HelpMenu.Render(m.help.View(keymap.DefaultMapping)))

	docStyle := styles.DocStyle
	if physicalWidth > 0 {
		docStyle = docStyle.MaxWidth(physicalWidth)
	}
	return docStyle.Render(doc.String())
}

func keyboard(root pitch.Class, s scale.Scale) string {
	return vpiano.MakeOctaveNotes(4, root, s).Render(styles.Key, styles.Key.Copy().Foreground(styles.Subtle))
}

func (m Model) row(f field, label, value string) string {
	l := styles.Label.Render(label)
	if m.focus == f {
		l = styles.FocusedLabel.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, l, value) + "\n"
}

func (m Model) choice(f field, value string) string {
	if m.focus == f {
		return styles.FocusedValue.Render("‹ " + value + " ›")
	}
	return styles.Value.Render("  " + value + "  ")
}
