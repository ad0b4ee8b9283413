// Package scale loads named seven-degree scales from a comma separated table.
//
// Each non-blank line of a table reads
//
//	Name,deg0,deg1,deg2,deg3,deg4,deg5,deg6
//
// where every degree is one of the canonical flat spellings understood by
// pitch.ParseName. Names are matched case-insensitively.
package scale

import (
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rapidmidiex/modeshift/pitch"
)

// Size is the number of degrees in every scale.
const Size = 7

//go:embed scales.csv
var defaultFS embed.FS

type (
	Scale struct {
		// Name as written in the table.
		Name    string
		Degrees [Size]pitch.Class
	}

	// Table maps upper-cased scale names to scales. It is read-only once
	// loaded and may be shared between goroutines.
	Table struct {
		scales map[string]Scale
		order  []string
	}

	MalformedTableError struct {
		Line   int
		Reason string
	}

	UnknownScaleError struct {
		Name string
	}
)

func (e *MalformedTableError) Error() string {
	return fmt.Sprintf("scale table line %d: %s", e.Line, e.Reason)
}

func (e *UnknownScaleError) Error() string {
	return fmt.Sprintf("unknown scale %q", e.Name)
}

// Index returns the position of c in the scale, or -1.
func (s Scale) Index(c pitch.Class) int {
	for i, d := range s.Degrees {
		if d == c {
			return i
		}
	}
	return -1
}

func (s Scale) Contains(c pitch.Class) bool {
	return s.Index(c) >= 0
}

func (s Scale) String() string {
	parts := make([]string, 0, Size)
	for _, d := range s.Degrees {
		parts = append(parts, d.String())
	}
	return s.Name + "[" + strings.Join(parts, " ") + "]"
}

// Load parses a scale table. A later line with the same name replaces an
// earlier one.
func Load(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	t := Table{scales: make(map[string]Scale)}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return Table{}, &MalformedTableError{Line: perr.Line, Reason: perr.Err.Error()}
			}
			return Table{}, fmt.Errorf("read scale table: %w", err)
		}
		line, _ := cr.FieldPos(0)

		s, err := parseRecord(record)
		if err != nil {
			return Table{}, &MalformedTableError{Line: line, Reason: err.Error()}
		}
		key := strings.ToUpper(s.Name)
		if _, dup := t.scales[key]; !dup {
			t.order = append(t.order, key)
		}
		t.scales[key] = s
	}
	return t, nil
}

func parseRecord(record []string) (Scale, error) {
	if len(record) != Size+1 {
		return Scale{}, fmt.Errorf("want a name and %d degrees, got %d fields", Size, len(record))
	}
	s := Scale{Name: strings.TrimSpace(record[0])}
	if s.Name == "" {
		return Scale{}, errors.New("empty scale name")
	}
	for i, field := range record[1:] {
		c, err := pitch.ParseName(strings.TrimSpace(field))
		if err != nil {
			return Scale{}, fmt.Errorf("degree %d: %w", i, err)
		}
		s.Degrees[i] = c
	}
	return s, nil
}

// LoadFile reads a table from disk.
func LoadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in table of the seven diatonic modes.
func Default() Table {
	f, err := defaultFS.Open("scales.csv")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	t, err := Load(f)
	if err != nil {
		panic(fmt.Sprintf("embedded scale table: %v", err))
	}
	return t
}

// Lookup finds a scale by name, ignoring case.
func (t Table) Lookup(name string) (Scale, error) {
	s, ok := t.scales[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Scale{}, &UnknownScaleError{Name: name}
	}
	return s, nil
}

// Names lists the scales in table order, as written in the table.
func (t Table) Names() []string {
	out := make([]string, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.scales[k].Name)
	}
	return out
}

func (t Table) Len() int { return len(t.scales) }
