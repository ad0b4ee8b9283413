// Package vpiano lays out one octave of a piano keyboard with the notes of a
// scale marked.
package vpiano

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/scale"
)

type (
	Note struct {
		// MIDI note number, based on C4=60
		MIDI int
		// Name of the note, ex: "C", "Gb"
		Name string
		// Denotes if note is sharp/flat ie. "black" key.
		IsAccidental bool
		// Part of the scale the octave was built from.
		InScale bool
	}

	Notes []Note
)

var accidentals = [12]bool{pitch.Db: true, pitch.Eb: true, pitch.Gb: true, pitch.Ab: true, pitch.Bb: true}

// MakeOctaveNotes lists the twelve notes of octave starting at root, marking
// the ones in s. Scale degrees are relative to root.
func MakeOctaveNotes(octave pitch.Octave, root pitch.Class, s scale.Scale) Notes {
	notes := make(Notes, 0, 12)
	for i := pitch.Class(0); i < 12; i++ {
		name := (i + root) % 12
		notes = append(notes, Note{
			MIDI:         pitch.Encode(i, octave, root),
			Name:         name.String(),
			IsAccidental: accidentals[name],
			InScale:      s.Contains(i),
		})
	}
	return notes
}

// Render draws the octave as a row of keys, scale notes in inScale and the
// rest in other.
func (notes Notes) Render(inScale, other lipgloss.Style) string {
	keys := make([]string, 0, len(notes))
	for _, n := range notes {
		label := n.Name
		if n.IsAccidental {
			label = strings.ToLower(label)
		}
		st := other
		if n.InScale {
			st = inScale
		}
		keys = append(keys, st.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, keys...)
}
