// Package pitch converts between absolute MIDI note numbers and note names
// relative to a root.
package pitch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type (
	// Class is a chromatic note name, C=0 … B=11.
	Class int

	Octave int
)

const (
	C Class = iota
	Db
	D
	Eb
	E
	F
	Gb
	G
	Ab
	A
	Bb
	B
)

// MIDI number of the root in octave 4 when the root is C.
const middleC = 60

var ErrUnknownName = errors.New("unknown note name")

// Flat spellings only. Index is the pitch class.
var names = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

var (
	byName = func() map[string]Class {
		m := make(map[string]Class, len(names))
		for i, n := range names {
			m[n] = Class(i)
		}
		return m
	}()

	sharps = map[string]Class{"C#": Db, "D#": Eb, "F#": Gb, "G#": Ab, "A#": Bb}
)

// Names returns the twelve canonical spellings in pitch class order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}

func (c Class) String() string {
	if c < 0 || c > B {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return names[c]
}

// ParseName accepts only the canonical flat spellings, case-sensitively.
func ParseName(s string) (Class, error) {
	c, ok := byName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, s)
	}
	return c, nil
}

// ParseRoot is the lenient form used for user input: the letter is
// case-insensitive and sharp spellings are folded to their flat equivalents.
func ParseRoot(s string) (Class, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnknownName)
	}
	norm := strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
	if c, ok := byName[norm]; ok {
		return c, nil
	}
	if c, ok := sharps[strings.ToUpper(norm)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownName, s)
}

// Decode splits an absolute pitch into a note name and octave, counting
// from root. Octave 4 starts at 60+root.
func Decode(p int, root Class) (Class, Octave) {
	rel := p - (middleC + int(root))
	name := rel % 12
	if name < 0 {
		name += 12
	}
	return Class(name), Octave((rel-name)/12 + 4)
}

// Encode is the inverse of Decode.
func Encode(name Class, octave Octave, root Class) int {
	return (int(octave)-4)*12 + int(name) + middleC + int(root)
}

// InRange reports whether p fits in a MIDI data byte.
func InRange(p int) bool {
	return p >= 0 && p <= 127
}

// Name renders p in scientific pitch notation, C4 = 60.
func Name(p int) string {
	c, o := Decode(p, C)
	return c.String() + strconv.Itoa(int(o))
}
