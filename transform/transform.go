// Package transform rewrites the pitches of note events from one key to
// another. It is the single entry point collaborators (SMF files, websocket
// relays, live MIDI ports) go through.
package transform

import (
	"fmt"

	"github.com/rapidmidiex/modeshift/mapper"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/scale"
)

type (
	Kind int

	// Event is the part of a stream event the transformer cares about.
	// Data belongs to the caller and is copied through untouched.
	Event struct {
		Kind  Kind
		Pitch int
		Data  any
	}

	// Key is a scale name and root as picked by a user.
	Key struct {
		Scale string
		Root  pitch.Class
	}

	Option func(*Remapper)

	// Remapper is a resolved origin/target pair. It is immutable and safe for
	// concurrent use.
	Remapper struct {
		origin, target Key
		m              *mapper.Mapper
		noteOff        bool
	}
)

const (
	Other Kind = iota
	NoteOn
	NoteOff
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note_on"
	case NoteOff:
		return "note_off"
	default:
		return "other"
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.Root, k.Scale)
}

// WithNoteOff also remaps note-off events. Without it only note-ons are
// touched, which suits streams that end notes with zero-velocity note-ons.
func WithNoteOff(on bool) Option {
	return func(r *Remapper) {
		r.noteOff = on
	}
}

// New looks up both scales in table. Lookup errors are returned before any
// event is seen.
func New(table scale.Table, origin, target Key, opts ...Option) (*Remapper, error) {
	from, err := table.Lookup(origin.Scale)
	if err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	to, err := table.Lookup(target.Scale)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	origin.Scale, target.Scale = from.Name, to.Name

	r := &Remapper{
		origin: origin,
		target: target,
		m:      mapper.New(from, to),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Pitch remaps a single absolute pitch, keeping its octave relative to the
// origin root. The result is not range checked.
func (r *Remapper) Pitch(p int) int {
	name, octave := pitch.Decode(p, r.origin.Root)
	return pitch.Encode(r.m.Map(name), octave, r.target.Root)
}

// Applies reports whether events of kind k are rewritten.
func (r *Remapper) Applies(k Kind) bool {
	return k == NoteOn || (k == NoteOff && r.noteOff)
}

// Transform returns a copy of events with remapped pitches. The input is not
// modified; order and length are preserved.
func (r *Remapper) Transform(events []Event) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		if r.Applies(ev.Kind) {
			ev.Pitch = r.Pitch(ev.Pitch)
		}
		out[i] = ev
	}
	return out
}

func (r *Remapper) Origin() Key { return r.origin }

func (r *Remapper) Target() Key { return r.target }

// Scales returns the resolved origin and target scales.
func (r *Remapper) Scales() (origin, target scale.Scale) {
	return r.m.Origin(), r.m.Target()
}

// Mapping returns the per pitch class table, relative to the roots.
func (r *Remapper) Mapping() [12]pitch.Class { return r.m.Table() }

func (r *Remapper) Describe() string {
	return fmt.Sprintf("%s -> %s", r.origin, r.target)
}

// Transform remaps note-on pitches of events from one scale and root to
// another.
func Transform(events []Event, origin scale.Scale, originRoot pitch.Class, target scale.Scale, targetRoot pitch.Class) []Event {
	r := &Remapper{
		origin: Key{Scale: origin.Name, Root: originRoot},
		target: Key{Scale: target.Name, Root: targetRoot},
		m:      mapper.New(origin, target),
	}
	return r.Transform(events)
}

// Remap resolves origin and target in table and transforms events.
func Remap(table scale.Table, events []Event, origin, target Key, opts ...Option) ([]Event, error) {
	r, err := New(table, origin, target, opts...)
	if err != nil {
		return nil, err
	}
	return r.Transform(events), nil
}
