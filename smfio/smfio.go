// Package smfio reads and writes Standard MIDI Files for the transformer.
package smfio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/transform"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	noteOffStatus = 0x80
	noteOnStatus  = 0x90
)

type (
	// File is a decoded SMF with its tracks flattened into transformer
	// events. Each event carries its original smf.Event as Data.
	File struct {
		smf    *smf.SMF
		Tracks [][]transform.Event
	}

	Stats struct {
		Tracks int
		Events int
		// Notes rewritten by the remapper.
		Notes int
		// Notes whose pitch actually moved.
		Changed int
	}

	// PitchRangeError reports a remapped note that does not fit in a MIDI
	// data byte.
	PitchRangeError struct {
		Track int
		Index int
		From  int
		To    int
	}
)

func (e *PitchRangeError) Error() string {
	return fmt.Sprintf("track %d event %d: %s remaps to %d, outside 0..127", e.Track, e.Index, pitch.Name(e.From), e.To)
}

// Decode reads an SMF from r.
func Decode(r io.Reader) (*File, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	f := &File{smf: s, Tracks: make([][]transform.Event, len(s.Tracks))}
	for i, tr := range s.Tracks {
		events := make([]transform.Event, len(tr))
		for j, ev := range tr {
			events[j] = toEvent(ev)
		}
		f.Tracks[i] = events
	}
	return f, nil
}

// toEvent classifies by status nibble. Zero-velocity note-ons stay note-ons.
func toEvent(ev smf.Event) transform.Event {
	msg := ev.Message
	if len(msg) != 3 {
		return transform.Event{Kind: transform.Other, Data: ev}
	}
	switch msg[0] & 0xf0 {
	case noteOnStatus:
		return transform.Event{Kind: transform.NoteOn, Pitch: int(msg[1]), Data: ev}
	case noteOffStatus:
		return transform.Event{Kind: transform.NoteOff, Pitch: int(msg[1]), Data: ev}
	default:
		return transform.Event{Kind: transform.Other, Data: ev}
	}
}

// Remap returns a new File with every track passed through r. Nothing is
// returned when any remapped pitch falls outside the MIDI range.
func (f *File) Remap(r *transform.Remapper) (*File, Stats, error) {
	header := *f.smf
	header.Tracks = nil
	out := &File{
		smf:    &header,
		Tracks: make([][]transform.Event, len(f.Tracks)),
	}
	stats := Stats{Tracks: len(f.Tracks)}

	for i, events := range f.Tracks {
		remapped := r.Transform(events)
		track := make(smf.Track, len(remapped))
		for j, ev := range remapped {
			orig := ev.Data.(smf.Event)
			stats.Events++
			if !r.Applies(ev.Kind) {
				track[j] = orig
				continue
			}
			stats.Notes++
			if !pitch.InRange(ev.Pitch) {
				return nil, Stats{}, &PitchRangeError{Track: i, Index: j, From: events[j].Pitch, To: ev.Pitch}
			}
			if ev.Pitch != events[j].Pitch {
				stats.Changed++
			}
			track[j] = smf.Event{Delta: orig.Delta, Message: withKey(orig.Message, uint8(ev.Pitch))}
			ev.Data = track[j]
			remapped[j] = ev
		}
		out.smf.Tracks = append(out.smf.Tracks, track)
		out.Tracks[i] = remapped
		logrus.WithFields(logrus.Fields{
			"track":  i,
			"events": len(track),
		}).Debug("smf track remapped")
	}
	return out, stats, nil
}

// withKey copies a channel note message replacing its key byte.
func withKey(msg smf.Message, key uint8) smf.Message {
	b := make(smf.Message, len(msg))
	copy(b, msg)
	b[1] = key
	return b
}

// WriteTo encodes the file as an SMF.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	return f.smf.WriteTo(w)
}

// Bytes encodes the file into memory.
func (f *File) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RemapFile reads an SMF from in, remaps it and writes the result to out.
// Nothing is written when decoding or remapping fails.
func RemapFile(in io.Reader, out io.Writer, r *transform.Remapper) (Stats, error) {
	f, err := Decode(in)
	if err != nil {
		return Stats{}, err
	}
	remapped, stats, err := f.Remap(r)
	if err != nil {
		return Stats{}, err
	}
	data, err := remapped.Bytes()
	if err != nil {
		return Stats{}, fmt.Errorf("write smf: %w", err)
	}
	if _, err := out.Write(data); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// RemapPath remaps the SMF at in and writes the result to out. out is only
// created once the whole file has been remapped.
func RemapPath(in, out string, r *transform.Remapper) (Stats, error) {
	f, err := os.Open(in)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	var buf bytes.Buffer
	stats, err := RemapFile(f, &buf, r)
	if err != nil {
		return Stats{}, fmt.Errorf("%s: %w", in, err)
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return Stats{}, err
	}
	logrus.WithFields(logrus.Fields{
		"in":      in,
		"out":     out,
		"notes":   stats.Notes,
		"changed": stats.Changed,
	}).Info("midi file remapped")
	return stats, nil
}

// OutputName derives the output file name as
// "<Scale>_<root>_<input name>", next to the input.
func OutputName(in string, target transform.Key) string {
	return filepath.Join(filepath.Dir(in), target.Scale+"_"+target.Root.String()+"_"+filepath.Base(in))
}
