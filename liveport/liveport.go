// Package liveport remaps notes played on a MIDI input port and forwards
// them to an output port. A gomidi driver must be registered by the binary.
package liveport

import (
	"context"
	"fmt"
	"strings"

	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/transform"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type Bridge struct {
	in       drivers.In
	out      drivers.Out
	remapper *transform.Remapper
	log      *logrus.Entry
}

// Ports lists the names of available input and output ports.
func Ports() (ins, outs []string) {
	for _, p := range midi.GetInPorts() {
		ins = append(ins, p.String())
	}
	for _, p := range midi.GetOutPorts() {
		outs = append(outs, p.String())
	}
	return ins, outs
}

// Open finds the named ports. Names match case-insensitively on substrings,
// the way port names are shown by Ports.
func Open(inName, outName string, r *transform.Remapper) (*Bridge, error) {
	in, err := findIn(inName)
	if err != nil {
		return nil, err
	}
	out, err := findOut(outName)
	if err != nil {
		return nil, err
	}
	return &Bridge{
		in:       in,
		out:      out,
		remapper: r,
		log: logrus.WithFields(logrus.Fields{
			"in":    in.String(),
			"out":   out.String(),
			"remap": r.Describe(),
		}),
	}, nil
}

func findIn(name string) (drivers.In, error) {
	for _, p := range midi.GetInPorts() {
		if containsCI(p.String(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("input %q not found", name)
}

func findOut(name string) (drivers.Out, error) {
	for _, p := range midi.GetOutPorts() {
		if containsCI(p.String(), name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("output %q not found", name)
}

// Run forwards messages until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	send, err := midi.SendTo(b.out)
	if err != nil {
		return fmt.Errorf("open %q: %w", b.out.String(), err)
	}

	stop, err := midi.ListenTo(b.in, func(msg midi.Message, _ int32) {
		out, ok := Rewrite(b.remapper, msg)
		if !ok {
			b.log.WithField("msg", msg.String()).Warn("remapped note out of range, dropped")
			return
		}
		if err := send(out); err != nil {
			b.log.WithError(err).Error("send")
		}
	}, midi.HandleError(func(err error) {
		b.log.WithError(err).Warn("listener error")
	}))
	if err != nil {
		return fmt.Errorf("listen %q: %w", b.in.String(), err)
	}
	b.log.Info("bridge running")

	<-ctx.Done()
	stop()
	b.log.Info("bridge stopped")
	return nil
}

// Rewrite remaps the key of a note message, keeping channel and velocity.
// Other messages come back unchanged. It reports false when the new key
// does not fit in a MIDI data byte.
func Rewrite(r *transform.Remapper, msg midi.Message) (midi.Message, bool) {
	ev := toEvent(msg)
	if !r.Applies(ev.Kind) {
		return msg, true
	}
	p := r.Pitch(ev.Pitch)
	if !pitch.InRange(p) {
		return nil, false
	}
	out := make(midi.Message, len(msg))
	copy(out, msg)
	out[1] = uint8(p)
	logrus.WithFields(logrus.Fields{
		"from": pitch.Name(ev.Pitch),
		"to":   pitch.Name(p),
	}).Debug("live note remapped")
	return out, true
}

func toEvent(msg midi.Message) transform.Event {
	if len(msg) != 3 {
		return transform.Event{Kind: transform.Other}
	}
	switch msg[0] & 0xf0 {
	case 0x90:
		return transform.Event{Kind: transform.NoteOn, Pitch: int(msg[1])}
	case 0x80:
		return transform.Event{Kind: transform.NoteOff, Pitch: int(msg[1])}
	}
	return transform.Event{Kind: transform.Other}
}

// Close releases the MIDI driver.
func Close() {
	midi.CloseDriver()
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
