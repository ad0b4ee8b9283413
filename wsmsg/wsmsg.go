// Package wsmsg contains the RMX message types exchanged over a jam session
// websocket. The relay reads and writes these envelopes.
package wsmsg

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rapidmidiex/modeshift/transform"
)

type (
	MsgType   int
	NoteState int

	Envelope struct {
		// Message identifier
		ID uuid.UUID `json:"id"`
		// TextMsg | MIDIMsg | ConnectMsg
		Typ MsgType `json:"type"`
		// RMX client identifier
		UserID uuid.UUID `json:"userId"`
		// Actual message data.
		Payload json.RawMessage `json:"payload"`
	}

	TextMsg struct {
		DisplayName string `json:"displayName"`
		Body        string `json:"body"`
	}

	MIDIMsg struct {
		State NoteState `json:"state"`
		// MIDI Note # in "C3 Convention", C3 = 60. Available values: (0-127)
		Number int `json:"number"`
		// MIDI Velocity (0-127)
		Velocity int `json:"velocity"`
	}

	ConnectMsg struct {
		UserID   uuid.UUID `json:"userId"`
		UserName string    `json:"userName"`
	}
)

const (
	TEXT MsgType = iota
	MIDI
	CONNECT
)

const (
	NOTE_OFF NoteState = iota
	NOTE_ON
)

// New wraps payload in an envelope with a fresh ID.
func New(typ MsgType, userID uuid.UUID, payload any) (Envelope, error) {
	e := Envelope{
		ID:     uuid.New(),
		Typ:    typ,
		UserID: userID,
	}
	if err := e.SetPayload(payload); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func (e *Envelope) SetPayload(payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	e.Payload = p
	return nil
}

func (e *Envelope) Unwrap(msg any) error {
	return json.Unmarshal(e.Payload, msg)
}

// Event converts a MIDI payload to a transformer event. The message itself
// rides along as Data.
func (m MIDIMsg) Event() transform.Event {
	kind := transform.NoteOff
	if m.State == NOTE_ON {
		kind = transform.NoteOn
	}
	return transform.Event{Kind: kind, Pitch: m.Number, Data: m}
}

// FromEvent rebuilds a MIDI payload from an event produced by Event.
func FromEvent(ev transform.Event) MIDIMsg {
	m := ev.Data.(MIDIMsg)
	m.Number = ev.Pitch
	return m
}

func (t MsgType) String() string {
	switch t {
	case CONNECT:
		return "connect"
	case MIDI:
		return "midi"
	case TEXT:
		return "text"
	}
	return fmt.Sprintf("MsgType(%d)", int(t))
}

func (t *MsgType) UnmarshalJSON(data []byte) error {
	var rawType string
	err := json.Unmarshal(data, &rawType)
	if err != nil {
		return err
	}

	switch rawType {
	case "connect":
		*t = CONNECT
	case "midi":
		*t = MIDI
	case "text":
		*t = TEXT
	default:
		return fmt.Errorf("unknown type: %s", rawType)
	}
	return nil
}

func (t MsgType) MarshalJSON() ([]byte, error) {
	switch t {
	case CONNECT, MIDI, TEXT:
		return json.Marshal(t.String())
	}
	return nil, fmt.Errorf("unknown MsgTyp value: %d", t)
}
