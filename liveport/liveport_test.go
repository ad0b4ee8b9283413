package liveport_test

import (
	"testing"

	"github.com/rapidmidiex/modeshift/liveport"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/scale"
	"github.com/rapidmidiex/modeshift/transform"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

func TestRewrite(t *testing.T) {
	r, err := transform.New(scale.Default(),
		transform.Key{Scale: "Ionian", Root: pitch.C},
		transform.Key{Scale: "Aeolian", Root: pitch.C},
		transform.WithNoteOff(true),
	)
	require.NoError(t, err)

	t.Run("keeps channel and velocity", func(t *testing.T) {
		got, ok := liveport.Rewrite(r, midi.NoteOn(3, 64, 77))
		require.True(t, ok)

		var ch, key, vel uint8
		require.True(t, got.GetNoteOn(&ch, &key, &vel))
		require.Equal(t, uint8(3), ch)
		require.Equal(t, uint8(63), key)
		require.Equal(t, uint8(77), vel)
	})

	t.Run("remaps note-offs", func(t *testing.T) {
		got, ok := liveport.Rewrite(r, midi.NoteOff(3, 71))
		require.True(t, ok)
		var ch, key uint8
		require.True(t, got.GetNoteEnd(&ch, &key))
		require.Equal(t, uint8(70), key)
	})

	t.Run("passes other messages through", func(t *testing.T) {
		cc := midi.ControlChange(0, 64, 127)
		got, ok := liveport.Rewrite(r, cc)
		require.True(t, ok)
		require.Equal(t, cc, got)
	})

	t.Run("does not modify the incoming message", func(t *testing.T) {
		in := midi.NoteOn(0, 64, 100)
		_, ok := liveport.Rewrite(r, in)
		require.True(t, ok)
		require.Equal(t, midi.NoteOn(0, 64, 100), in)
	})

	t.Run("refuses keys beyond 127", func(t *testing.T) {
		up, err := transform.New(scale.Default(),
			transform.Key{Scale: "Ionian", Root: pitch.C},
			transform.Key{Scale: "Ionian", Root: pitch.B},
		)
		require.NoError(t, err)
		_, ok := liveport.Rewrite(up, midi.NoteOn(0, 127, 100))
		require.False(t, ok)
	})
}
