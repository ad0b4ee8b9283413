package preview_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/rapidmidiex/modeshift/preview"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func ramp(n int) ([]float32, []float32) {
	left := make([]float32, n)
	right := make([]float32, n)
	for i := range left {
		left[i] = float32(i) / float32(n)
		right[i] = -left[i]
	}
	return left, right
}

func TestStreamer(t *testing.T) {
	t.Run("streams until drained", func(t *testing.T) {
		s := preview.NewStreamer(ramp(10))
		buf := make([][2]float64, 4)

		n, ok := s.Stream(buf)
		require.True(t, ok)
		require.Equal(t, 4, n)
		require.InDelta(t, 0.1, buf[1][0], 1e-6)
		require.InDelta(t, -0.1, buf[1][1], 1e-6)

		n, ok = s.Stream(buf)
		require.True(t, ok)
		require.Equal(t, 4, n)

		n, ok = s.Stream(buf)
		require.True(t, ok)
		require.Equal(t, 2, n)
		require.Equal(t, 10, s.Position())

		_, ok = s.Stream(buf)
		require.False(t, ok)
	})

	t.Run("seeks within bounds", func(t *testing.T) {
		s := preview.NewStreamer(ramp(10))
		require.NoError(t, s.Seek(10))
		require.Error(t, s.Seek(11))
		require.Error(t, s.Seek(-1))
		require.NoError(t, s.Seek(3))
		require.Equal(t, 3, s.Position())
		require.Equal(t, 10, s.Len())
	})

	t.Run("reads return EOF at the end", func(t *testing.T) {
		s := preview.NewStreamer(ramp(3))
		left, right := make([]float32, 8), make([]float32, 8)
		n, err := s.Read(left, right)
		require.NoError(t, err)
		require.Equal(t, 3, n)
		_, err = s.Read(left, right)
		require.ErrorIs(t, err, io.EOF)
	})
}

func TestEncodeWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	format := beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}
	require.NoError(t, preview.EncodeWAV(f, preview.NewStreamer(ramp(800)), format))
	require.NoError(t, f.Close())

	in, err := os.Open(path)
	require.NoError(t, err)
	defer in.Close()
	decoded, gotFormat, err := wav.Decode(in)
	require.NoError(t, err)
	require.Equal(t, format, gotFormat)
	require.Equal(t, 800, decoded.Len())
}

// Rendering needs a real SoundFont, which is too large to keep in the repo.
func TestRenderer(t *testing.T) {
	sf2Path := os.Getenv("MODESHIFT_SF2")
	if sf2Path == "" {
		t.Skip("MODESHIFT_SF2 not set")
	}
	sf2, err := os.Open(sf2Path)
	require.NoError(t, err)
	defer sf2.Close()

	r, err := preview.NewRenderer(sf2, preview.Options{})
	require.NoError(t, err)

	var tr smf.Track
	tr.Add(0, midi.NoteOn(0, 70, 127)) // Bb4
	tr.Add(960, midi.NoteOff(0, 70))
	tr.Close(0)
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(960)
	require.NoError(t, s.Add(tr))
	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	require.NoError(t, err)

	streamer, err := r.Render(buf.Bytes())
	require.NoError(t, err)
	require.Greater(t, streamer.Len(), 0)
}
