// Package preview renders a remapped MIDI file to audio with a SoundFont so
// the result can be listened to without a DAW.
package preview

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/sirupsen/logrus"
)

const DefaultSampleRate = 44100

type (
	Renderer struct {
		soundFont  *meltysynth.SoundFont
		sampleRate int32
		tail       time.Duration
	}

	Options struct {
		// Defaults to DefaultSampleRate.
		SampleRate int
		// Extra time rendered after the last event so releases ring out.
		Tail time.Duration
	}

	// Streamer plays back a rendered stereo buffer.
	Streamer struct {
		pos   int
		left  []float32
		right []float32
	}
)

// NewRenderer loads a SoundFont (.sf2).
func NewRenderer(sf2 io.Reader, o Options) (*Renderer, error) {
	soundFont, err := meltysynth.NewSoundFont(sf2)
	if err != nil {
		return nil, fmt.Errorf("load sound font: %w", err)
	}
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	return &Renderer{
		soundFont:  soundFont,
		sampleRate: int32(o.SampleRate),
		tail:       o.Tail,
	}, nil
}

func (r *Renderer) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(r.sampleRate),
		NumChannels: 2,
		Precision:   2,
	}
}

// Render synthesizes a whole SMF into memory.
func (r *Renderer) Render(smfData []byte) (*Streamer, error) {
	midiFile, err := meltysynth.NewMidiFile(bytes.NewReader(smfData))
	if err != nil {
		return nil, fmt.Errorf("parse midi: %w", err)
	}

	settings := meltysynth.NewSynthesizerSettings(r.sampleRate)
	synthesizer, err := meltysynth.NewSynthesizer(r.soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}

	sequencer := meltysynth.NewMidiFileSequencer(synthesizer)
	sequencer.Play(midiFile, false)

	length := midiFile.GetLength() + r.tail
	bufLen := int(float64(r.sampleRate) * length.Seconds())
	streamer := NewStreamer(make([]float32, bufLen), make([]float32, bufLen))
	sequencer.Render(streamer.left, streamer.right)

	logrus.WithFields(logrus.Fields{
		"length":  length,
		"samples": bufLen,
	}).Debug("preview rendered")
	return streamer, nil
}

// WriteWAV renders smfData and encodes it as 16-bit stereo WAV.
func (r *Renderer) WriteWAV(smfData []byte, w io.WriteSeeker) error {
	streamer, err := r.Render(smfData)
	if err != nil {
		return err
	}
	return EncodeWAV(w, streamer, r.Format())
}

// EncodeWAV writes s to w until s is drained.
func EncodeWAV(w io.WriteSeeker, s beep.Streamer, format beep.Format) error {
	if err := wav.Encode(w, s, format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}

func NewStreamer(left, right []float32) *Streamer {
	return &Streamer{left: left, right: right}
}

// Stream implements beep.Streamer. It reports !ok once the buffer is
// drained.
func (ms *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	left := make([]float32, len(samples))
	right := make([]float32, len(samples))

	n, _ = ms.Read(left, right)
	for i := 0; i < n; i++ {
		samples[i][0] = float64(left[i])
		samples[i][1] = float64(right[i])
	}
	return n, n > 0
}

// Len returns the total number of samples of the Streamer.
func (ms *Streamer) Len() int {
	// left and right have the same length
	return len(ms.left)
}

// Position returns the current position of the Streamer.
func (ms *Streamer) Position() int {
	return ms.pos
}

// Seek sets the position of the Streamer to the provided value.
func (ms *Streamer) Seek(p int) error {
	if p < 0 || p > len(ms.left) {
		return fmt.Errorf("p is out of range: %d", p)
	}
	ms.pos = p
	return nil
}

func (ms *Streamer) Err() error {
	return nil
}

// Read copies from the current position into outLeft/outRight and advances
// it. It returns io.EOF once nothing is left.
func (ms *Streamer) Read(outLeft, outRight []float32) (int, error) {
	n := copy(outLeft, ms.left[ms.pos:])
	copy(outRight[:n], ms.right[ms.pos:])
	ms.pos += n
	if n == 0 && len(outLeft) > 0 {
		return 0, io.EOF
	}
	return n, nil
}
