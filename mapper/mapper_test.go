package mapper_test

import (
	"strings"
	"testing"

	"github.com/rapidmidiex/modeshift/mapper"
	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/scale"
	"github.com/stretchr/testify/require"
)

func mustLookup(t *testing.T, table scale.Table, name string) scale.Scale {
	t.Helper()
	s, err := table.Lookup(name)
	require.NoError(t, err)
	return s
}

func TestNoteToDegree(t *testing.T) {
	table := scale.Default()
	ionian := mustLookup(t, table, "Ionian")

	t.Run("in-scale notes have exact degrees", func(t *testing.T) {
		for i, c := range ionian.Degrees {
			d := mapper.NoteToDegree(c, ionian)
			require.True(t, d.IsExact())
			require.Equal(t, i, d.Lower())
			require.Equal(t, float64(i), d.Float64())
		}
	})

	t.Run("out-of-scale notes sit between degrees", func(t *testing.T) {
		d := mapper.NoteToDegree(pitch.Gb, ionian)
		require.False(t, d.IsExact())
		require.Equal(t, 2.5, d.Float64())
		require.Equal(t, "2.5", d.String())

		require.Equal(t, 0.5, mapper.NoteToDegree(pitch.Db, ionian).Float64())
		require.Equal(t, 5.5, mapper.NoteToDegree(pitch.Bb, ionian).Float64())
	})

	t.Run("notes below every degree give -0.5", func(t *testing.T) {
		high, err := scale.Load(strings.NewReader("High,Db,D,E,F,G,A,B\n"))
		require.NoError(t, err)
		d := mapper.NoteToDegree(pitch.C, mustLookup(t, high, "high"))
		require.Equal(t, -0.5, d.Float64())
		require.Equal(t, mapper.Between(-1), d)
	})
}

func TestMapNote(t *testing.T) {
	table := scale.Default()
	ionian := mustLookup(t, table, "Ionian")
	aeolian := mustLookup(t, table, "Aeolian")

	t.Run("E in Ionian becomes Eb in Aeolian", func(t *testing.T) {
		require.Equal(t, pitch.Eb, mapper.MapNote(pitch.E, ionian, aeolian))
	})

	t.Run("Gb from Ionian lands on E in Aeolian", func(t *testing.T) {
		require.Equal(t, pitch.E, mapper.MapNote(pitch.Gb, ionian, aeolian))
	})

	t.Run("in-scale notes keep their degree", func(t *testing.T) {
		for _, origin := range table.Names() {
			for _, target := range table.Names() {
				o, tg := mustLookup(t, table, origin), mustLookup(t, table, target)
				for i, c := range o.Degrees {
					require.Equal(t, tg.Degrees[i], mapper.MapNote(c, o, tg), "%s -> %s degree %d", origin, target, i)
				}
			}
		}
	})

	t.Run("mapping a scale onto itself is the identity on its notes", func(t *testing.T) {
		for _, name := range table.Names() {
			s := mustLookup(t, table, name)
			for _, c := range s.Degrees {
				require.Equal(t, c, mapper.MapNote(c, s, s))
			}
		}
	})

	t.Run("midpoints round half to even", func(t *testing.T) {
		phrygian := mustLookup(t, table, "Phrygian")
		// Db is degree 0.5 of Ionian; Phrygian C(0)..Db(1) averages to 0.5.
		require.Equal(t, pitch.C, mapper.MapNote(pitch.Db, ionian, phrygian))
		// Eb is degree 1.5; Aeolian D(2)..Eb(3) averages to 2.5.
		require.Equal(t, pitch.D, mapper.MapNote(pitch.Eb, ionian, aeolian))
	})

	t.Run("above the top degree averages with B", func(t *testing.T) {
		dorian := mustLookup(t, table, "Dorian")
		// B is not in Aeolian and every entry is below it: degree 6.5.
		require.Equal(t, 6.5, mapper.NoteToDegree(pitch.B, aeolian).Float64())
		require.Equal(t, pitch.B, mapper.MapNote(pitch.B, aeolian, ionian))
		// Dorian Bb(10) and B(11) average to 10.5, rounded to 10.
		require.Equal(t, pitch.Bb, mapper.MapNote(pitch.B, aeolian, dorian))
	})

	t.Run("below the lowest degree uses the same ceiling formula", func(t *testing.T) {
		high, err := scale.Load(strings.NewReader("High,Db,D,E,F,G,A,B\n"))
		require.NoError(t, err)
		origin := mustLookup(t, high, "High")
		require.Equal(t, pitch.B, mapper.MapNote(pitch.C, origin, ionian))
		require.Equal(t, pitch.Bb, mapper.MapNote(pitch.C, origin, aeolian))
	})

	t.Run("is deterministic", func(t *testing.T) {
		first := mapper.MapNote(pitch.Ab, ionian, aeolian)
		for i := 0; i < 100; i++ {
			require.Equal(t, first, mapper.MapNote(pitch.Ab, ionian, aeolian))
		}
	})
}

func TestMapper(t *testing.T) {
	table := scale.Default()
	ionian := mustLookup(t, table, "Ionian")
	aeolian := mustLookup(t, table, "Aeolian")

	m := mapper.New(ionian, aeolian)
	want := [12]pitch.Class{
		pitch.C, pitch.Db, pitch.D, pitch.D, pitch.Eb, pitch.F,
		pitch.E, pitch.G, pitch.Ab, pitch.Ab, pitch.A, pitch.Bb,
	}
	require.Equal(t, want, m.Table())
	for c := pitch.C; c <= pitch.B; c++ {
		require.Equal(t, mapper.MapNote(c, ionian, aeolian), m.Map(c))
	}
	require.Equal(t, ionian, m.Origin())
	require.Equal(t, aeolian, m.Target())
}
