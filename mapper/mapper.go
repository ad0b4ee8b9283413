// Package mapper moves note names from one seven-degree scale to another by
// scale degree.
//
// A note that belongs to the origin scale keeps its degree. A note that does
// not is placed between the two degrees that bracket it and lands on the
// midpoint of the matching degrees of the target scale. Midpoints are
// rounded half to even.
//
// Notes above the top degree, and notes below the lowest degree, have no
// neighbour pair in the target scale. Both are resolved against pitch class
// B as a chromatic ceiling: the result is the midpoint of the target's top
// degree and B.
package mapper

import (
	"math"
	"strconv"

	"github.com/rapidmidiex/modeshift/pitch"
	"github.com/rapidmidiex/modeshift/scale"
)

// Degree is a position in a scale: either an exact degree, or the half-way
// point between degree Lower and Lower+1.
type Degree struct {
	lower   int
	between bool
}

func Exact(i int) Degree { return Degree{lower: i} }

// Between is the degree half-way between i and i+1. Between(-1) sits below
// the first degree.
func Between(i int) Degree { return Degree{lower: i, between: true} }

func (d Degree) IsExact() bool { return !d.between }

func (d Degree) Lower() int { return d.lower }

func (d Degree) Float64() float64 {
	if d.between {
		return float64(d.lower) + 0.5
	}
	return float64(d.lower)
}

func (d Degree) String() string {
	return strconv.FormatFloat(d.Float64(), 'f', -1, 64)
}

// NoteToDegree locates name in s. Notes outside the scale count the scale
// entries strictly below them, giving count-0.5.
func NoteToDegree(name pitch.Class, s scale.Scale) Degree {
	if i := s.Index(name); i >= 0 {
		return Exact(i)
	}
	count := 0
	for _, d := range s.Degrees {
		if d < name {
			count++
		}
	}
	return Between(count - 1)
}

// DegreeToName resolves d against target.
func DegreeToName(d Degree, target scale.Scale) pitch.Class {
	if d.IsExact() {
		return target.Degrees[d.lower]
	}
	i := d.lower
	if i >= 0 && i < scale.Size-1 {
		return midpoint(target.Degrees[i], target.Degrees[i+1])
	}
	return midpoint(target.Degrees[scale.Size-1], pitch.B)
}

func midpoint(a, b pitch.Class) pitch.Class {
	return pitch.Class(math.RoundToEven(float64(a+b) / 2))
}

// MapNote moves name from origin to target by degree.
func MapNote(name pitch.Class, origin, target scale.Scale) pitch.Class {
	return DegreeToName(NoteToDegree(name, origin), target)
}

// Mapper holds MapNote precomputed for all twelve pitch classes.
type Mapper struct {
	origin, target scale.Scale
	table          [12]pitch.Class
}

func New(origin, target scale.Scale) *Mapper {
	m := &Mapper{origin: origin, target: target}
	for c := pitch.C; c <= pitch.B; c++ {
		m.table[c] = MapNote(c, origin, target)
	}
	return m
}

// Map returns the target name for c. c must be a valid pitch class.
func (m *Mapper) Map(c pitch.Class) pitch.Class {
	return m.table[c]
}

// Table returns the mapping indexed by origin pitch class.
func (m *Mapper) Table() [12]pitch.Class {
	return m.table
}

func (m *Mapper) Origin() scale.Scale { return m.origin }

func (m *Mapper) Target() scale.Scale { return m.target }
