// Package rtt contains tools for calculating stats on message processing
// times.
package rtt

import (
	"math"
	"sync"
	"time"
)

type (
	Stats struct {
		Count  int
		Latest time.Duration
		Avg    time.Duration
		Min    time.Duration
		Max    time.Duration
	}

	// Window keeps the last Size durations. It is safe for concurrent use.
	Window struct {
		mu    sync.Mutex
		size  int
		times []time.Duration
		total int
	}
)

// Calc summarises prev, with Avg rounded to the nearest millisecond.
func Calc(latest time.Duration, prev []time.Duration) Stats {
	roundedAvg := math.Round(float64(Avg(prev)/time.Millisecond)) * float64(time.Millisecond)
	return Stats{
		Count:  len(prev),
		Latest: latest,
		Avg:    time.Duration(roundedAvg),
		Max:    Max(prev),
		Min:    Min(prev),
	}
}

func Min(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, t := range times {
		min = math.Min(min, float64(t))
	}
	return time.Duration(min)
}

func Max(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, t := range times {
		max = math.Max(max, float64(t))
	}
	return time.Duration(max)
}

func Avg(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	sum := time.Duration(0)
	for _, t := range times {
		sum = sum + t
	}
	return sum / time.Duration(len(times))
}

func NewWindow(size int) *Window {
	return &Window{size: size, times: make([]time.Duration, 0, size)}
}

func (w *Window) Add(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.times) == w.size {
		copy(w.times, w.times[1:])
		w.times = w.times[:w.size-1]
	}
	w.times = append(w.times, d)
	w.total++
}

// Stats summarises the window. Count is the number of durations ever added.
// Unlike Calc, Avg is not rounded.
func (w *Window) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	var latest time.Duration
	if len(w.times) > 0 {
		latest = w.times[len(w.times)-1]
	}
	s := Calc(latest, w.times)
	s.Count = w.total
	s.Avg = Avg(w.times)
	return s
}
