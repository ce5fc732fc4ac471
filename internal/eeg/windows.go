package eeg

import "math"

// WindowGrid is a sequence of non-overlapping, equal-length windows. Offsets
// are 0-based sample indices; a trailing partial window is dropped.
type WindowGrid struct {
	Samples int   `json:"samples"`
	Offsets []int `json:"offsets"`
}

// NewWindowGrid lays out windows of round(seconds*sampleRate) samples over
// totalSamples samples.
func NewWindowGrid(seconds, sampleRate float64, totalSamples int) WindowGrid {
	return WindowGridSamples(int(math.Round(seconds*sampleRate)), totalSamples)
}

// WindowGridSamples lays out windows of w samples over totalSamples samples.
// There are floor((N-w)/w)+1 windows when N >= w and none otherwise.
func WindowGridSamples(w, totalSamples int) WindowGrid {
	g := WindowGrid{Samples: w}
	if w <= 0 || totalSamples < w {
		return g
	}
	g.Offsets = make([]int, 0, totalSamples/w)
	for start := 0; start+w <= totalSamples; start += w {
		g.Offsets = append(g.Offsets, start)
	}
	return g
}

// Len returns the number of windows.
func (g WindowGrid) Len() int { return len(g.Offsets) }

