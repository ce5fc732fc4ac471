package eeg

import (
	"math"
	"strconv"
)

// Recording is one continuous multi-channel recording. Data is stored
// channels × samples. A Recording is treated as immutable once handed to the
// detector.
type Recording struct {
	SampleRate float64     `json:"sample_rate"`
	Labels     []string    `json:"labels,omitempty"`
	Data       [][]float64 `json:"data"`

	// Locations is nil when the montage has no spatial information. A nil
	// entry marks a single channel without a location.
	Locations []*Location `json:"locations,omitempty"`

	// NoseDirection is the axis the nose points along ("+X", "-X", "+Y",
	// "-Y"). Empty means "+X".
	NoseDirection string `json:"nose_direction,omitempty"`
}

// ChannelCount returns the number of channels.
func (r *Recording) ChannelCount() int { return len(r.Data) }

// SampleCount returns the number of samples per channel.
func (r *Recording) SampleCount() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// HasLocations reports whether the recording carries a montage at all.
func (r *Recording) HasLocations() bool { return r.Locations != nil }

// Label returns the channel label for a 1-based channel number, falling back
// to "chN".
func (r *Recording) Label(channel int) string {
	if channel >= 1 && channel <= len(r.Labels) && r.Labels[channel-1] != "" {
		return r.Labels[channel-1]
	}
	return "ch" + strconv.Itoa(channel)
}

// Validate checks that the recording is a two-dimensional channel × sample
// matrix with consistent metadata.
func (r *Recording) Validate() error {
	if r == nil {
		return invalidInput("recording is nil")
	}
	if r.SampleRate <= 0 || math.IsNaN(r.SampleRate) || math.IsInf(r.SampleRate, 0) {
		return invalidInput("sample rate must be positive and finite, got %v", r.SampleRate)
	}
	if len(r.Data) == 0 {
		return invalidInput("recording has no channels")
	}
	n := len(r.Data[0])
	if n == 0 {
		return invalidInput("recording has no samples")
	}
	for i, row := range r.Data {
		if len(row) != n {
			return invalidInput("channel %d has %d samples, expected %d (data is not continuous)", i+1, len(row), n)
		}
	}
	if r.Labels != nil && len(r.Labels) != len(r.Data) {
		return invalidInput("%d labels for %d channels", len(r.Labels), len(r.Data))
	}
	if r.Locations != nil && len(r.Locations) != len(r.Data) {
		return invalidInput("%d locations for %d channels", len(r.Locations), len(r.Data))
	}
	if _, err := noseRotation(r.NoseDirection); err != nil {
		return err
	}
	return nil
}
