// Package synthetic generates deterministic recordings with known channel
// faults. Tests use them as fixtures and the CLI uses them for its demo mode.
package synthetic

import (
	"math"
	"math/rand"

	"github.com/banshee-data/eegqc/internal/eeg"
)

// Montage spreads n electrodes over the upper part of the unit sphere on a
// golden-angle spiral, starting at the vertex.
func Montage(n int) []*eeg.Location {
	golden := math.Pi * (3 - math.Sqrt(5))
	locs := make([]*eeg.Location, n)
	for i := range locs {
		z := 1 - 0.9*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		locs[i] = &eeg.Location{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
	}
	return locs
}

// Options describes a synthetic recording.
type Options struct {
	Channels   int
	SampleRate float64
	Seconds    float64
	Seed       int64

	// NoiseAmplitude is the standard deviation of independent white noise
	// added to every channel.
	NoiseAmplitude float64

	// Locations attaches the montage to the recording.
	Locations bool
}

func sampleCount(o Options) int {
	return int(math.Round(o.Seconds * o.SampleRate))
}

// Smooth builds a recording in which every channel carries a shared rhythm
// scaled by a per-channel gain plus a weaker rhythm graded along the X axis
// of the montage. Neighbouring channels are therefore highly correlated and
// each channel is well predicted from the others.
func Smooth(o Options) *eeg.Recording {
	n := sampleCount(o)
	montage := Montage(o.Channels)
	rng := rand.New(rand.NewSource(o.Seed))

	data := make([][]float64, o.Channels)
	for ch := range data {
		gain := 0.9
		if o.Channels > 1 {
			gain += 0.2 * float64(ch) / float64(o.Channels-1)
		}
		grade := 0.3 * montage[ch].X
		row := make([]float64, n)
		for i := range row {
			t := float64(i) / o.SampleRate
			shared := math.Sin(2*math.Pi*10*t) + 0.5*math.Sin(2*math.Pi*6*t+0.3)
			graded := math.Sin(2*math.Pi*17*t + 1.1)
			row[i] = gain*(shared+grade*graded) + o.NoiseAmplitude*rng.NormFloat64()
		}
		data[ch] = row
	}

	rec := &eeg.Recording{SampleRate: o.SampleRate, Data: data}
	if o.Locations {
		rec.Locations = montage
	}
	return rec
}

// Identical builds a recording whose channels are exact copies of one
// signal.
func Identical(o Options) *eeg.Recording {
	n := sampleCount(o)
	rng := rand.New(rand.NewSource(o.Seed))
	base := make([]float64, n)
	for i := range base {
		t := float64(i) / o.SampleRate
		base[i] = math.Sin(2*math.Pi*8*t) + o.NoiseAmplitude*rng.NormFloat64()
	}
	data := make([][]float64, o.Channels)
	for ch := range data {
		data[ch] = append([]float64(nil), base...)
	}
	rec := &eeg.Recording{SampleRate: o.SampleRate, Data: data}
	if o.Locations {
		rec.Locations = Montage(o.Channels)
	}
	return rec
}

// ReplaceWithNoise overwrites a 1-based channel with white noise.
func ReplaceWithNoise(rec *eeg.Recording, channel int, amplitude float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	row := rec.Data[channel-1]
	for i := range row {
		row[i] = amplitude * rng.NormFloat64()
	}
}

// AddSine adds a sinusoid to a 1-based channel.
func AddSine(rec *eeg.Recording, channel int, freq, amplitude float64) {
	row := rec.Data[channel-1]
	for i := range row {
		row[i] += amplitude * math.Sin(2*math.Pi*freq*float64(i)/rec.SampleRate)
	}
}

// Flatten overwrites a 1-based channel with a constant.
func Flatten(rec *eeg.Recording, channel int, value float64) {
	row := rec.Data[channel-1]
	for i := range row {
		row[i] = value
	}
}

// InjectNaN sets one sample of a 1-based channel to NaN.
func InjectNaN(rec *eeg.Recording, channel, sample int) {
	rec.Data[channel-1][sample] = math.NaN()
}
