package noisy

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/eegqc/internal/eeg"
	"github.com/banshee-data/eegqc/internal/monitoring"
	"github.com/banshee-data/eegqc/internal/robust"
	"github.com/banshee-data/eegqc/internal/spatial"
)

// Projector is a bank of spatial reconstructions. Subsets[m] lists positions
// into Channels; Matrices[m] is len(Channels)×len(Subsets[m]) and predicts
// every channel from the channels of subset m. It is read-only once built.
type Projector struct {
	Channels []int
	Subsets  [][]int
	Matrices []*mat.Dense
}

// drawSubsets draws count sorted subsets of size distinct positions in
// [0, n). Draws consume rng sequentially, so the result depends only on the
// generator state.
func drawSubsets(rng *rand.Rand, n, size, count int) [][]int {
	out := make([][]int, count)
	for m := range out {
		s := rng.Perm(n)[:size]
		sort.Ints(s)
		out[m] = s
	}
	return out
}

// NewProjector draws count random subsets of size channels from channels
// (with locs[i] the location of channels[i]) using a generator seeded with
// seed, and builds each subset's spline reconstruction on up to workers
// goroutines.
func NewProjector(channels []int, locs []eeg.Location, size, count int, seed int64, workers int) (*Projector, error) {
	if len(locs) != len(channels) {
		return nil, fmt.Errorf("%d locations for %d channels", len(locs), len(channels))
	}
	if size < 1 || size > len(channels) {
		return nil, fmt.Errorf("subset size %d out of range 1..%d", size, len(channels))
	}
	p := &Projector{
		Channels: append([]int(nil), channels...),
		Subsets:  drawSubsets(rand.New(rand.NewSource(seed)), len(channels), size, count),
		Matrices: make([]*mat.Dense, count),
	}
	kernel := spatial.NewKernel(locs)
	err := parallelFor(workers, count, func(m int) error {
		w, err := kernel.Interpolator(p.Subsets[m])
		if err != nil {
			return fmt.Errorf("subset %d: %w", m, err)
		}
		p.Matrices[m] = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Predict returns, for every channel of the projector, the elementwise
// median of the subset reconstructions of the window signal. cols[j] is the
// observed signal of Channels[j]; the result has the same shape.
func (p *Projector) Predict(cols [][]float64) [][]float64 {
	n := len(cols[0])
	bag := make([][]float64, len(p.Matrices))
	for m := range bag {
		bag[m] = make([]float64, n)
	}
	sample := make([]float64, len(p.Matrices))
	out := make([][]float64, len(p.Channels))
	for c := range out {
		for m, w := range p.Matrices {
			pred := bag[m]
			for i := range pred {
				pred[i] = 0
			}
			for j, src := range p.Subsets[m] {
				floats.AddScaled(pred, w.At(c, j), cols[src])
			}
		}
		med := make([]float64, n)
		for t := 0; t < n; t++ {
			for m := range bag {
				sample[m] = bag[m][t]
			}
			med[t] = robust.MedianInPlace(sample)
		}
		out[c] = med
	}
	return out
}

// unbrokenLimit converts the unbroken-time parameter to samples: values
// below 1 are a fraction of the recording, larger values are seconds.
func unbrokenLimit(u float64, totalSamples int, sampleRate float64) float64 {
	if u < 1 {
		return u * float64(totalSamples)
	}
	return u * sampleRate
}

// skipRansac records why the spatial method did not run.
func (a *analysis) skipRansac(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	a.report.RansacMessage = msg
	monitoring.Logf("noisy: ransac skipped: %s", msg)
}

// findBadByRansac flags channels that the montage consistently fails to
// predict from random subsets of the other channels.
func (a *analysis) findBadByRansac() {
	r := a.report
	r.RansacWindow = eeg.NewWindowGrid(a.params.RansacWindowSeconds, a.rec.SampleRate, a.rec.SampleCount())
	if !a.rec.HasLocations() {
		a.skipRansac("recording has no channel locations")
		return
	}
	excluded := eeg.Union(r.BadChannelsFromDeviation, r.BadChannelsFromCorrelation, r.BadChannelsFromDropOuts)
	candidates := eeg.Difference(a.channels, excluded)
	subsetSize := int(math.Round(a.params.RansacChannelFraction * float64(a.rec.ChannelCount())))
	r.RansacSubsetSize = subsetSize
	switch {
	case len(candidates) < 3:
		a.skipRansac("%d candidate channels, need at least 3", len(candidates))
		return
	case subsetSize < 2:
		a.skipRansac("subset size %d, need at least 2", subsetSize)
		return
	case len(candidates) < subsetSize+1:
		a.skipRansac("%d candidate channels, need at least %d", len(candidates), subsetSize+1)
		return
	case r.RansacWindow.Len() == 0:
		a.skipRansac("recording shorter than one %g s window", a.params.RansacWindowSeconds)
		return
	}

	locs, err := a.rec.CanonicalLocations(candidates)
	if err != nil {
		a.failRansac(err)
		return
	}
	proj, err := NewProjector(candidates, locs, subsetSize, a.params.RansacSampleSize, a.params.RansacSeed, a.workers)
	if err != nil {
		a.failRansac(err)
		return
	}
	if err := a.scoreRansac(proj); err != nil {
		a.failRansac(err)
		return
	}
	r.RansacPerformed = true
}

func (a *analysis) failRansac(err error) {
	r := a.report
	r.RansacFailed = true
	r.RansacErr = err
	r.RansacMessage = err.Error()
	var locErr *eeg.InvalidChannelLocationError
	if errors.As(err, &locErr) {
		monitoring.Logf("noisy: ransac failed on channel %d: %v", locErr.Channel, err)
		return
	}
	monitoring.Logf("noisy: ransac failed: %v", err)
}

// scoreRansac correlates every candidate with its median prediction in each
// window and applies the unbroken-time rule.
func (a *analysis) scoreRansac(proj *Projector) error {
	r := a.report
	grid := r.RansacWindow
	column := make(map[int]int, len(a.channels))
	for j, ch := range a.channels {
		column[ch] = j
	}

	corr := make([][]float64, grid.Len()) // [window][candidate]
	err := parallelFor(a.workers, grid.Len(), func(k int) error {
		win := window(a.filtered, grid.Offsets[k], grid.Samples)
		cols := make([][]float64, len(proj.Channels))
		for j, ch := range proj.Channels {
			cols[j] = mat.Col(nil, column[ch], win)
		}
		pred := proj.Predict(cols)
		out := make([]float64, len(cols))
		for j := range cols {
			out[j] = stat.Correlation(cols[j], pred[j], nil)
		}
		corr[k] = out
		return nil
	})
	if err != nil {
		return err
	}

	r.RansacChannels = proj.Channels
	r.RansacCorrelations = fill(r.ChannelCount, grid.Len(), 1)
	limit := unbrokenLimit(a.params.RansacUnbrokenTime, a.rec.SampleCount(), a.rec.SampleRate)
	for j, ch := range proj.Channels {
		bad := 0
		for k := range corr {
			r.RansacCorrelations[ch-1][k] = corr[k][j]
			if robust.Below(corr[k][j], a.params.RansacCorrelationThreshold) {
				bad++
			}
		}
		r.RansacBadWindowFraction[ch-1] = float64(bad) / float64(grid.Len())
		if float64(bad*grid.Samples) > limit {
			r.BadChannelsFromRansac = append(r.BadChannelsFromRansac, ch)
		}
	}
	return nil
}
