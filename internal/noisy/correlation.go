package noisy

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/eegqc/internal/monitoring"
	"github.com/banshee-data/eegqc/internal/robust"
)

// maxCorrelationQuantile selects a channel's "maximum" correlation while
// tolerating a few unusually similar neighbours.
const maxCorrelationQuantile = 0.98

// findBadByHFNoise scores the ratio of high- to low-frequency amplitude.
// Without a filtered signal every score stays zero and the returned
// median/SD are 0/1 so that per-window scores are zero as well.
func (a *analysis) findBadByHFNoise() (median, sd float64) {
	r := a.report
	if !r.HFFiltered {
		monitoring.Logf("noisy: sample rate %g Hz too low for high-frequency noise detection", a.rec.SampleRate)
		r.NoisinessMedian, r.NoisinessSD = 0, 1
		return 0, 1
	}
	ratios := make([]float64, len(a.channels))
	for j := range a.channels {
		ratios[j] = robust.NoiseRatio(mat.Col(nil, j, a.raw), mat.Col(nil, j, a.filtered))
	}
	z, median, sd := robust.ZScore(ratios)
	for j, ch := range a.channels {
		r.ZScoreHFNoise[ch-1] = z[j]
		if robust.Exceeds(z[j], a.params.HighFrequencyNoiseThreshold) {
			r.BadChannelsFromHFNoise = append(r.BadChannelsFromHFNoise, ch)
		}
	}
	r.NoisinessMedian, r.NoisinessSD = median, sd
	return median, sd
}

// windowStats is the per-window outcome for every evaluated channel.
type windowStats struct {
	maxCorr   []float64
	noise     []float64
	deviation []float64
	dropOut   []bool
}

// findBadByCorrelation runs the windowed correlation, noise and deviation
// statistics and flags channels that spend too long poorly correlated or
// without usable data.
func (a *analysis) findBadByCorrelation(devMedian, devSD, noiseMedian, noiseSD float64) error {
	r := a.report
	a.emptyWindows()
	grid := r.CorrelationWindow
	if grid.Len() == 0 {
		monitoring.Logf("noisy: recording shorter than one %g s correlation window", a.params.CorrelationWindowSeconds)
		return nil
	}

	stats := make([]windowStats, grid.Len())
	err := parallelFor(a.workers, grid.Len(), func(k int) error {
		stats[k] = a.correlationWindow(grid.Offsets[k], grid.Samples, devMedian, devSD, noiseMedian, noiseSD)
		return nil
	})
	if err != nil {
		return err
	}

	nw := float64(grid.Len())
	for j, ch := range a.channels {
		row := ch - 1
		var bad, drop int
		for k, s := range stats {
			r.MaximumCorrelations[row][k] = s.maxCorr[j]
			r.NoiseLevels[row][k] = s.noise[j]
			r.WindowDeviations[row][k] = s.deviation[j]
			r.DropOuts[row][k] = s.dropOut[j]
			if robust.Below(s.maxCorr[j], a.params.CorrelationThreshold) {
				bad++
			}
			if s.dropOut[j] {
				drop++
			}
		}
		r.MedianMaxCorrelation[row] = robust.Median(r.MaximumCorrelations[row])
		r.FractionBadCorrelationWindows[row] = float64(bad) / nw
		r.FractionDropOutWindows[row] = float64(drop) / nw
		if robust.Exceeds(r.FractionBadCorrelationWindows[row], a.params.BadTimeThreshold) {
			r.BadChannelsFromCorrelation = append(r.BadChannelsFromCorrelation, ch)
		}
		if robust.Exceeds(r.FractionDropOutWindows[row], a.params.BadTimeThreshold) {
			r.BadChannelsFromDropOuts = append(r.BadChannelsFromDropOuts, ch)
		}
	}
	return nil
}

// correlationWindow computes the statistics of one window starting at off.
func (a *analysis) correlationWindow(off, w int, devMedian, devSD, noiseMedian, noiseSD float64) windowStats {
	c := len(a.channels)
	raw := window(a.raw, off, w)
	filtered := window(a.filtered, off, w)
	out := windowStats{
		maxCorr:   make([]float64, c),
		noise:     make([]float64, c),
		deviation: make([]float64, c),
		dropOut:   make([]bool, c),
	}

	if c < 2 {
		out.maxCorr[0] = 1
	} else {
		maxCorrelations(filtered, out.maxCorr)
	}

	for j := 0; j < c; j++ {
		rawCol := mat.Col(nil, j, raw)
		out.deviation[j] = (robust.Std(rawCol) - devMedian) / devSD

		ratioFinite := true
		if a.report.HFFiltered {
			ratio := robust.NoiseRatio(rawCol, mat.Col(nil, j, filtered))
			ratioFinite = !math.IsNaN(ratio) && !math.IsInf(ratio, 0)
			out.noise[j] = (ratio - noiseMedian) / noiseSD
		}
		mc := out.maxCorr[j]
		if math.IsNaN(mc) || math.IsInf(mc, 0) || !ratioFinite {
			// A drop-out window counts as uncorrelated and noise-free.
			out.dropOut[j] = true
			out.maxCorr[j] = 0
			out.noise[j] = 0
		}
	}
	return out
}

// maxCorrelations writes each channel's high quantile of absolute
// correlation with the other channels of the window into dst.
func maxCorrelations(win *mat.Dense, dst []float64) {
	c := len(dst)
	corr := mat.NewSymDense(c, nil)
	stat.CorrelationMatrix(corr, win, nil)
	others := make([]float64, 0, c-1)
	for j := 0; j < c; j++ {
		others = others[:0]
		for i := 0; i < c; i++ {
			if i != j {
				others = append(others, math.Abs(corr.At(i, j)))
			}
		}
		dst[j] = robust.Quantile(others, maxCorrelationQuantile)
	}
}
