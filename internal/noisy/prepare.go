package noisy

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/eegqc/internal/dsp"
	"github.com/banshee-data/eegqc/internal/eeg"
	"github.com/banshee-data/eegqc/internal/robust"
)

// flatTolerance is the spread below which a channel carries no signal.
const flatTolerance = 1e-9

// minFilterRate is the sample rate at or below which there is no band above
// 50 Hz to measure, so the high-frequency method is skipped.
const minFilterRate = 100.0

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// prescreen removes reference channels with NaN samples or no signal and
// records them in the report.
func (a *analysis) prescreen() {
	r := a.report
	for _, ch := range a.params.ReferenceChannels {
		row := a.rec.Data[ch-1]
		switch {
		case hasNaN(row):
			r.BadChannelsFromNaNs = append(r.BadChannelsFromNaNs, ch)
		case robust.MAD(row) < flatTolerance || stat.StdDev(row, nil) < flatTolerance:
			r.BadChannelsFromNoData = append(r.BadChannelsFromNoData, ch)
		default:
			a.channels = append(a.channels, ch)
		}
	}
	r.EvaluationChannels = append([]int{}, a.channels...)
}

// prepare copies the evaluated channels into a samples × channels matrix.
func (a *analysis) prepare() {
	n := a.rec.SampleCount()
	a.raw = mat.NewDense(n, len(a.channels), nil)
	for j, ch := range a.channels {
		a.raw.SetCol(j, a.rec.Data[ch-1])
	}
	a.filtered = a.raw
}

// lowPass separates the low-frequency part of every channel when the sample
// rate leaves room above 50 Hz.
func (a *analysis) lowPass() error {
	if a.rec.SampleRate <= minFilterRate {
		return nil
	}
	taps, err := dsp.DesignLowPass(dsp.DefaultOrder, dsp.DefaultPassHz, dsp.DefaultStopHz, a.rec.SampleRate)
	if err != nil {
		return err
	}
	rows, cols := a.raw.Dims()
	filtered := mat.NewDense(rows, cols, nil)
	err = parallelFor(a.workers, cols, func(j int) error {
		filtered.SetCol(j, dsp.FiltFilt(taps, mat.Col(nil, j, a.raw)))
		return nil
	})
	if err != nil {
		return err
	}
	a.filtered = filtered
	a.report.HFFiltered = true
	return nil
}

// window returns rows [off, off+w) of m.
func window(m *mat.Dense, off, w int) *mat.Dense {
	_, c := m.Dims()
	return m.Slice(off, off+w, 0, c).(*mat.Dense)
}

// emptyWindows fills the per-window report fields when nothing was
// evaluated.
func (a *analysis) emptyWindows() {
	r := a.report
	r.CorrelationWindow = eeg.NewWindowGrid(a.params.CorrelationWindowSeconds, a.rec.SampleRate, a.rec.SampleCount())
	w := r.CorrelationWindow.Len()
	r.MaximumCorrelations = fill(r.ChannelCount, w, 1)
	r.NoiseLevels = fill(r.ChannelCount, w, 0)
	r.WindowDeviations = fill(r.ChannelCount, w, 0)
	r.DropOuts = make([][]bool, r.ChannelCount)
	for i := range r.DropOuts {
		r.DropOuts[i] = make([]bool, w)
	}
}

func fill(rows, cols int, v float64) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		if v != 0 {
			for k := range row {
				row[k] = v
			}
		}
		out[i] = row
	}
	return out
}
