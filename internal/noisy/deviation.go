package noisy

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/eegqc/internal/robust"
)

// findBadByDeviation flags channels whose robust amplitude is an outlier
// among the evaluated channels. It returns the population median and SD for
// reuse by the per-window deviation scores.
func (a *analysis) findBadByDeviation() (median, sd float64) {
	r := a.report
	devs := make([]float64, len(a.channels))
	for j := range a.channels {
		devs[j] = robust.Std(mat.Col(nil, j, a.raw))
	}
	z, median, sd := robust.ZScore(devs)

	for j, ch := range a.channels {
		r.ChannelDeviations[ch-1] = devs[j]
		r.RobustChannelDeviation[ch-1] = z[j]
		if robust.Exceeds(math.Abs(z[j]), a.params.RobustDeviationThreshold) {
			r.BadChannelsFromDeviation = append(r.BadChannelsFromDeviation, ch)
		}
	}
	r.ChannelDeviationMedian = median
	r.ChannelDeviationSD = sd
	return median, sd
}
