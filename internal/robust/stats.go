// Package robust provides outlier-resistant estimators shared by every
// noisy-channel method. All functions are pure; NaN samples are ignored by
// the order statistics and non-finite results are returned as-is.
package robust

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// IQRToSD scales an interquartile range to a standard deviation for Gaussian
// data. Every IQR-based spread estimate in this module uses it.
const IQRToSD = 0.7413

// sortedFinite returns a sorted copy of x without NaN values.
func sortedFinite(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// quantileSorted interpolates linearly between the points (i-0.5)/n of a
// sorted sample and clamps outside them.
func quantileSorted(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	pos := p*float64(n) + 0.5 // 1-based position
	if pos <= 1 {
		return s[0]
	}
	if pos >= float64(n) {
		return s[n-1]
	}
	i := int(math.Floor(pos))
	frac := pos - float64(i)
	return s[i-1] + frac*(s[i]-s[i-1])
}

// Quantile returns the p-th quantile (0 <= p <= 1) of x. Empty input yields
// NaN.
func Quantile(x []float64, p float64) float64 {
	return quantileSorted(sortedFinite(x), p)
}

// Median returns the 0.5 quantile of x.
func Median(x []float64) float64 {
	return Quantile(x, 0.5)
}

// IQR returns the interquartile range of x.
func IQR(x []float64) float64 {
	s := sortedFinite(x)
	return quantileSorted(s, 0.75) - quantileSorted(s, 0.25)
}

// Std returns the IQR-based robust standard deviation of x.
func Std(x []float64) float64 {
	return IQRToSD * IQR(x)
}

// MAD returns the median absolute deviation of x about its median.
func MAD(x []float64) float64 {
	med := Median(x)
	dev := make([]float64, len(x))
	for i, v := range x {
		dev[i] = math.Abs(v - med)
	}
	return Median(dev)
}

// AbsMedian returns median(|x|), the median absolute deviation about zero.
func AbsMedian(x []float64) float64 {
	abs := make([]float64, len(x))
	for i, v := range x {
		abs[i] = math.Abs(v)
	}
	return Median(abs)
}

// ZScore robust-z-scores values against their own median and robust SD and
// returns the scores with the median and SD used.
func ZScore(values []float64) (z []float64, median, sd float64) {
	median = Median(values)
	sd = Std(values)
	return ZScoreWith(values, median, sd), median, sd
}

// ZScoreWith scores values against a median and SD computed elsewhere. A zero
// SD produces non-finite scores.
func ZScoreWith(values []float64, median, sd float64) []float64 {
	z := make([]float64, len(values))
	for i, v := range values {
		z[i] = (v - median) / sd
	}
	return z
}

// NoiseRatio returns AbsMedian(raw-filtered)/AbsMedian(filtered), the ratio
// of high-frequency to low-frequency amplitude for one channel. Both
// deviations are taken about zero, so a DC offset counts as low-frequency
// amplitude.
func NoiseRatio(raw, filtered []float64) float64 {
	diff := make([]float64, len(raw))
	floats.SubTo(diff, raw, filtered)
	return AbsMedian(diff) / AbsMedian(filtered)
}

// Exceeds reports whether v is finite and greater than threshold. Non-finite
// statistics mean "cannot judge" and never exceed.
func Exceeds(v, threshold float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > threshold
}

// Below reports whether v is finite and less than threshold.
func Below(v, threshold float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v < threshold
}

// MedianInPlace returns the median of x, reordering x. NaN values are
// ignored. It avoids the copy made by Median in hot loops.
func MedianInPlace(x []float64) float64 {
	n := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			x[n] = v
			n++
		}
	}
	s := x[:n]
	sort.Float64s(s)
	return quantileSorted(s, 0.5)
}
