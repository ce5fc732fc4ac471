// Package dsp implements the zero-phase low-pass filter that separates the
// low-frequency part of a channel from its high-frequency noise.
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Default low-pass design used by the noisy-channel detector: order 100 with
// the transition band between 45 and 50 Hz.
const (
	DefaultOrder  = 100
	DefaultPassHz = 45.0
	DefaultStopHz = 50.0
)

// DesignLowPass returns order+1 taps of a linear-phase low-pass FIR filter
// built by frequency sampling. The desired response is 1 up to passHz,
// falls linearly to 0 at stopHz, and is then 0 up to Nyquist. The kernel is
// shaped with a Hamming window.
func DesignLowPass(order int, passHz, stopHz, sampleRate float64) ([]float64, error) {
	nyquist := sampleRate / 2
	switch {
	case order < 2:
		return nil, fmt.Errorf("filter order must be at least 2, got %d", order)
	case sampleRate <= 0:
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	case passHz <= 0 || stopHz <= passHz || stopHz > nyquist:
		return nil, fmt.Errorf("need 0 < pass (%v) < stop (%v) <= nyquist (%v)", passHz, stopHz, nyquist)
	}

	nfft := 512
	for nfft < order {
		nfft *= 2
	}

	// Piecewise-linear desired amplitude on the grid 0..nfft.
	knots := [...]int{
		0,
		int(math.Round(passHz / nyquist * float64(nfft))),
		int(math.Round(stopHz / nyquist * float64(nfft))),
		nfft,
	}
	gains := [...]float64{1, 1, 0, 0}
	coeff := make([]complex128, nfft+1)
	seg := 0
	for k := 0; k <= nfft; k++ {
		for seg < len(knots)-2 && k > knots[seg+1] {
			seg++
		}
		a := gains[seg]
		if span := knots[seg+1] - knots[seg]; span > 0 {
			frac := float64(k-knots[seg]) / float64(span)
			a = gains[seg] + frac*(gains[seg+1]-gains[seg])
		}
		// Delay by order/2 samples so the kernel is causal and symmetric.
		phase := -0.5 * float64(order) * math.Pi * float64(k) / float64(nfft)
		coeff[k] = complex(a, 0) * cmplx.Exp(complex(0, phase))
	}

	n := 2 * nfft
	seq := fourier.NewFFT(n).Sequence(nil, coeff)

	taps := make([]float64, order+1)
	for k := range taps {
		w := 0.54 - 0.46*math.Cos(2*math.Pi*float64(k)/float64(order))
		taps[k] = seq[k] / float64(n) * w
	}
	return taps, nil
}

// Filter applies a causal FIR filter with zero initial state.
func Filter(taps, x []float64) []float64 {
	y := make([]float64, len(x))
	for i := range x {
		var acc float64
		for k, b := range taps {
			if i-k < 0 {
				break
			}
			acc += b * x[i-k]
		}
		y[i] = acc
	}
	return y
}

// FiltFilt filters x forwards and backwards so the result has no phase
// shift. The signal is extended at both ends by len(taps) samples reflected
// about the end points to suppress edge transients.
func FiltFilt(taps, x []float64) []float64 {
	t := len(x)
	if t == 0 {
		return nil
	}
	w := len(taps)
	mod := func(i int) int { return ((i % t) + t) % t }

	ext := make([]float64, 0, t+2*w)
	for k := 0; k < w; k++ {
		ext = append(ext, 2*x[0]-x[mod(w-k)])
	}
	ext = append(ext, x...)
	for k := 0; k < w; k++ {
		ext = append(ext, 2*x[t-1]-x[mod(t-2-k)])
	}

	y := Filter(taps, ext)
	reverse(y)
	y = Filter(taps, y)
	reverse(y)

	out := make([]float64, t)
	copy(out, y[w:w+t])
	return out
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
