// Package spatial builds spherical-spline interpolation matrices that
// predict every channel of a montage from a subset of its channels.
//
// The kernel follows Perrin et al. (1989): for unit vectors a and b,
//
//	g(cos θ) = 1/(4π) Σ_{n≥1} (2n+1)/(n(n+1))^m · P_n(cos θ)
//
// with m = SplineOrder. Source weights are constrained to sum to zero so the
// interpolant reproduces constant fields exactly.
package spatial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/eegqc/internal/eeg"
)

const (
	// SplineOrder is the smoothness exponent m of the spline kernel.
	SplineOrder = 4
	// Regularization is added to the source kernel diagonal.
	Regularization = 1e-5

	maxLegendreTerms = 500
)

// legendreKernel evaluates g(x) for x = cos θ.
func legendreKernel(x float64) float64 {
	// P_1 seeds the recurrence.
	pPrev, p := 1.0, x
	g := 3 * p / math.Pow(2, SplineOrder)
	dG := math.Abs(g)
	for n := 2; n <= maxLegendreTerms; n++ {
		pPrev, p = p, ((2*float64(n)-1)*x*p-(float64(n)-1)*pPrev)/float64(n)
		nn := float64(n*n + n)
		term := (2*float64(n) + 1) * p / math.Pow(nn, SplineOrder)
		g += term
		// Running average of the step size as the convergence estimate.
		dG = (math.Abs(term) + dG) / 2
		if dG < 1e-15 {
			break
		}
	}
	return g / (4 * math.Pi)
}

// Kernel holds the spline kernel between every pair of a fixed set of
// unit-sphere locations. Interpolators for subsets slice it instead of
// re-evaluating the Legendre series.
type Kernel struct {
	g *mat.SymDense
}

// NewKernel evaluates the kernel for all pairs of locs. Locations are
// normalised onto the unit sphere.
func NewKernel(locs []eeg.Location) *Kernel {
	n := len(locs)
	unit := make([]eeg.Location, n)
	for i, l := range locs {
		unit[i] = l.Unit()
	}
	g := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := unit[i].X*unit[j].X + unit[i].Y*unit[j].Y + unit[i].Z*unit[j].Z
			c = math.Max(-1, math.Min(1, c))
			g.SetSym(i, j, legendreKernel(c))
		}
	}
	return &Kernel{g: g}
}

// Size returns the number of locations in the kernel.
func (k *Kernel) Size() int { return k.g.SymmetricDim() }

// Interpolator returns the Size()×len(subset) matrix W such that W·x
// predicts all locations from values x observed at the subset positions.
func (k *Kernel) Interpolator(subset []int) (*mat.Dense, error) {
	n, s := k.Size(), len(subset)
	if s == 0 {
		return nil, fmt.Errorf("empty interpolation subset")
	}
	for _, idx := range subset {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("subset index %d out of range 0..%d", idx, n-1)
		}
	}

	// C = [Gss+λI 1; 1ᵀ 0]
	c := mat.NewDense(s+1, s+1, nil)
	for i, a := range subset {
		for j, b := range subset {
			c.Set(i, j, k.g.At(a, b))
		}
		c.Set(i, i, c.At(i, i)+Regularization)
		c.Set(i, s, 1)
		c.Set(s, i, 1)
	}
	ic, err := pinv(c)
	if err != nil {
		return nil, err
	}

	// [Gds 1]
	gds := mat.NewDense(n, s+1, nil)
	for i := 0; i < n; i++ {
		for j, b := range subset {
			gds.Set(i, j, k.g.At(i, b))
		}
		gds.Set(i, s, 1)
	}

	var w mat.Dense
	w.Mul(gds, ic.Slice(0, s+1, 0, s))
	return &w, nil
}

// pinv computes the Moore-Penrose pseudo-inverse through an SVD, dropping
// singular values below max(rows, cols)·eps·σmax.
func pinv(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, fmt.Errorf("svd factorisation failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sigma := svd.Values(nil)

	r, c := a.Dims()
	eps := math.Nextafter(1, 2) - 1
	tol := float64(max(r, c)) * eps * sigma[0]
	for i, s := range sigma {
		if s > tol {
			sigma[i] = 1 / s
		} else {
			sigma[i] = 0
		}
	}

	// V·Σ⁺
	vs := mat.DenseCopyOf(&v)
	vs.Apply(func(_, j int, x float64) float64 { return x * sigma[j] }, vs)

	var out mat.Dense
	out.Mul(vs, u.T())
	return &out, nil
}
