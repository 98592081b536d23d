// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// panelOrder is the fixed Chebyshev degree per panel, p=24 (spec.md
// §3/§4.B). It is not a tunable: the dyadic panel grading, not the
// per-panel order, is what adapts to Λ.
const panelOrder = 24

// FineGrid is the composite-Chebyshev discretization of the Lehmann
// kernel on τ∈[0,1] and ω∈[−Λ,Λ] (spec.md §3). It is owned transiently
// by Build and dropped once the DLRBasis it produces is returned.
type FineGrid struct {
	P          int // panel Chebyshev degree, panelOrder
	Npt, Npo   int // panel counts in τ, ω
	T          []float64
	Om         []float64
	Kmat       *mat.Dense // nt×no
	Err        [2]float64 // [0]: τ-direction panel self-check L∞ error, [1]: ω-direction
	tPanelEdge []float64  // npt+1 break points on [0, 1/2]
	omPanelEdge []float64 // 2*npo+1 break points on [−Λ, Λ]
}

// panelCounts returns (npt, npo) for cutoff Λ, per spec.md §4.B.
func panelCounts(lambda float64) (npt, npo int) {
	log2lambda := math.Log2(lambda)
	npt = int(math.Ceil(log2lambda)) - 2
	if npt < 1 {
		npt = 1
	}
	npo = int(math.Ceil(log2lambda))
	if npo < 1 {
		npo = 1
	}
	return npt, npo
}

// BuildFineGrid constructs the fine composite-Chebyshev discretization
// of the Lehmann kernel for cutoff Λ>0 (spec.md §4.B), grounded on
// original_source/pydlr/kernel.py's kernel_discretization.
func BuildFineGrid(lambda float64) (*FineGrid, error) {
	if lambda <= 0 {
		return nil, ErrInvalidInput
	}
	npt, npo := panelCounts(lambda)
	p := panelOrder

	xi := chebyshevNodes(p)
	wi := chebyshevBarycentricWeights(p)

	tEdge := make([]float64, npt+1)
	for i := 1; i <= npt; i++ {
		tEdge[i] = math.Pow(0.5, float64(npt-i+1))
	}

	nt := 2 * npt * p
	tHalf := make([]float64, npt*p)
	for i := 0; i < npt; i++ {
		a, b := tEdge[i], tEdge[i+1]
		for j := 0; j < p; j++ {
			tHalf[i*p+j] = a + (b-a)*0.5*(xi[j]+1)
		}
	}

	omEdge := make([]float64, 2*npo+1)
	for j := 0; j < npo; j++ {
		v := lambda * math.Pow(0.5, float64(npo-j-1))
		omEdge[npo+1+j] = v
		omEdge[npo-1-j] = -v
	}

	no := 2 * npo * p
	om := make([]float64, no)
	for i := 0; i < 2*npo; i++ {
		a, b := omEdge[i], omEdge[i+1]
		for j := 0; j < p; j++ {
			om[i*p+j] = a + (b-a)*0.5*(xi[j]+1)
		}
	}

	// Sample K on the first-half τ panels only; fill the second half by
	// K(1−τ,−ω)=K(τ,ω) to preserve precision (spec.md §4.B).
	kmat := mat.NewDense(nt, no, nil)
	for i, t := range tHalf {
		for j, w := range om {
			kmat.Set(i, j, Kabs(t, w))
		}
	}
	for i := 0; i < nt/2; i++ {
		for j := 0; j < no; j++ {
			kmat.Set(nt-1-i, no-1-j, kmat.At(i, j))
		}
	}

	fg := &FineGrid{
		P: p, Npt: npt, Npo: npo,
		T: mirrorTau(tHalf), Om: om, Kmat: kmat,
		tPanelEdge: tEdge, omPanelEdge: omEdge,
	}
	fg.Err = fg.selfCheck(xi, wi)
	return fg, nil
}

// mirrorTau extends the first-half τ nodes to the full [0,1] grid via
// t_full[nt-1-i] = 1 - t_half[i].
func mirrorTau(tHalf []float64) []float64 {
	n := len(tHalf)
	full := make([]float64, 2*n)
	copy(full, tHalf)
	for i := 0; i < n; i++ {
		full[2*n-1-i] = 1 - tHalf[i]
	}
	return full
}

// chebyshevNodes returns the N Chebyshev points of the first kind on
// [−1,1], x_j=cos(π(2j+1)/(2N)), in ascending order.
func chebyshevNodes(n int) []float64 {
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[n-1-j] = math.Cos(math.Pi * float64(2*j+1) / float64(2*n))
	}
	return x
}

// chebyshevBarycentricWeights returns the first-kind barycentric
// weights w_j=(−1)^j sin(π(2j+1)/(2N)) matching chebyshevNodes's
// ascending order (so the sign pattern is reversed along with the
// nodes).
func chebyshevBarycentricWeights(n int) []float64 {
	w := make([]float64, n)
	for j := 0; j < n; j++ {
		sign := 1.0
		if j%2 == 1 {
			sign = -1.0
		}
		w[n-1-j] = sign * math.Sin(math.Pi*float64(2*j+1)/float64(2*n))
	}
	return w
}

// barycentricInterpolate evaluates the degree-(len(xi)-1) barycentric
// Chebyshev interpolant through (xi[k], fi[k]) at each point of x.
func barycentricInterpolate(x, xi, fi, wi []float64) []float64 {
	out := make([]float64, len(x))
	for m, xm := range x {
		exact := -1
		for k, xk := range xi {
			if xk == xm {
				exact = k
				break
			}
		}
		if exact >= 0 {
			out[m] = fi[exact]
			continue
		}
		var num, den float64
		for k := range xi {
			q := wi[k] / (xm - xi[k])
			num += q * fi[k]
			den += q
		}
		out[m] = num / den
	}
	return out
}

// selfCheck evaluates K at 2p Chebyshev nodes on every panel and
// compares against the barycentric interpolant built from the p stored
// values, accumulating the relative L∞ error separately in τ and in ω
// (spec.md §4.B). Grounded on kernel_discretization's error-estimate
// loop.
func (fg *FineGrid) selfCheck(xi, wi []float64) [2]float64 {
	p := fg.P
	x2 := chebyshevNodes(2 * p)

	var errTau float64
	for widx := 0; widx < len(fg.Om); widx++ {
		w := fg.Om[widx]
		for tp := 0; tp < fg.Npt; tp++ {
			a, b := fg.tPanelEdge[tp], fg.tPanelEdge[tp+1]
			x := scalePanel(x2, a, b)
			exact := make([]float64, len(x))
			for i, t := range x {
				exact[i] = Kabs(t, w)
			}
			stored := make([]float64, p)
			for k := 0; k < p; k++ {
				stored[k] = fg.Kmat.At(tp*p+k, widx)
			}
			interp := barycentricInterpolate(x2, xi, stored, wi)
			errTau = math.Max(errTau, linfDiff(exact, interp))
		}
	}

	var errOm float64
	for tidx := 0; tidx < len(fg.T)/2; tidx++ {
		t := fg.T[tidx]
		for wp := 0; wp < 2*fg.Npo; wp++ {
			a, b := fg.omPanelEdge[wp], fg.omPanelEdge[wp+1]
			x := scalePanel(x2, a, b)
			exact := make([]float64, len(x))
			for i, w := range x {
				exact[i] = Kabs(t, w)
			}
			stored := make([]float64, p)
			for k := 0; k < p; k++ {
				stored[k] = fg.Kmat.At(tidx, wp*p+k)
			}
			interp := barycentricInterpolate(x2, xi, stored, wi)
			errOm = math.Max(errOm, linfDiff(exact, interp))
		}
	}

	return [2]float64{errTau, errOm}
}

func scalePanel(x2 []float64, a, b float64) []float64 {
	out := make([]float64, len(x2))
	for i, v := range x2 {
		out[i] = a + (b-a)*0.5*(v+1)
	}
	return out
}

// linfDiff returns the L∞ distance between a and b, via gonum/floats'
// generalized Lp distance with p=+∞.
func linfDiff(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}
