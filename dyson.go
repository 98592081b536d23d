// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Component F: the weighted fixed-point Dyson solver, in both the
// imaginary-time and Matsubara-frequency domains, plus the free (Σ=0)
// Green's function and the one-shot linear solvers this package
// supplements beyond spec.md's nonlinear fixed point (spec.md §4.F),
// grounded on original_source/pydlr/pydlr.py's
// free_greens_function_tau/matsubara, dyson_matsubara and
// volterra_matsubara. pydlr.py's routines operate on a×a orbital
// matrices at each DLR/Matsubara node; this package is scalar
// throughout (a=1), so each is carried over as the scalar reduction of
// its orbital formula.

// SigmaFunc is the caller-supplied self-energy functional: given the
// current τ-grid values of G, it returns the τ-grid values of Σ[G].
type SigmaFunc func(g []float64) []float64

// DysonState is the mutable state of a weighted fixed-point Dyson
// iteration (spec.md §3's entity of the same name): the current
// τ-grid Green's function, the fixed right-hand side g0, and the loop's
// bookkeeping.
type DysonState struct {
	R         int
	G         []float64
	G0        []float64
	Iter      int
	Converged bool
	W         float64
	Fptol     float64
	Maxit     int
}

func newDysonState(g0 []float64, w, fptol float64, maxit int) *DysonState {
	return &DysonState{
		R: len(g0),
		G: append([]float64(nil), g0...), G0: append([]float64(nil), g0...),
		W: w, Fptol: fptol, Maxit: maxit,
	}
}

// DysonIT runs the τ-domain weighted fixed-point Dyson iteration
// (spec.md §4.F's dyson_it): builds G₀mat once from g0, then at each
// step evaluates Σ via sigma, builds Σmat, and LU-solves
// (I−G₀mat·Σmat)·g_new=g0.
//
// cancel, if non-nil, is checked before each iteration; a true return
// ends the loop early with ErrNotConverged and the state as of the last
// completed iteration (spec.md §5's cooperative cancellation).
func DysonIT(tp *TransformPack, ops *Operators, g0 []float64, sigma SigmaFunc, w, fptol float64, maxit int, cancel func(iter int) bool) (*DysonState, error) {
	if w <= 0 || w > 1 || fptol <= 0 || maxit <= 0 {
		return nil, ErrInvalidInput
	}
	st := newDysonState(g0, w, fptol, maxit)
	g0mat, err := ConvMatFromITValues(ops, tp, g0)
	if err != nil {
		return nil, err
	}
	for st.Iter < maxit {
		if cancel != nil && cancel(st.Iter) {
			return st, ErrNotConverged
		}
		st.Iter++

		sig := sigma(st.G)
		sigmat, err := ConvMatFromITValues(ops, tp, sig)
		if err != nil {
			return nil, err
		}
		sysmat := identityMinusProduct(g0mat, sigmat)
		gNew, err := solveDenseVector(sysmat, g0)
		if err != nil {
			return nil, ErrSingularSystem
		}

		if maxAbsDiff(gNew, st.G) < fptol {
			st.G = gNew
			st.Converged = true
			return st, nil
		}
		st.G = weightedUpdate(gNew, st.G, w)
	}
	return st, ErrNotConverged
}

// DysonMF runs the Matsubara-domain weighted fixed-point Dyson iteration
// (spec.md §4.F's dyson_mf). The loop state is still τ-grid values (Σ is
// evaluated on the τ-grid, per the shared callable surface); each step
// converts Σ to Matsubara values, solves diagonally, and converts the
// solution back to τ-grid values.
//
// g0mf is g0 given directly as Matsubara-grid values; DysonMF derives
// the τ-grid initial guess from it via the Matsubara transform.
func DysonMF(tp *TransformPack, mp *MatsubaraPack, beta float64, sigma SigmaFunc, g0mf []complex128, w, fptol float64, maxit int, cancel func(iter int) bool) (*DysonState, error) {
	if w <= 0 || w > 1 || fptol <= 0 || maxit <= 0 || beta <= 0 {
		return nil, ErrInvalidInput
	}
	g0it := tp.ITValuesFromCoeffs(realPart(mp.CoeffsFromMFValues(g0mf)))
	st := newDysonState(g0it, w, fptol, maxit)

	beta2 := complex(beta*beta, 0)
	gMF := make([]complex128, mp.R)
	for st.Iter < maxit {
		if cancel != nil && cancel(st.Iter) {
			return st, ErrNotConverged
		}
		st.Iter++

		sig := sigma(st.G)
		sigCoeffs, err := tp.CoeffsFromITValues(sig)
		if err != nil {
			return nil, err
		}
		sigMF := mp.MFValuesFromCoeffs(toComplexVector(sigCoeffs))

		for i := range gMF {
			denom := 1 - beta2*g0mf[i]*sigMF[i]
			if denom == 0 {
				return nil, ErrSingularSystem
			}
			gMF[i] = g0mf[i] / denom
		}
		gNew := tp.ITValuesFromCoeffs(realPart(mp.CoeffsFromMFValues(gMF)))

		if maxAbsDiff(gNew, st.G) < fptol {
			st.G = gNew
			st.Converged = true
			return st, nil
		}
		st.G = weightedUpdate(gNew, st.G, w)
	}
	return st, ErrNotConverged
}

// FreeGreensFunctionTau returns the τ-grid values of the non-interacting
// (Σ=0) Green's function for a scalar level at energy h and inverse
// temperature β: g_j = −K_rel(dlrit_j, hβ) (scalar reduction of
// free_greens_function_tau, which diagonalizes an a×a Hamiltonian via
// mat.EigenSym and applies the kernel per eigenvalue; for a=1 there is
// nothing to diagonalize).
func FreeGreensFunctionTau(basis *DLRBasis, h, beta float64) []float64 {
	g := make([]float64, basis.R)
	for j, tj := range basis.Dlrit {
		g[j] = -Krel(tj, h*beta)
	}
	return g
}

// FreeGreensFunctionMatsubara returns the Matsubara-grid values of the
// non-interacting Green's function for a scalar level at energy h,
// g(iν_n)=1/(iν_n−h) (scalar reduction of free_greens_function_matsubara).
func FreeGreensFunctionMatsubara(dlrmf []int, h, beta float64, stat Statistics) []complex128 {
	g := make([]complex128, len(dlrmf))
	for i, n := range dlrmf {
		g[i] = Kmf(n, h, beta, stat)
	}
	return g
}

// DysonMatsubaraDirect evaluates the one-shot (no fixed point needed)
// Matsubara Green's function for a scalar level at energy h given a
// self-energy already sampled on the Matsubara grid,
// g(iν_n)=1/(iν_n−h−σ(iν_n)) (scalar reduction of dyson_matsubara).
func DysonMatsubaraDirect(dlrmf []int, h, beta float64, stat Statistics, sigmamf []complex128) []complex128 {
	g := make([]complex128, len(dlrmf))
	for i, n := range dlrmf {
		nu := matsubaraFrequency(n, beta, stat)
		g[i] = 1 / (complex(-h, nu) - sigmamf[i])
	}
	return g
}

// LinearDysonMF solves the Matsubara Dyson equation for a
// self-energy that does not depend on G — exact in one step, no fixed
// point needed — given g0 and σ both already sampled on the Matsubara
// grid: G(iν_n) = g0(iν_n)/(1−g0(iν_n)σ(iν_n)) (scalar reduction of
// volterra_matsubara's per-frequency A_q·G_q=g0_q solve; for scalar
// orbital dimension that matrix solve is this division).
func LinearDysonMF(g0mf, sigmamf []complex128) []complex128 {
	g := make([]complex128, len(g0mf))
	for i := range g0mf {
		g[i] = g0mf[i] / (1 - g0mf[i]*sigmamf[i])
	}
	return g
}

// identityMinusProduct returns I−a·b for square r×r a, b.
func identityMinusProduct(a, b *mat.Dense) *mat.Dense {
	r, _ := a.Dims()
	var ab mat.Dense
	ab.Mul(a, b)
	out := mat.NewDense(r, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			v := -ab.At(i, j)
			if i == j {
				v++
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// solveDenseVector LU-solves a·x=b for square a and vector b.
func solveDenseVector(a *mat.Dense, b []float64) ([]float64, error) {
	r, _ := a.Dims()
	var lu mat.LU
	lu.Factorize(a)
	if lu.Det() == 0 {
		return nil, ErrSingularSystem
	}
	bm := mat.NewDense(r, 1, append([]float64(nil), b...))
	var x mat.Dense
	if err := lu.SolveTo(&x, false, bm); err != nil {
		return nil, ErrSingularSystem
	}
	return denseColumn(&x), nil
}

func maxAbsDiff(a, b []float64) float64 {
	var m float64
	for i := range a {
		m = math.Max(m, math.Abs(a[i]-b[i]))
	}
	return m
}

func weightedUpdate(gNew, g []float64, w float64) []float64 {
	out := make([]float64, len(g))
	for i := range g {
		out[i] = w*gNew[i] + (1-w)*g[i]
	}
	return out
}

func realPart(c []complex128) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}

func toComplexVector(v []float64) []complex128 {
	out := make([]complex128, len(v))
	for i, x := range v {
		out[i] = complex(x, 0)
	}
	return out
}
