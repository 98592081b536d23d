// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"math"
	"testing"
)

// TestDysonITLinearMatchesDirectFormula checks the τ-domain weighted
// fixed-point solver against the one-shot linear solution for a
// self-energy that does not depend on G: Σ is a fixed constant-in-τ
// multiple of the free propagator, so the fixed point is exact on the
// first evaluation of the self-energy functional.
func TestDysonITLinearMatchesDirectFormula(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	beta := 2.0
	tp, err := BuildTransforms(basis, beta)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := BuildOperators(basis, tp, beta, Fermionic)
	if err != nil {
		t.Fatal(err)
	}
	g0 := FreeGreensFunctionTau(basis, 0.3, beta)

	const c = 0.05
	sigma := func(g []float64) []float64 {
		out := make([]float64, len(g))
		for i, v := range g0 {
			out[i] = c * v
		}
		return out
	}
	st, err := DysonIT(tp, ops, g0, sigma, 1.0, 1e-12, 200, nil)
	if err != nil {
		t.Fatalf("DysonIT: %v", err)
	}
	if !st.Converged {
		t.Fatal("DysonIT did not converge")
	}

	// Cross-check via the Matsubara-domain linear solver and a
	// τ-grid evaluation of its coefficients.
	mp, err := BuildMatsubaraTransforms(basis, 30, Fermionic, basis.R+150)
	if err != nil {
		t.Fatal(err)
	}
	g0mf := FreeGreensFunctionMatsubara(mp.Dlrmf, 0.3, beta, Fermionic)
	g0coeffs, err := tp.CoeffsFromITValues(g0)
	if err != nil {
		t.Fatal(err)
	}
	g0mfFromIT := mp.MFValuesFromCoeffs(toComplexVector(g0coeffs))
	sigmamf := make([]complex128, len(g0mf))
	for i, v := range g0mfFromIT {
		sigmamf[i] = c * v
	}
	gmfWant := LinearDysonMF(g0mf, sigmamf)

	stCoeffs, err := tp.CoeffsFromITValues(st.G)
	if err != nil {
		t.Fatal(err)
	}
	gmfGot := mp.MFValuesFromCoeffs(toComplexVector(stCoeffs))
	for i := range gmfGot {
		d := cmplxAbs(gmfGot[i] - gmfWant[i])
		if d > 1e-6*math.Max(1, cmplxAbs(gmfWant[i])) {
			t.Errorf("Matsubara node %d: DysonIT gives %v, LinearDysonMF gives %v", i, gmfGot[i], gmfWant[i])
		}
	}
}

// TestDysonMFMatchesDysonIT checks that the τ-domain and Matsubara-domain
// weighted fixed-point solvers agree for a self-energy that is linear in
// G (so both loops converge to the same linear-response fixed point).
func TestDysonMFMatchesDysonIT(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	beta := 2.0
	tp, err := BuildTransforms(basis, beta)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := BuildOperators(basis, tp, beta, Fermionic)
	if err != nil {
		t.Fatal(err)
	}
	mp, err := BuildMatsubaraTransforms(basis, 30, Fermionic, basis.R+150)
	if err != nil {
		t.Fatal(err)
	}

	g0 := FreeGreensFunctionTau(basis, 0.3, beta)
	g0coeffs, err := tp.CoeffsFromITValues(g0)
	if err != nil {
		t.Fatal(err)
	}
	g0mf := mp.MFValuesFromCoeffs(toComplexVector(g0coeffs))

	const c = 0.05
	sigmaIT := func(g []float64) []float64 {
		out := make([]float64, len(g))
		for i, v := range g {
			out[i] = c * v
		}
		return out
	}

	stIT, err := DysonIT(tp, ops, g0, sigmaIT, 1.0, 1e-12, 200, nil)
	if err != nil || !stIT.Converged {
		t.Fatalf("DysonIT: err=%v converged=%v", err, stIT != nil && stIT.Converged)
	}

	stMF, err := DysonMF(tp, mp, beta, sigmaIT, g0mf, 0.8, 1e-12, 400, nil)
	if err != nil || !stMF.Converged {
		t.Fatalf("DysonMF: err=%v converged=%v", err, stMF != nil && stMF.Converged)
	}

	for i := range stIT.G {
		d := math.Abs(stIT.G[i] - stMF.G[i])
		if d > 1e-6*math.Max(1, math.Abs(stIT.G[i])) {
			t.Errorf("dlrit[%d]: DysonIT=%v DysonMF=%v", i, stIT.G[i], stMF.G[i])
		}
	}
}

// TestDysonITSYKSelfConsistent runs the τ-domain solver with the SYK
// self-energy Σ(τ) = c²·G(τ)²·G(β−τ), checking only that the fixed
// point converges and satisfies the defining equation it was solved
// for: G = (I−G0·Σ[G])⁻¹·G0 on the τ grid.
func TestDysonITSYKSelfConsistent(t *testing.T) {
	basis := testBasis(t, 500, 1e-10)
	beta := 50.0
	mu := 0.1
	const c = 1.0
	tp, err := BuildTransforms(basis, beta)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := BuildOperators(basis, tp, beta, Fermionic)
	if err != nil {
		t.Fatal(err)
	}
	g0 := FreeGreensFunctionTau(basis, mu, beta)

	sykSigma := func(g []float64) []float64 {
		gr := tp.Reflect(g)
		out := make([]float64, len(g))
		for i := range g {
			out[i] = c * c * g[i] * g[i] * gr[i]
		}
		return out
	}

	st, err := DysonIT(tp, ops, g0, sykSigma, 0.5, 1e-10, 2000, nil)
	if err != nil {
		t.Fatalf("DysonIT: %v", err)
	}
	if !st.Converged {
		t.Fatal("SYK Dyson iteration did not converge")
	}

	g0mat, err := ConvMatFromITValues(ops, tp, g0)
	if err != nil {
		t.Fatal(err)
	}
	sig := sykSigma(st.G)
	sigmat, err := ConvMatFromITValues(ops, tp, sig)
	if err != nil {
		t.Fatal(err)
	}
	sysmat := identityMinusProduct(g0mat, sigmat)
	residual, err := solveDenseVector(sysmat, g0)
	if err != nil {
		t.Fatal(err)
	}
	for i := range st.G {
		d := math.Abs(residual[i] - st.G[i])
		if d > 1e-6*math.Max(1, math.Abs(st.G[i])) {
			t.Errorf("fixed-point residual at dlrit[%d]: %v vs %v", i, residual[i], st.G[i])
		}
	}
}

func TestDysonITInvalidInput(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	beta := 1.0
	tp, err := BuildTransforms(basis, beta)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := BuildOperators(basis, tp, beta, Fermionic)
	if err != nil {
		t.Fatal(err)
	}
	g0 := FreeGreensFunctionTau(basis, 0.1, beta)
	identitySigma := func(g []float64) []float64 { return g }
	cases := []struct{ w, fptol float64; maxit int }{
		{0, 1e-10, 10}, {1.5, 1e-10, 10}, {0.5, 0, 10}, {0.5, 1e-10, 0},
	}
	for _, c := range cases {
		if _, err := DysonIT(tp, ops, g0, identitySigma, c.w, c.fptol, c.maxit, nil); err != ErrInvalidInput {
			t.Errorf("DysonIT(w=%v,fptol=%v,maxit=%v) err = %v, want ErrInvalidInput", c.w, c.fptol, c.maxit, err)
		}
	}
}

func TestDysonITCancellation(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	beta := 1.0
	tp, err := BuildTransforms(basis, beta)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := BuildOperators(basis, tp, beta, Fermionic)
	if err != nil {
		t.Fatal(err)
	}
	g0 := FreeGreensFunctionTau(basis, 0.1, beta)
	sigma := func(g []float64) []float64 { return g }
	cancel := func(iter int) bool { return iter >= 2 }
	st, err := DysonIT(tp, ops, g0, sigma, 0.1, 1e-14, 1000, cancel)
	if err != ErrNotConverged {
		t.Errorf("DysonIT with early cancel err = %v, want ErrNotConverged", err)
	}
	if st == nil || st.Iter != 2 {
		t.Errorf("st.Iter = %v, want 2", st)
	}
}

func TestLinearDysonMFMatchesDirect(t *testing.T) {
	dlrmf := []int{0, 1, -1, 5, -5}
	beta, h := 3.0, 0.4
	g0 := FreeGreensFunctionMatsubara(dlrmf, h, beta, Fermionic)
	sigma := make([]complex128, len(g0))
	for i := range sigma {
		sigma[i] = complex(0.02, -0.01)
	}
	viaLinear := LinearDysonMF(g0, sigma)
	viaDirect := DysonMatsubaraDirect(dlrmf, h, beta, Fermionic, sigma)
	for i := range viaLinear {
		d := cmplxAbs(viaLinear[i] - viaDirect[i])
		if d > 1e-10*math.Max(1, cmplxAbs(viaDirect[i])) {
			t.Errorf("node %d: LinearDysonMF=%v DysonMatsubaraDirect=%v", i, viaLinear[i], viaDirect[i])
		}
	}
}
