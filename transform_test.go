// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"math"
	"math/rand/v2"
	"testing"
)

func testBasis(t *testing.T, lambda, eps float64) *DLRBasis {
	basis, err := Build(lambda, eps, 200)
	if err != nil {
		t.Fatalf("Build(%v,%v): %v", lambda, eps, err)
	}
	return basis
}

// TestInterpolationIdentity is spec.md §8 property 1: cf2it·(it2cf⁻¹·g) = g.
func TestInterpolationIdentity(t *testing.T) {
	basis := testBasis(t, 100, 1e-10)
	tp, err := BuildTransforms(basis, 1)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewPCG(1, 1))
	g := make([]float64, basis.R)
	for i := range g {
		g[i] = rnd.NormFloat64()
	}
	coeffs, err := tp.CoeffsFromITValues(g)
	if err != nil {
		t.Fatal(err)
	}
	roundtrip := tp.ITValuesFromCoeffs(coeffs)
	for i := range g {
		if d := math.Abs(roundtrip[i] - g[i]); d > 1e-8*math.Max(1, math.Abs(g[i])) {
			t.Errorf("roundtrip[%d] = %v, want %v", i, roundtrip[i], g[i])
		}
	}
}

// TestReflectionInvolution is spec.md §8 property 2: it2itr·it2itr = I.
func TestReflectionInvolution(t *testing.T) {
	basis := testBasis(t, 100, 1e-10)
	tp, err := BuildTransforms(basis, 1)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewPCG(2, 2))
	g := make([]float64, basis.R)
	for i := range g {
		g[i] = rnd.NormFloat64()
	}
	once := tp.Reflect(g)
	twice := tp.Reflect(once)
	for i := range g {
		if d := math.Abs(twice[i] - g[i]); d > 1e-6*math.Max(1, math.Abs(g[i])) {
			t.Errorf("twice-reflected[%d] = %v, want %v", i, twice[i], g[i])
		}
	}
}

// TestReflectionAgainstKernel is end-to-end scenario 3: build the DLR
// for Λ=100, ε=1e-12, check (it2itr·g)_j ≈ K_rel(−dlrit_j,0.3).
func TestReflectionAgainstKernel(t *testing.T) {
	basis := testBasis(t, 100, 1e-12)
	tp, err := BuildTransforms(basis, 1)
	if err != nil {
		t.Fatal(err)
	}
	g := make([]float64, basis.R)
	for j, tj := range basis.Dlrit {
		g[j] = Krel(tj, 0.3)
	}
	refl := tp.Reflect(g)
	for j, tj := range basis.Dlrit {
		want := Krel(-tj, 0.3)
		if d := math.Abs(refl[j] - want); d > 100*1e-12 {
			t.Errorf("reflect[%d] = %v, want %v (diff %v)", j, refl[j], want, d)
		}
	}
}

// TestMatsubaraRoundtrip is spec.md §8 property 3: cf2mf·(mf2cf⁻¹·(cf2mf·c))
// = cf2mf·c.
func TestMatsubaraRoundtrip(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	mp, err := BuildMatsubaraTransforms(basis, 5, Fermionic, basis.R+100)
	if err != nil {
		t.Fatal(err)
	}
	rnd := rand.New(rand.NewPCG(3, 3))
	c := make([]complex128, basis.R)
	for i := range c {
		c[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
	}
	mfValues := mp.MFValuesFromCoeffs(c)
	back := mp.CoeffsFromMFValues(mfValues)
	roundtrip := mp.MFValuesFromCoeffs(back)
	for i := range mfValues {
		d := cmplxAbs(roundtrip[i] - mfValues[i])
		if d > 1e-6*math.Max(1, cmplxAbs(mfValues[i])) {
			t.Errorf("roundtrip[%d] = %v, want %v", i, roundtrip[i], mfValues[i])
		}
	}
}

func cmplxAbs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}

func TestBuildTransformsInvalidBeta(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	if _, err := BuildTransforms(basis, 0); err != ErrInvalidInput {
		t.Errorf("BuildTransforms with beta=0 err = %v, want ErrInvalidInput", err)
	}
}

func TestBuildMatsubaraTransformsBosonic(t *testing.T) {
	basis := testBasis(t, 50, 1e-10)
	mp, err := BuildMatsubaraTransforms(basis, 5, Bosonic, basis.R+100)
	if err != nil {
		t.Fatal(err)
	}
	if mp.R != basis.R {
		t.Errorf("mp.R = %d, want %d", mp.R, basis.R)
	}
}
