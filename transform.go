// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Wentzell/libdlr/internal/clu"
)

// Component D: the dense r×r matrices mapping between DLR-coefficient,
// imaginary-time-value, and Matsubara-frequency-value representations,
// plus the τ↔β−τ reflection matrix (spec.md §4.D), grounded on
// original_source/pydlr/pydlr.py's dlrBase.__init__ (dlrit2cf/it2cfpiv,
// dlrmf2cf/mf2cfpiv).
//
// Cf2it/It2cf do not depend on β: the DLR coefficients are defined in
// the same dimensionless τ∈[0,1], ω=dlrrf units the basis itself lives
// in (physical τ=β·τ_rel, physical ω=dlrrf/β); β enters only through the
// Matsubara frequencies ν_n=(2n+1)π/β (fermions) or 2nπ/β (bosons) used
// by cf2mf. BuildTransforms still takes β, matching spec.md §6's
// transforms(basis, β) signature, for symmetry with
// BuildMatsubaraTransforms and in case a future kernel variant needs it.

// TransformPack holds the real (imaginary-time-domain) transforms
// derived from a DLRBasis.
type TransformPack struct {
	R int

	// Cf2it is the coefficients→τ-values map, Cf2it[i,j]=Krel(dlrit_i,
	// dlrrf_j).
	Cf2it *mat.Dense
	// it2cf is the LU factorization of Cf2it, used for every
	// values→coefficients solve.
	it2cf *mat.LU

	// It2itr is the τ↦1−τ reflection operator acting on τ-grid values:
	// (It2itr·g)_i ≈ g evaluated at 1−dlrit_i.
	It2itr *mat.Dense
}

// BuildTransforms constructs the real imaginary-time transforms for
// basis at inverse temperature β (spec.md §4.D).
func BuildTransforms(basis *DLRBasis, beta float64) (*TransformPack, error) {
	if beta <= 0 {
		return nil, ErrInvalidInput
	}
	r := basis.R
	cf2it := mat.NewDense(r, r, nil)
	for i, ti := range basis.Dlrit {
		for j, om := range basis.Dlrrf {
			cf2it.Set(i, j, Krel(ti, om))
		}
	}

	var lu mat.LU
	lu.Factorize(cf2it)
	if lu.Det() == 0 {
		return nil, ErrSingularSystem
	}

	refl := mat.NewDense(r, r, nil)
	for i, ti := range basis.Dlrit {
		for j, om := range basis.Dlrrf {
			refl.Set(i, j, Krel(-ti, om))
		}
	}
	// it2itr = refl · cf2it⁻¹: solve cf2itᵀ·Y = reflᵀ, then
	// it2itr = Yᵀ (spec.md §4.D's "via it2cf solves on the
	// transpose").
	var y mat.Dense
	if err := lu.SolveTo(&y, true, refl.T()); err != nil {
		return nil, ErrSingularSystem
	}
	it2itr := mat.NewDense(r, r, nil)
	it2itr.CloneFrom(y.T())

	return &TransformPack{R: r, Cf2it: cf2it, it2cf: &lu, It2itr: it2itr}, nil
}

// CoeffsFromITValues solves it2cf·c = values for the DLR coefficients c
// of a function given by its values on the dlrit grid.
func (tp *TransformPack) CoeffsFromITValues(values []float64) ([]float64, error) {
	b := mat.NewDense(tp.R, 1, append([]float64(nil), values...))
	var x mat.Dense
	if err := tp.it2cf.SolveTo(&x, false, b); err != nil {
		return nil, ErrSingularSystem
	}
	return denseColumn(&x), nil
}

// ITValuesFromCoeffs evaluates Cf2it·c, the τ-grid values of the DLR
// function with coefficients c.
func (tp *TransformPack) ITValuesFromCoeffs(coeffs []float64) []float64 {
	c := mat.NewDense(tp.R, 1, append([]float64(nil), coeffs...))
	var v mat.Dense
	v.Mul(tp.Cf2it, c)
	return denseColumn(&v)
}

// Reflect applies the τ↦1−τ reflection to τ-grid values.
func (tp *TransformPack) Reflect(values []float64) []float64 {
	v := mat.NewDense(tp.R, 1, append([]float64(nil), values...))
	var out mat.Dense
	out.Mul(tp.It2itr, v)
	return denseColumn(&out)
}

// composeRightInverse returns m·it2cf⁻¹, computed as (it2cf⁻ᵀ·mᵀ)ᵀ via a
// single transpose solve against the cached LU factorization. This is the
// shared "convert the right-hand operand from coefficients to values"
// step behind ConvMatFromITValues and innerProductWeight in operators.go;
// BuildTransforms performs the same solve inline for It2itr (spec.md §4.D).
func (tp *TransformPack) composeRightInverse(m *mat.Dense) (*mat.Dense, error) {
	var y mat.Dense
	if err := tp.it2cf.SolveTo(&y, true, m.T()); err != nil {
		return nil, ErrSingularSystem
	}
	out := mat.NewDense(tp.R, tp.R, nil)
	out.CloneFrom(y.T())
	return out, nil
}

func denseColumn(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = m.At(i, 0)
	}
	return out
}

// MatsubaraPack holds the complex Matsubara-domain transform derived
// from a DLRBasis at a given β, statistics and nmax (spec.md §4.C step
// 3, §4.D's cf2mf/mf2cf).
type MatsubaraPack struct {
	R    int
	Dlrmf []int // selected signed Matsubara indices

	// Cf2mf is the coefficients→Matsubara-values map,
	// Cf2mf[i,j]=Kmf(dlrmf_i, dlrrf_j, β, stat).
	Cf2mf *cmat
	mf2cf *clu.LU
}

// cmat is a small row-major complex128 dense matrix, used instead of
// gonum.org/v1/gonum/mat.CDense because this module also needs an LU
// factorization of it (internal/clu), which CDense does not provide.
type cmat struct {
	r, c int
	data []complex128
}

func newCmat(r, c int) *cmat { return &cmat{r: r, c: c, data: make([]complex128, r*c)} }
func (m *cmat) at(i, j int) complex128     { return m.data[i*m.c+j] }
func (m *cmat) set(i, j int, v complex128) { m.data[i*m.c+j] = v }

// BuildMatsubaraTransforms selects the Matsubara nodes (spec.md §4.C
// step 3) and constructs the complex transform between DLR coefficients
// and Matsubara-frequency values (spec.md §4.D).
func BuildMatsubaraTransforms(basis *DLRBasis, beta float64, stat Statistics, nmax int) (*MatsubaraPack, error) {
	dlrmf, err := MatsubaraBasis(basis, beta, stat, nmax)
	if err != nil {
		return nil, err
	}
	r := basis.R
	cf2mf := newCmat(r, r)
	for i, n := range dlrmf {
		for j, om := range basis.Dlrrf {
			cf2mf.set(i, j, Kmf(n, om, beta, stat))
		}
	}
	lu, err := clu.Factorize(cf2mf.data, r)
	if err != nil {
		return nil, ErrSingularSystem
	}
	return &MatsubaraPack{R: r, Dlrmf: dlrmf, Cf2mf: cf2mf, mf2cf: lu}, nil
}

// CoeffsFromMFValues solves mf2cf·c = values for the DLR coefficients c
// of a function given by its values on the dlrmf grid.
func (mp *MatsubaraPack) CoeffsFromMFValues(values []complex128) []complex128 {
	b := append([]complex128(nil), values...)
	mp.mf2cf.Solve(b)
	return b
}

// MFValuesFromCoeffs evaluates Cf2mf·c, the Matsubara-grid values of the
// DLR function with coefficients c.
func (mp *MatsubaraPack) MFValuesFromCoeffs(coeffs []complex128) []complex128 {
	out := make([]complex128, mp.R)
	for i := 0; i < mp.R; i++ {
		var sum complex128
		for j := 0; j < mp.R; j++ {
			sum += mp.Cf2mf.at(i, j) * coeffs[j]
		}
		out[i] = sum
	}
	return out
}
