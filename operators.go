// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Wentzell/libdlr/internal/quad"
)

// Component E: the convolution tensor φ, the inner-product weight
// matrix, and point evaluation in imaginary time and Matsubara frequency
// (spec.md §4.E), grounded on original_source/pydlr/pydlr.py's
// dlrBase.convmat/innerproductweight/eval_dlr_it.
//
// K(τ,ω)=e^{−τω}/(1+e^{−ω}) identically for every ω (Kabs/Krel's branch
// split on sign(ω) only changes which exponential is formed to avoid
// overflow; it is not a different formula). The closed forms below lean
// on that identity.

// Operators holds the convolution tensor and inner-product weight matrix
// derived from a DLRBasis, TransformPack and statistics (spec.md §4.E).
// Both are dense r×r×r (Phi) and r×r (Ipmat) quantities that only depend
// on (basis, β, ξ), so, like TransformPack, they are cached once per
// problem rather than recomputed per Dyson iteration.
type Operators struct {
	R int

	// Phi is the flattened r×r×r convolution tensor, Phi[(j*R+k)*R+l] =
	// φ_jkl of spec.md §4.E: contracting it against the DLR coefficients
	// c of g along l yields the r×r matrix A with A_jk=Σ_l φ_jkl c_l,
	// whose action on the DLR coefficients of f gives the values of
	// (g∗f) at dlrit (spec.md §4.E). ConvMatFromITValues is the usual
	// entry point; Phi is exposed for callers that already hold DLR
	// coefficients on both sides.
	Phi []float64

	// Ipmat is the r×r inner-product weight matrix acting on τ-grid
	// VALUES: for g, f given by their dlrit values, ⟨g,f⟩_β = gᵗ·Ipmat·f
	// approximates ∫₀^β g(τ)f(τ)dτ = β∫₀^1 g(βτ)f(βτ)dτ (spec.md §4.E).
	Ipmat *mat.Dense
}

// BuildOperators constructs the convolution tensor and inner-product
// weight for basis at inverse temperature β and statistics stat
// (spec.md §4.E), using the double-precision k≠l divided difference.
// For extreme Λ where that divided difference loses precision, use
// BuildOperatorsQuad instead.
func BuildOperators(basis *DLRBasis, tp *TransformPack, beta float64, stat Statistics) (*Operators, error) {
	return buildOperators(basis, tp, beta, stat, false)
}

// BuildOperatorsQuad is BuildOperators with the convolution tensor's k≠l
// entries evaluated in quadruple precision before down-casting (spec.md
// §9), recommended when Λ is large enough that the plain (ω_k−ω_l)
// divided difference of BuildOperators loses meaningful digits to
// cancellation. The resulting Phi has the same coefficient indexing as
// BuildOperators' and is consumed the same way; no values-to-values
// tensor is built.
func BuildOperatorsQuad(basis *DLRBasis, tp *TransformPack, beta float64, stat Statistics) (*Operators, error) {
	return buildOperators(basis, tp, beta, stat, true)
}

func buildOperators(basis *DLRBasis, tp *TransformPack, beta float64, stat Statistics, useQuad bool) (*Operators, error) {
	if beta <= 0 || !stat.valid() {
		return nil, ErrInvalidInput
	}
	r := basis.R
	var phi []float64
	if useQuad {
		phi = convolutionTensorQuad(basis, beta, stat)
	} else {
		phi = convolutionTensor(basis, beta, stat)
	}
	ipmat, err := innerProductWeight(tp, basis.Dlrrf, beta)
	if err != nil {
		return nil, err
	}
	return &Operators{R: r, Phi: phi, Ipmat: ipmat}, nil
}

func phiIndex(r, j, k, l int) int { return (j*r+k)*r + l }

// convolutionTensor evaluates φ_jkl at double precision (spec.md §4.E):
//
//	k≠l: φ_jkl = β·[Krel(τ_j,ω_l)e(ω_k) − Krel(τ_j,ω_k)e(ω_l)]/(ω_k−ω_l)
//	k=l, τ_j>0: φ_jjl = β(τ_j e(ω_k) + ξKabs(1,ω_k))·Krel(τ_j,ω_k)
//	k=l, τ_j<0: φ_jjl = β(τ_j e(ω_k) + ξKabs(0,ω_k))·Krel(τ_j,ω_k)
func convolutionTensor(basis *DLRBasis, beta float64, stat Statistics) []float64 {
	r := basis.R
	xi := stat.xi()
	e := make([]float64, r)
	for k, om := range basis.Dlrrf {
		e[k] = Expfun(om, stat)
	}
	phi := make([]float64, r*r*r)
	for j, tj := range basis.Dlrit {
		for k, omk := range basis.Dlrrf {
			for l, oml := range basis.Dlrrf {
				var v float64
				if k == l {
					var kabsEdge float64
					if tj > 0 {
						kabsEdge = Kabs(1, omk)
					} else {
						kabsEdge = Kabs(0, omk)
					}
					v = beta * (tj*e[k] + xi*kabsEdge) * Krel(tj, omk)
				} else {
					num := Krel(tj, oml)*e[k] - Krel(tj, omk)*e[l]
					v = beta * num / (omk - oml)
				}
				phi[phiIndex(r, j, k, l)] = v
			}
		}
	}
	return phi
}

// convolutionTensorQuad evaluates the k≠l entries of φ_jkl in quadruple
// precision, down-casting only the final result, and leaves the k=l
// diagonal (which has no (ω_k−ω_l) cancellation to protect against)
// unchanged from convolutionTensor's double-precision formula.
func convolutionTensorQuad(basis *DLRBasis, beta float64, stat Statistics) []float64 {
	r := basis.R
	xi := stat.xi()
	e := make([]float64, r)
	for k, om := range basis.Dlrrf {
		e[k] = Expfun(om, stat)
	}
	betaQ := quad.New(beta)
	phi := make([]float64, r*r*r)
	for j, tj := range basis.Dlrit {
		for k, omk := range basis.Dlrrf {
			for l, oml := range basis.Dlrrf {
				var v float64
				if k == l {
					var kabsEdge float64
					if tj > 0 {
						kabsEdge = Kabs(1, omk)
					} else {
						kabsEdge = Kabs(0, omk)
					}
					v = beta * (tj*e[k] + xi*kabsEdge) * Krel(tj, omk)
				} else {
					// φ_jkl = β·Krel(τ_j,·) divided-difference in ω,
					// weighted by e(ω): evaluate the Krel(τ_j,ω_l)e(ω_k)
					// and Krel(τ_j,ω_k)e(ω_l) terms and their difference
					// quotient at extended precision.
					krelL := KrelQuad(tj, oml)
					krelK := KrelQuad(tj, omk)
					eK, eL := ExpfunQuad(omk, stat), ExpfunQuad(oml, stat)
					num := quad.Sub(quad.Mul(krelL, eK), quad.Mul(krelK, eL))
					den := quad.New(omk - oml)
					q := quad.Mul(betaQ, quad.Div(num, den))
					v = quad.ToFloat64(q)
				}
				phi[phiIndex(r, j, k, l)] = v
			}
		}
	}
	return phi
}

// innerProductWeight computes Ipmat, spec.md §4.E's r×r matrix acting on
// τ-grid VALUES such that gᵗ·Ipmat·f approximates β∫₀^1 g(βτ)f(βτ)dτ.
//
// The coefficient-basis inner product matrix W_jk=∫₀^1 K(τ,ω_j)K(τ,ω_k)dτ
// has the closed form
//
//	W_jk = F(ω_j+ω_k) / [(1+e^{−ω_j})(1+e^{−ω_k})],  F(s)=(1−e^{−s})/s
//
// using K(τ,ω)=e^{−τω}/(1+e^{−ω}) uniformly in ω (see file doc comment).
// F and the two denominator factors are evaluated in quadruple precision
// — not for extra cancellation-stability alone, but because float64
// simply overflows computing e^{∓ω} once |ω_j+ω_k| exceeds about 700,
// routine at the Λ~10^4 cutoffs this basis targets; big.Float's
// unbounded exponent range has no such ceiling. The per-entry quad.Float
// result is then down-cast, and the whole matrix is right- and
// left-composed with it2cf⁻¹ (via TransformPack.composeRightInverse,
// transposed on both sides) to convert the coefficient-basis inner
// product into one acting on τ-grid values, and scaled by β.
func innerProductWeight(tp *TransformPack, dlrrf []float64, beta float64) (*mat.Dense, error) {
	r := len(dlrrf)
	raw := mat.NewDense(r, r, nil)
	for j, oj := range dlrrf {
		for k, ok := range dlrrf {
			raw.Set(j, k, quad.ToFloat64(ipWeightEntryQuad(oj, ok)))
		}
	}
	// ipmat = it2cf⁻ᵗ·raw·it2cf⁻¹. composeRightInverse only right-
	// multiplies by it2cf⁻¹, so the left multiplication is done by
	// transposing twice: it2cf⁻ᵗ·raw = (rawᵗ·it2cf⁻¹)ᵗ.
	rawT := materializeTranspose(raw)
	step1, err := tp.composeRightInverse(rawT)
	if err != nil {
		return nil, err
	}
	left := materializeTranspose(step1)
	ipmat, err := tp.composeRightInverse(left)
	if err != nil {
		return nil, err
	}
	ipmat.Scale(beta, ipmat)
	return ipmat, nil
}

// materializeTranspose copies m's transpose into a fresh *mat.Dense;
// m.T() alone returns a view type composeRightInverse cannot accept.
func materializeTranspose(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(c, r, nil)
	out.CloneFrom(m.T())
	return out
}

// ipWeightEntryQuad evaluates W_jk=F(ω_j+ω_k)/[(1+e^{−ω_j})(1+e^{−ω_k})]
// at the package's extended precision.
func ipWeightEntryQuad(oj, ok float64) *quad.Float {
	s := quad.New(oj + ok)
	fs := expDivQuad(s)
	ej := quad.Add(quad.New(1), quad.Exp(quad.Neg(quad.New(oj))))
	ek := quad.Add(quad.New(1), quad.Exp(quad.Neg(quad.New(ok))))
	return quad.Div(fs, quad.Mul(ej, ek))
}

// expDivQuad evaluates F(s)=(1−e^{−s})/s, F(0)=1, stable for both signs
// of s via Expm1.
func expDivQuad(s *quad.Float) *quad.Float {
	if s.Sign() == 0 {
		return quad.New(1)
	}
	if s.Sign() > 0 {
		// F(s) = -expm1(-s)/s
		return quad.Div(quad.Neg(quad.Expm1(quad.Neg(s))), s)
	}
	// s<0: let u=-s>0; F(s)=(1-e^{u})/(-u)=expm1(u)/u.
	u := quad.Neg(s)
	return quad.Div(quad.Expm1(u), u)
}

// KrelQuad evaluates Krel at the package's extended working precision,
// used by convolutionTensorQuad's k≠l entries. Mirrors Krel's four
// branches exactly.
func KrelQuad(t, omega float64) *quad.Float {
	tq, wq := quad.New(t), quad.New(omega)
	if t >= 0 {
		if omega > 0 {
			num := quad.Exp(quad.Neg(quad.Mul(tq, wq)))
			den := quad.Add(quad.New(1), quad.Exp(quad.Neg(wq)))
			return quad.Div(num, den)
		}
		num := quad.Exp(quad.Mul(quad.Sub(quad.New(1), tq), wq))
		den := quad.Add(quad.New(1), quad.Exp(wq))
		return quad.Div(num, den)
	}
	if omega > 0 {
		num := quad.Exp(quad.Neg(quad.Mul(quad.Add(quad.New(1), tq), wq)))
		den := quad.Add(quad.New(1), quad.Exp(quad.Neg(wq)))
		return quad.Div(num, den)
	}
	num := quad.Exp(quad.Neg(quad.Mul(tq, wq)))
	den := quad.Add(quad.New(1), quad.Exp(wq))
	return quad.Div(num, den)
}

// EvalIT evaluates the DLR expansion with coefficients c at an arbitrary
// relative-format imaginary time t (spec.md §4.E's eval_dlr_it), using
// Krel directly rather than the dlrit grid.
func EvalIT(dlrrf []float64, coeffs []float64, t float64) float64 {
	var sum float64
	for j, om := range dlrrf {
		sum += Krel(t, om) * coeffs[j]
	}
	return sum
}

// EvalMF evaluates the DLR expansion with coefficients c at Matsubara
// index n, inverse temperature β and statistics stat (spec.md §4.E's
// eval_dlr_mf).
func EvalMF(dlrrf []float64, coeffs []float64, n int, beta float64, stat Statistics) complex128 {
	var sum complex128
	for j, om := range dlrrf {
		sum += Kmf(n, om, beta, stat) * complex(coeffs[j], 0)
	}
	return sum
}

// ConvMatFromITValues builds the r×r matrix A such that A·f_values gives
// the values at dlrit of (g∗f), given g's τ-grid VALUES (spec.md §4.E):
//
//	gc = it2cf⁻¹·g               (values → coefficients)
//	gmat[j,k] = Σ_l φ_jkl gc_l    (contract Phi against gc)
//	A = gmat·it2cf⁻¹              (convert the f side from coefficients
//	                                to values, via composeRightInverse)
func ConvMatFromITValues(ops *Operators, tp *TransformPack, gValues []float64) (*mat.Dense, error) {
	gc, err := tp.CoeffsFromITValues(gValues)
	if err != nil {
		return nil, err
	}
	r := ops.R
	gmat := mat.NewDense(r, r, nil)
	for j := 0; j < r; j++ {
		for k := 0; k < r; k++ {
			var sum float64
			for l := 0; l < r; l++ {
				sum += ops.Phi[phiIndex(r, j, k, l)] * gc[l]
			}
			gmat.Set(j, k, sum)
		}
	}
	return tp.composeRightInverse(gmat)
}
