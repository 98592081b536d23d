// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"math"

	"github.com/Wentzell/libdlr/internal/quad"
)

// Component A: the Lehmann kernel, evaluated in imaginary time (absolute
// and relative format), Matsubara frequency, and quadruple precision,
// plus the auxiliary function Expfun. Grounded on
// original_source/pydlr/kernel.py's kernel and fermi_function, which
// split on the sign of ω to avoid overflow in e^{±ω}.
//
// The kernel used to build the fine grid and select the DLR basis itself
// is always the fermionic-form kernel below, independent of the target
// Green's function's statistics: the support points are a universal,
// statistics-agnostic low-rank basis for the Lehmann kernel (this is
// also how pydlr.py's kernel_discretization/dlr_decomp work — self.xi is
// only ever consulted by Convolution-tensor and inner-product
// construction, never by basis construction). ξ enters this package's
// API only through Kmf's Matsubara-frequency convention, Expfun, and the
// operator-level formulas of operators.go.

// Kabs evaluates the absolute-format imaginary-time Lehmann kernel
// K(τ, ω) for τ∈[0,1], choosing whichever of e^{−τω}, e^{−(1−τ)ω} avoids
// overflow.
//
// Kabs panics if τ is outside [0,1]; callers with a relative-format τ
// should use Krel instead.
func Kabs(tau, omega float64) float64 {
	if tau < 0 || tau > 1 {
		panic("dlr: Kabs requires tau in [0,1]; use Krel for relative format")
	}
	if omega > 0 {
		return math.Exp(-tau*omega) / (1 + math.Exp(-omega))
	}
	return math.Exp((1-tau)*omega) / (1 + math.Exp(omega))
}

// Krel evaluates the imaginary-time Lehmann kernel in relative format
// (spec.md §4.A): for t≥0 it returns K(t,ω); for t<0, t encodes the
// absolute point 1+t (i.e. a τ near 1), evaluated via the symmetry
// K(1+t, ω) = K(−t, −ω) as
//
//	K_rel(t, ω) = e^{−tω}/(1+e^{ω})
//
// which preserves relative precision for τ near 1 by never forming
// 1−τ_abs as a subtraction.
func Krel(t, omega float64) float64 {
	if t >= 0 {
		if omega > 0 {
			return math.Exp(-t*omega) / (1 + math.Exp(-omega))
		}
		return math.Exp((1-t)*omega) / (1 + math.Exp(omega))
	}
	// t<0 encodes τ_abs=1+t∈(1/2,1): K_rel(t,ω)=e^{−tω}/(1+e^{ω}),
	// rewritten per branch to avoid forming e^{−tω} when it could
	// overflow.
	if omega > 0 {
		return math.Exp(-(1+t)*omega) / (1 + math.Exp(-omega))
	}
	return math.Exp(-t*omega) / (1 + math.Exp(omega))
}

// Kmf evaluates the Matsubara-frequency Lehmann kernel
// K_mf(n, ω) = 1/(iν_n − ω) at the signed integer index n, with
// ν_n=(2n+1)π/β for fermions and ν_n=2nπ/β for bosons (spec.md §4.A,
// §6).
func Kmf(n int, omega, beta float64, stat Statistics) complex128 {
	nu := matsubaraFrequency(n, beta, stat)
	return 1 / complex(-omega, nu)
}

// matsubaraFrequency returns ν_n for index n at inverse temperature β
// under the given statistics.
func matsubaraFrequency(n int, beta float64, stat Statistics) float64 {
	if stat == Bosonic {
		return 2 * float64(n) * math.Pi / beta
	}
	return (2*float64(n) + 1) * math.Pi / beta
}

// Expfun evaluates the auxiliary function
//
//	expfun(ω, ξ) = (1 − ξ e^{−ω})/(1 + e^{−ω})
//
// branch-symmetrically in ω to avoid overflow at large |ω| (spec.md
// §4.A). For ξ=−1 (fermions) it is identically 1; for ξ=+1 (bosons) it
// is tanh(ω/2), with values in [−1,1]. It appears in the convolution
// tensor (operators.go).
func Expfun(omega float64, stat Statistics) float64 {
	xi := stat.xi()
	if omega >= 0 {
		e := math.Exp(-omega)
		return (1 - xi*e) / (1 + e)
	}
	e := math.Exp(omega)
	// Rewrite with e^{ω} in numerator/denominator to avoid overflow for
	// large negative ω: (1−ξe^{−ω})/(1+e^{−ω}) = (e^{ω}−ξ)/(e^{ω}+1).
	return (e - xi) / (e + 1)
}

// KabsQuad, ExpfunQuad and KrelQuad (operators.go) are
// quadruple-precision analogues of Kabs, Expfun and Krel. ExpfunQuad and
// KrelQuad feed the quadruple-precision convolution tensor of
// BuildOperatorsQuad (spec.md §9), where the divided differences of these
// kernels lose precision to cancellation at double precision for large Λ;
// KabsQuad is not called by the library itself.

// KabsQuad evaluates Kabs at the package's extended working precision.
func KabsQuad(tau, omega float64) *quad.Float {
	t, w := quad.New(tau), quad.New(omega)
	if omega > 0 {
		num := quad.Exp(quad.Neg(quad.Mul(t, w)))
		den := quad.Add(quad.New(1), quad.Exp(quad.Neg(w)))
		return quad.Div(num, den)
	}
	oneMinusT := quad.Sub(quad.New(1), t)
	num := quad.Exp(quad.Mul(oneMinusT, w))
	den := quad.Add(quad.New(1), quad.Exp(w))
	return quad.Div(num, den)
}

// ExpfunQuad evaluates Expfun at the package's extended working
// precision, used by the quad convolution tensor's k≠l terms
// (operators.go).
func ExpfunQuad(omega float64, stat Statistics) *quad.Float {
	w := quad.New(omega)
	xi := quad.New(stat.xi())
	if omega >= 0 {
		e := quad.Exp(quad.Neg(w))
		num := quad.Sub(quad.New(1), quad.Mul(xi, e))
		den := quad.Add(quad.New(1), e)
		return quad.Div(num, den)
	}
	e := quad.Exp(w)
	num := quad.Sub(e, xi)
	den := quad.Add(e, quad.New(1))
	return quad.Div(num, den)
}
