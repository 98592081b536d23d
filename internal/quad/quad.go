// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package quad provides extended-precision scalar helpers used by the
// inner-product weight and the optional quadruple-precision convolution
// tensor variant (spec.md §4.E, §9), where ordinary float64 arithmetic
// loses precision to cancellation in (ω_k − ω_l) divided differences at
// large Λ.
//
// This is grounded on predrag3141-PSLQ/bignumber.go and bigmatrix.go,
// the only arbitrary-precision numerical code in this module's
// reference pack, but uses math/big.Float directly rather than PSLQ's
// own BigNumber type: PSLQ's type conflates exact-integer and
// floating-point semantics that this module's kernel evaluations do not
// need. No pack repo, and no commonly used Go module, ships a
// software-quad (binary128-equivalent) float type, so big.Float with an
// explicit elevated precision is the standard-library primitive the
// ecosystem reaches for here.
package quad

import "math/big"

// Prec is the working precision, in bits, used for all extended-precision
// evaluations in this package: comfortably more than IEEE double's 53
// bits, enough to absorb cancellation for Λ well beyond 10^4.
const Prec = 200

// New returns a big.Float initialized to v at the package's working
// precision.
func New(v float64) *big.Float {
	return new(big.Float).SetPrec(Prec).SetFloat64(v)
}

// NewInt returns a big.Float initialized to the integer v.
func NewInt(v int) *big.Float {
	return new(big.Float).SetPrec(Prec).SetInt64(int64(v))
}

func tmp() *big.Float { return new(big.Float).SetPrec(Prec) }

// Float is an alias for math/big.Float, exposed so callers building
// longer extended-precision expressions do not need to import math/big
// themselves.
type Float = big.Float

// Add, Sub, Mul, Div and Neg are thin wrappers around big.Float's
// in-place arithmetic that instead allocate a fresh result at the
// package's working precision, matching the allocation style of
// predrag3141-PSLQ/bignumber.go's arithmetic methods.
func Add(a, b *Float) *Float { return tmp().Add(a, b) }
func Sub(a, b *Float) *Float { return tmp().Sub(a, b) }
func Mul(a, b *Float) *Float { return tmp().Mul(a, b) }
func Div(a, b *Float) *Float { return tmp().Quo(a, b) }
func Neg(a *Float) *Float    { return tmp().Neg(a) }

// Exp returns e^x at the working precision, via a scaled Taylor series
// (argument reduction by repeated halving, then squaring back up) —
// adequate here because callers only ever evaluate it on the bounded
// ranges that arise from ω·τ with τ∈[0,1] and the fine grid's ω cutoff.
func Exp(x *big.Float) *big.Float {
	if x.Sign() == 0 {
		return New(1)
	}
	neg := x.Sign() < 0
	ax := tmp().Abs(x)

	// Reduce ax by halving until it is small enough for the series to
	// converge in a modest number of terms, tracking the squarings
	// needed to undo the reduction.
	halvings := 0
	half := New(0.5)
	one := New(1)
	for ax.Cmp(one) > 0 {
		ax = tmp().Mul(ax, half)
		halvings++
	}

	// Taylor series for e^ax, ax ∈ (0, 1].
	sum := New(1)
	term := New(1)
	for k := 1; k <= Prec/2+8; k++ {
		term = tmp().Mul(term, ax)
		term = tmp().Quo(term, NewInt(k))
		sum = tmp().Add(sum, term)
		if term.MantExp(nil) < -Prec {
			break
		}
	}
	for i := 0; i < halvings; i++ {
		sum = tmp().Mul(sum, sum)
	}
	if neg {
		sum = tmp().Quo(one, sum)
	}
	return sum
}

// Expm1 returns e^x − 1 at the working precision, computed so as to
// remain accurate for x near zero (where a naive Exp(x)-1 would cancel).
func Expm1(x *big.Float) *big.Float {
	ax := tmp().Abs(x)
	small := New(0.5)
	if ax.Cmp(small) > 0 {
		return tmp().Sub(Exp(x), New(1))
	}
	// Series e^x - 1 = x + x^2/2! + x^3/3! + ...
	sum := New(0)
	term := New(1)
	for k := 1; k <= Prec/2+8; k++ {
		term = tmp().Mul(term, x)
		term = tmp().Quo(term, NewInt(k))
		sum = tmp().Add(sum, term)
		if term.MantExp(nil) < -Prec {
			break
		}
	}
	return sum
}

// DividedExpDiff returns (e^a − e^b)/(a − b) at the working precision,
// stable as a→b, which is exactly the cancellation-prone quantity behind
// spec.md §4.E's k≠l convolution-tensor entries and §4.E's inner-product
// closed form.
func DividedExpDiff(a, b *big.Float) *big.Float {
	d := tmp().Sub(a, b)
	if d.Sign() == 0 || d.MantExp(nil) < -Prec/2 {
		// a≈b: use e^b * (e^(a-b) - 1)/(a-b) with the stable Expm1,
		// and (e^h-1)/h → 1 as h→0.
		eb := Exp(b)
		h := d
		eh1 := Expm1(h)
		if h.Sign() == 0 {
			return eb
		}
		ratio := tmp().Quo(eh1, h)
		return tmp().Mul(eb, ratio)
	}
	ea, eb := Exp(a), Exp(b)
	num := tmp().Sub(ea, eb)
	return tmp().Quo(num, d)
}

// ToFloat64 down-casts a big.Float to float64, the final step required by
// every quad-precision path before its result re-enters the rest of the
// (double-precision) library.
func ToFloat64(x *big.Float) float64 {
	v, _ := x.Float64()
	return v
}
