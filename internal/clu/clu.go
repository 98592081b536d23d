// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package clu implements dense complex128 LU factorization with partial
// pivoting and the corresponding triangular solves.
//
// gonum.org/v1/gonum/mat has no public complex dense LU factorization
// (mat.CDense is storage only), and no other example repo in this
// module's reference pack provides one either, so this one small piece
// of the module's "LU factorization, out of scope as an external
// collaborator" is implemented directly against the standard library.
// It follows the factor-once/solve-many structure of
// rwcarlsen-fem/sparse/lu.go, generalized from real sparse matrices to
// small dense complex matrices.
package clu

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrSingular is returned when a zero (to working precision) pivot is
// encountered during factorization.
var ErrSingular = errors.New("clu: singular matrix")

// LU holds the in-place LU factorization (with partial pivoting) of a
// square complex matrix, stored row-major in a single slice.
type LU struct {
	n    int
	a    []complex128 // row-major, overwritten with L (unit diagonal implicit) and U
	piv  []int         // piv[i] is the row swapped into row i during elimination
}

// Factorize computes the LU decomposition of the n×n matrix a (row-major,
// a[i*n+j]) with partial pivoting. a is not modified; the factors are
// copied into the returned LU.
func Factorize(a []complex128, n int) (*LU, error) {
	if len(a) != n*n {
		panic("clu: dimension mismatch")
	}
	lu := &LU{n: n, a: append([]complex128(nil), a...), piv: make([]int, n)}
	for i := range lu.piv {
		lu.piv[i] = i
	}

	for k := 0; k < n; k++ {
		// Partial pivoting: choose the largest-magnitude entry in
		// column k, at or below row k.
		best, bestMag := k, cmplx.Abs(lu.a[k*n+k])
		for i := k + 1; i < n; i++ {
			if mag := cmplx.Abs(lu.a[i*n+k]); mag > bestMag {
				best, bestMag = i, mag
			}
		}
		if bestMag <= tiny {
			return nil, ErrSingular
		}
		if best != k {
			lu.swapRows(k, best)
			lu.piv[k] = best
		}

		pivot := lu.a[k*n+k]
		for i := k + 1; i < n; i++ {
			factor := lu.a[i*n+k] / pivot
			lu.a[i*n+k] = factor
			if factor == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				lu.a[i*n+j] -= factor * lu.a[k*n+j]
			}
		}
	}
	return lu, nil
}

// tiny is the magnitude below which a pivot is treated as exactly zero.
const tiny = 1e-300

func (lu *LU) swapRows(i, j int) {
	n := lu.n
	ri, rj := lu.a[i*n:i*n+n], lu.a[j*n:j*n+n]
	for k := range ri {
		ri[k], rj[k] = rj[k], ri[k]
	}
}

// Solve overwrites b (length n) with the solution of A*x = b, using the
// stored factorization.
func (lu *LU) Solve(b []complex128) {
	n := lu.n
	if len(b) != n {
		panic("clu: dimension mismatch")
	}
	// Apply the row permutation recorded during factorization.
	for k := 0; k < n; k++ {
		if p := lu.piv[k]; p != k {
			b[k], b[p] = b[p], b[k]
		}
	}
	// Forward substitution: L*y = Pb (unit lower triangular).
	for i := 1; i < n; i++ {
		var sum complex128
		for j := 0; j < i; j++ {
			sum += lu.a[i*n+j] * b[j]
		}
		b[i] -= sum
	}
	// Back substitution: U*x = y.
	for i := n - 1; i >= 0; i-- {
		var sum complex128
		for j := i + 1; j < n; j++ {
			sum += lu.a[i*n+j] * b[j]
		}
		b[i] = (b[i] - sum) / lu.a[i*n+i]
	}
}

// SolveMatrix solves A*X = B for the n×nrhs matrix B (row-major,
// b[i*nrhs+j]), in place.
func (lu *LU) SolveMatrix(b []complex128, nrhs int) {
	n := lu.n
	col := make([]complex128, n)
	for c := 0; c < nrhs; c++ {
		for i := 0; i < n; i++ {
			col[i] = b[i*nrhs+c]
		}
		lu.Solve(col)
		for i := 0; i < n; i++ {
			b[i*nrhs+c] = col[i]
		}
	}
}

// Cond estimates the matrix's 1-norm condition number from the U factor's
// diagonal, cheaply enough for a diagnostic, not a tight bound.
func (lu *LU) Cond() float64 {
	n := lu.n
	maxAbs, minAbs := 0.0, math.Inf(1)
	for i := 0; i < n; i++ {
		m := cmplx.Abs(lu.a[i*n+i])
		if m > maxAbs {
			maxAbs = m
		}
		if m < minAbs {
			minAbs = m
		}
	}
	if minAbs == 0 {
		return math.Inf(1)
	}
	return maxAbs / minAbs
}
