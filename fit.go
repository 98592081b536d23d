// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Wentzell/libdlr/internal/rrqr"
)

// Component H: least-squares fitting of DLR coefficients to scattered
// imaginary-time samples (spec.md §4.H's fit_it), grounded on
// internal/rrqr (the same column-pivoted Householder QR Component C
// uses for node selection) for rank determination, and on
// gonum.org/v1/gonum/mat's QR factorization for the final triangular
// least-squares solve on the rank-selected column subset.

// FitIT fits DLR coefficients to m arbitrary τ-samples (relative format)
// and their values: builds the m×r matrix K_rel(τ_i, ω_j), determines
// its numerical column rank by adaptive-rank pivoted QR at tolerance
// eps, and solves the reduced, well-conditioned least-squares problem on
// the selected columns. Coefficients for columns not selected (when the
// discovered rank is below r) are left at zero.
//
// FitIT returns the discovered rank alongside the coefficients so
// callers can detect an under-determined fit.
func FitIT(dlrrf []float64, tauSamples, values []float64, eps float64) (coeffs []float64, rank int, err error) {
	m := len(tauSamples)
	r := len(dlrrf)
	if m == 0 || len(values) != m {
		return nil, 0, ErrInvalidInput
	}

	colsOrig := make([][]float64, r)
	colsWork := make([][]float64, r)
	for j, om := range dlrrf {
		col := make([]float64, m)
		for i, t := range tauSamples {
			col[i] = Krel(t, om)
		}
		colsOrig[j] = col
		colsWork[j] = append([]float64(nil), col...)
	}

	work := rrqr.NewMatrix(colsWork, m)
	perm, rank, capped := rrqr.AdaptiveRank(work, eps, r)
	if capped {
		return nil, 0, ErrRankOverflow
	}
	if rank == 0 {
		return make([]float64, r), 0, nil
	}

	ared := mat.NewDense(m, rank, nil)
	for k, j := range perm {
		for i := 0; i < m; i++ {
			ared.Set(i, k, colsOrig[j][i])
		}
	}

	var qr mat.QR
	qr.Factorize(ared)
	b := mat.NewDense(m, 1, append([]float64(nil), values...))
	var x mat.Dense
	if err := qr.SolveTo(&x, false, b); err != nil {
		return nil, 0, ErrSingularSystem
	}

	coeffs = make([]float64, r)
	for k, j := range perm {
		coeffs[j] = x.At(k, 0)
	}
	return coeffs, rank, nil
}
