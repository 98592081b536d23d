// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"gonum.org/v1/gonum/mat"

	"github.com/Wentzell/libdlr/internal/rrqr"
)

// Component C: node selection via two successive adaptive/fixed-rank
// pivoted QR factorizations (spec.md §4.C), grounded on
// original_source/pydlr/kernel.py's dlr_decomp for which matrix gets
// transposed/restricted at each stage, and on
// other_examples/curioloop-optimizer__hfti.go for the underlying
// column-pivoted Householder algorithm (internal/rrqr).

// selectFrequencyNodes runs adaptive-rank pivoted QR on the columns of
// the nt×no fine kernel matrix, returning the absolute column indices
// selected as DLR frequencies, the discovered rank, and an estimate of
// cond_2 of the resulting R factor (a diagnostic of how ill-conditioned
// it2cf/it2mf are likely to be downstream).
func selectFrequencyNodes(kmat *mat.Dense, eps float64, maxRank int) (oidx []int, rank int, cond float64, err error) {
	nt, no := kmat.Dims()
	cols := make([][]float64, no)
	for j := 0; j < no; j++ {
		col := make([]float64, nt)
		mat.Col(col, j, kmat)
		cols[j] = col
	}
	m := rrqr.NewMatrix(cols, nt)
	oidx, rank, capped := rrqr.AdaptiveRank(m, eps, maxRank)
	if capped {
		return nil, 0, 0, ErrRankOverflow
	}
	cond = rrqr.EstimateConditionNumber(m, rank)
	return oidx, rank, cond, nil
}

// selectImaginaryTimeNodes runs fixed-rank pivoted QR on the r×nt matrix
// whose columns are the τ-rows of kmat restricted to the r selected
// ω-columns, returning the absolute fine-grid τ indices selected.
func selectImaginaryTimeNodes(kmat *mat.Dense, oidx []int, rank int) (tidx []int) {
	nt, _ := kmat.Dims()
	// cols[i] (length rank) holds row i of kmat restricted to oidx:
	// the transpose-restrict of spec.md §4.C step 2.
	cols := make([][]float64, nt)
	for i := 0; i < nt; i++ {
		col := make([]float64, rank)
		for k, j := range oidx {
			col[k] = kmat.At(i, j)
		}
		cols[i] = col
	}
	m := rrqr.NewMatrix(cols, rank)
	return rrqr.FixedRank(m, rank)
}

// selectMatsubaraNodes runs fixed-rank pivoted QR on the r×(2nmax+1)
// matrix of K_mf(n, dlrrf_k) (its transpose, per spec.md §4.C step 3),
// returning the selected signed Matsubara integers.
//
// selectMatsubaraNodes operates on the real and imaginary parts
// independently stacked as 2r rows so that the pivoted-QR primitive,
// which is real-valued, can select among complex columns: this
// generalizes pydlr.py's dlr_mf (which instead transposes and runs
// scipy's complex-aware QR directly) to the real-only internal/rrqr
// primitive this module uses.
func selectMatsubaraNodes(dlrrf []float64, beta float64, stat Statistics, nmax, rank int) (dlrmf []int) {
	r := len(dlrrf)
	ns := make([]int, 2*nmax+1)
	for i := range ns {
		ns[i] = i - nmax
	}
	cols := make([][]float64, len(ns))
	for c, n := range ns {
		col := make([]float64, 2*r)
		for k, om := range dlrrf {
			v := Kmf(n, om, beta, stat)
			col[k] = real(v)
			col[r+k] = imag(v)
		}
		cols[c] = col
	}
	m := rrqr.NewMatrix(cols, 2*r)
	pivots := rrqr.FixedRank(m, rank)
	dlrmf = make([]int, rank)
	for i, p := range pivots {
		dlrmf[i] = ns[p]
	}
	return dlrmf
}
