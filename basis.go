// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

// DLRBasis is the Discrete Lehmann Representation basis for a given
// cutoff Λ and accuracy ε (spec.md §3): a discovered rank r, r selected
// real-frequency support points, and r matching imaginary-time nodes in
// relative format. It is immutable once built; transforms and operators
// are derived pure functions of (DLRBasis, β, ξ).
type DLRBasis struct {
	Lambda, Eps float64

	R int

	// Dlrrf holds the r selected real-frequency support points,
	// unsorted (in pivot-selection order).
	Dlrrf []float64
	// Oidx holds the corresponding indices into the fine ω-grid.
	Oidx []int

	// Dlrit holds the r selected imaginary-time nodes, in relative
	// format (spec.md §4.G).
	Dlrit []float64
	// Tidx holds the corresponding indices into the fine τ-grid.
	Tidx []int

	// Warning is non-nil if Component B's panel self-check measured an
	// interpolation error exceeding ε by more than a modest factor.
	// Non-fatal: Build still returns a usable basis.
	Warning *NumericalWarning

	// Cond is an incremental estimate of cond_2 of the R factor from
	// frequency-node selection (internal/rrqr.EstimateConditionNumber):
	// a cheap diagnostic of how ill-conditioned the downstream transforms
	// are likely to be, not a guarantee.
	Cond float64
}

// Build constructs the DLR basis for cutoff Λ>0 and target accuracy
// ε∈(0,1), capping the discovered rank at maxRank (spec.md §6's
// build(Λ, ε, maxrank)). maxRank is typically 500.
//
// Build returns ErrInvalidInput for malformed Λ/ε, and ErrRankOverflow
// if the adaptive pivoted QR of Component C needs more than maxRank.
func Build(lambda, eps float64, maxRank int) (*DLRBasis, error) {
	if lambda <= 0 || eps <= 0 || eps >= 1 || maxRank <= 0 {
		return nil, ErrInvalidInput
	}

	fg, err := BuildFineGrid(lambda)
	if err != nil {
		return nil, err
	}

	oidx, rank, cond, err := selectFrequencyNodes(fg.Kmat, eps, maxRank)
	if err != nil {
		return nil, err
	}
	tidx := selectImaginaryTimeNodes(fg.Kmat, oidx, rank)

	nt := len(fg.T)
	dlrrf := make([]float64, rank)
	for i, j := range oidx {
		dlrrf[i] = fg.Om[j]
	}
	dlrit := make([]float64, rank)
	for i, idx := range tidx {
		dlrit[i] = relativeTauFromFineIndex(fg.T, idx, nt)
	}

	return &DLRBasis{
		Lambda: lambda, Eps: eps, R: rank,
		Dlrrf: dlrrf, Oidx: oidx,
		Dlrit: dlrit, Tidx: tidx,
		Warning: newWarningIfNeeded(fg.Err[0], fg.Err[1], eps),
		Cond:    cond,
	}, nil
}

// relativeTauFromFineIndex returns the fine τ-grid value at idx in
// relative format. Indices in the upper half (τ>1/2) are mapped via
// −T[nt−1−idx] rather than T[idx]−1, preserving the precision the
// mirrored grid construction bought in the first place (spec.md §4.C).
func relativeTauFromFineIndex(t []float64, idx, nt int) float64 {
	if idx < nt/2 {
		return t[idx]
	}
	return -t[nt-1-idx]
}

// MatsubaraBasis adds the r selected Matsubara-frequency nodes to a
// DLRBasis, for a given inverse temperature β, statistics, and a
// maximum Matsubara index nmax (spec.md §4.C step 3, §6's nmax
// parameter of build/transforms_matsubara).
//
// nmax must satisfy nmax ≥ basis.R/2 (spec.md §7); smaller values cannot
// supply enough independent columns to select a rank-r set.
func MatsubaraBasis(basis *DLRBasis, beta float64, stat Statistics, nmax int) ([]int, error) {
	if beta <= 0 || !stat.valid() || nmax < basis.R/2 {
		return nil, ErrInvalidInput
	}
	return selectMatsubaraNodes(basis.Dlrrf, beta, stat, nmax, basis.R), nil
}
