// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

// Component G: relative ↔ absolute representation of τ on [0,1], and
// equispaced test grids (spec.md §4.G).
//
// All τ inputs and outputs elsewhere in this package are in relative
// format: τ∈[0,1] is stored as τ itself when τ≤1/2 or τ=1, and as τ−1
// (a negative number encoding τ_abs=1+τ) when 1/2<τ<1. This preserves
// relative precision for τ near 1, exactly as it does for the
// imaginary-time Lehmann kernel Krel (spec.md §4.A). Grounded on
// pydlr.py's get_tau_over_beta, which builds the same signed
// representation by hand for its selected nodes.

// RelToAbs converts a τ value from relative format to absolute format
// on [0,1].
func RelToAbs(t float64) float64 {
	if t < 0 {
		return t + 1
	}
	return t
}

// AbsToRel converts a τ value from absolute format on [0,1] to relative
// format on [−1/2, 1/2] ∪ {1}.
func AbsToRel(t float64) float64 {
	if t > 0.5 && t < 1 {
		return t - 1
	}
	return t
}

// EquispacedGrid returns n points equispaced over [0,1] in relative
// format, i.e. i/(n−1) for the first half and −(n−1−i)/(n−1) for the
// second half (spec.md §4.G). The first point is τ=0; the last point is
// the relative value 0 (−0), which RelToAbs maps to τ=0 as well, so the
// absolute endpoint τ=1 is not part of the grid. It is primarily used
// by test harnesses that evaluate an expanded Green's function on a
// uniform grid.
func EquispacedGrid(n int) []float64 {
	if n < 2 {
		panic("dlr: EquispacedGrid requires n >= 2")
	}
	grid := make([]float64, n)
	half := n / 2
	for i := 0; i < n; i++ {
		if i <= half {
			grid[i] = float64(i) / float64(n-1)
		} else {
			grid[i] = -float64(n-1-i) / float64(n-1)
		}
	}
	return grid
}
