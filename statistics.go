// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

// Statistics selects the particle statistics (spec.md §6): fermions use
// ξ=−1, bosons use ξ=+1. It appears in convolution-tensor and
// inner-product construction, and determines the Matsubara frequency
// offset (fermionic ν_n=(2n+1)π/β, bosonic ν_n=2nπ/β).
type Statistics int

const (
	// Fermionic statistics, ξ=−1.
	Fermionic Statistics = -1
	// Bosonic statistics, ξ=+1.
	//
	// Bosonic Matsubara support is implemented end-to-end per the
	// defining formulas, but is flagged (spec.md §9) as untested by the
	// original reference harness; treat it as supported, not certified.
	Bosonic Statistics = 1
)

// xi returns the statistics flag ξ as used throughout spec.md's
// formulas.
func (s Statistics) xi() float64 { return float64(s) }

func (s Statistics) valid() bool { return s == Fermionic || s == Bosonic }
