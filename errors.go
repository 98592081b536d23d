// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fixed error kinds of spec.md §7. Builders
// return these (or errors wrapping them via fmt.Errorf's %w) rather than
// panicking on caller-supplied numerical parameters; panics in this
// package are reserved for malformed call shapes that indicate a bug in
// the calling code, the same division gonum's lapack packages draw
// between returned errors and outright panics.
var (
	// ErrInvalidInput is returned for Λ≤0, ε outside (0,1), nmax<rank/2,
	// and similarly malformed numerical parameters.
	ErrInvalidInput = errors.New("dlr: invalid input")

	// ErrRankOverflow is returned when the adaptive pivoted QR of
	// Component C needs more than the caller-supplied rank cap.
	ErrRankOverflow = errors.New("dlr: rank exceeds cap")

	// ErrSingularSystem is returned when an LU factorization encounters
	// an exact (to working precision) zero pivot. Should not occur for
	// a well-formed DLR basis; indicates numerical pathology.
	ErrSingularSystem = errors.New("dlr: singular system")

	// ErrNotConverged is returned by the Dyson solvers when the
	// fixed-point iteration exceeds its iteration cap.
	ErrNotConverged = errors.New("dlr: fixed point did not converge")
)

// NumericalWarning reports that Component B's panel self-check measured
// an interpolation error exceeding its target tolerance by more than a
// modest factor. It is not fatal: it is attached to a successful build
// result, not returned as the build's error.
type NumericalWarning struct {
	// Measured is the panel self-check's L∞ error (spec.md §4.B), one
	// entry for τ and one for ω.
	Measured [2]float64
	// Tolerance is the target ε the measured error was compared against.
	Tolerance float64
}

func (w NumericalWarning) Error() string {
	return fmt.Sprintf("dlr: panel self-check error %v exceeds tolerance %g", w.Measured, w.Tolerance)
}

// warningFactor is how far a measured panel error may exceed eps before
// newWarningIfNeeded attaches a NumericalWarning. The factor of 10
// mirrors the "modest factor" language of spec.md §7; it is not a hard
// correctness bound, just a point at which a caller should look closer.
const warningFactor = 10

func newWarningIfNeeded(errT, errOm, eps float64) *NumericalWarning {
	if errT > warningFactor*eps || errOm > warningFactor*eps {
		return &NumericalWarning{Measured: [2]float64{errT, errOm}, Tolerance: eps}
	}
	return nil
}
