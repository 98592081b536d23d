// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dlr constructs and operates with the Discrete Lehmann
// Representation (DLR): a compact, provably accurate basis for
// imaginary-time single-particle Green's functions arising in
// finite-temperature quantum many-body physics.
//
// Given a dimensionless cutoff Λ and a target accuracy ε, Build produces
// a DLRBasis of O(log(Λ)·log(1/ε)) real-frequency support points and
// matching imaginary-time interpolation nodes (MatsubaraBasis adds the
// matching Matsubara-frequency nodes for a given β),
// such that any Green's function whose spectral density is supported in
// [−Λ/β, Λ/β] can be expanded as
//
//	G(τ) ≈ Σ_k c_k·K(τ, ω_k)
//
// to accuracy ε, where K is the Lehmann kernel (see Krel).
//
// The package is organized around the dependency order of its
// components: kernel evaluation (Krel, Kabs, Kmf, Expfun), the fine
// composite-Chebyshev discretization (BuildFineGrid), node selection via
// pivoted QR (internal to Build), the value/coefficient transforms
// (BuildTransforms, BuildMatsubaraTransforms), the operators built on
// top of a basis (BuildOperators, BuildOperatorsQuad, EvalIT, EvalMF),
// and the Dyson-equation fixed-point solvers (DysonIT, DysonMF).
//
// Every exported function is a pure function of its arguments, with one
// exception: each DysonIT/DysonMF call creates a DysonState and updates
// it from iteration to iteration within that call. There is no global
// state, mirroring the reference implementation's design (spec.md §9).
package dlr
