// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package clu

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"
)

func randomComplexMatrix(rnd *rand.Rand, n int) []complex128 {
	a := make([]complex128, n*n)
	for i := range a {
		a[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
	}
	return a
}

func matVec(a []complex128, n int, x []complex128) []complex128 {
	out := make([]complex128, n)
	for i := 0; i < n; i++ {
		var sum complex128
		for j := 0; j < n; j++ {
			sum += a[i*n+j] * x[j]
		}
		out[i] = sum
	}
	return out
}

func TestSolveRecoversKnownSolution(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 1))
	n := 6
	a := randomComplexMatrix(rnd, n)
	x := make([]complex128, n)
	for i := range x {
		x[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
	}
	b := matVec(a, n, x)

	lu, err := Factorize(a, n)
	if err != nil {
		t.Fatalf("Factorize: %v", err)
	}
	lu.Solve(b)
	for i := range x {
		d := cmplx.Abs(b[i] - x[i])
		if d > 1e-9*math.Max(1, cmplx.Abs(x[i])) {
			t.Errorf("x[%d] = %v, want %v", i, b[i], x[i])
		}
	}
}

func TestSolveMatrixMultipleRHS(t *testing.T) {
	rnd := rand.New(rand.NewPCG(2, 2))
	n, nrhs := 5, 3
	a := randomComplexMatrix(rnd, n)
	xs := make([]complex128, n*nrhs)
	for i := range xs {
		xs[i] = complex(rnd.NormFloat64(), rnd.NormFloat64())
	}
	b := make([]complex128, n*nrhs)
	for c := 0; c < nrhs; c++ {
		col := make([]complex128, n)
		for i := 0; i < n; i++ {
			col[i] = xs[i*nrhs+c]
		}
		res := matVec(a, n, col)
		for i := 0; i < n; i++ {
			b[i*nrhs+c] = res[i]
		}
	}

	lu, err := Factorize(a, n)
	if err != nil {
		t.Fatalf("Factorize: %v", err)
	}
	lu.SolveMatrix(b, nrhs)
	for i := range b {
		d := cmplx.Abs(b[i] - xs[i])
		if d > 1e-9*math.Max(1, cmplx.Abs(xs[i])) {
			t.Errorf("entry %d = %v, want %v", i, b[i], xs[i])
		}
	}
}

func TestFactorizeSingularReturnsError(t *testing.T) {
	n := 3
	a := make([]complex128, n*n) // all zero: exactly singular
	if _, err := Factorize(a, n); err != ErrSingular {
		t.Errorf("Factorize(zero matrix) err = %v, want ErrSingular", err)
	}
}

func TestFactorizePanicsOnDimensionMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Factorize([]complex128{1, 2, 3}, 2)
}

func TestCondIdentityIsOne(t *testing.T) {
	n := 4
	a := make([]complex128, n*n)
	for i := 0; i < n; i++ {
		a[i*n+i] = 1
	}
	lu, err := Factorize(a, n)
	if err != nil {
		t.Fatal(err)
	}
	if c := lu.Cond(); math.Abs(c-1) > 1e-9 {
		t.Errorf("Cond(identity) = %v, want 1", c)
	}
}
