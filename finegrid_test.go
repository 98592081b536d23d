// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dlr

import (
	"math"
	"testing"
)

func TestBuildFineGridInvalidLambda(t *testing.T) {
	if _, err := BuildFineGrid(0); err != ErrInvalidInput {
		t.Errorf("BuildFineGrid(0) err = %v, want ErrInvalidInput", err)
	}
	if _, err := BuildFineGrid(-5); err != ErrInvalidInput {
		t.Errorf("BuildFineGrid(-5) err = %v, want ErrInvalidInput", err)
	}
}

func TestBuildFineGridSelfCheck(t *testing.T) {
	for _, lambda := range []float64{10, 100, 1000} {
		fg, err := BuildFineGrid(lambda)
		if err != nil {
			t.Fatalf("BuildFineGrid(%v): %v", lambda, err)
		}
		if fg.Err[0] > 1e-10 || fg.Err[1] > 1e-10 {
			t.Errorf("Lambda=%v: panel self-check errors too large: %v", lambda, fg.Err)
		}
		nt, no := fg.Kmat.Dims()
		if nt != len(fg.T) || no != len(fg.Om) {
			t.Errorf("Lambda=%v: Kmat dims (%d,%d) != (len(T),len(Om))=(%d,%d)", lambda, nt, no, len(fg.T), len(fg.Om))
		}
	}
}

func TestBuildFineGridMirrorSymmetry(t *testing.T) {
	fg, err := BuildFineGrid(100)
	if err != nil {
		t.Fatal(err)
	}
	nt, no := fg.Kmat.Dims()
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			a := fg.Kmat.At(i, j)
			b := fg.Kmat.At(nt-1-i, no-1-j)
			if math.Abs(a-b) > 1e-12*math.Max(1, math.Abs(a)) {
				t.Errorf("Kmat[%d,%d]=%v != Kmat[%d,%d]=%v (mirror symmetry)", i, j, a, nt-1-i, no-1-j, b)
			}
		}
	}
}

func TestPanelCountsGrowWithLambda(t *testing.T) {
	npt1, npo1 := panelCounts(10)
	npt2, npo2 := panelCounts(10000)
	if npt2 < npt1 || npo2 < npo1 {
		t.Errorf("panel counts should grow with Lambda: (%d,%d) -> (%d,%d)", npt1, npo1, npt2, npo2)
	}
}
