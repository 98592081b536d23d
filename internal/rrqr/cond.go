// Copyright ©2025 The libdlr Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rrqr

import "math"

// eps2 is the double-precision rounding-error constant used by
// updateSingularValueEstimate, the same role dlamchE plays in the LAPACK
// condition estimators this file adapts.
const eps2 = 1.1102230246251565e-16

// EstimateConditionNumber estimates cond_2(R), the ratio of largest to
// smallest singular value, for the rank×rank upper-triangular factor R
// occupying the first rank rows of the first rank columns of a after
// AdaptiveRank or FixedRank has eliminated it in place. It grows the
// estimate one column at a time via updateSingularValueEstimate, the
// same incremental condition estimation LAPACK's Dtrcon/Dtrsna use —
// exact SVD of R would cost O(rank^3) more, defeating the purpose of a
// cheap post-selection diagnostic.
func EstimateConditionNumber(a Matrix, rank int) float64 {
	if rank == 0 {
		return 0
	}
	sestMax := math.Abs(a.Cols[0][0])
	sestMin := sestMax
	xMax := []float64{1}
	xMin := []float64{1}

	for j := 1; j < rank; j++ {
		w := make([]float64, j)
		for i := 0; i < j; i++ {
			w[i] = a.Cols[j][i]
		}
		gamma := a.Cols[j][j]

		var sMax, cMax, sMin, cMin float64
		sestMax, sMax, cMax = updateSingularValueEstimate(1, xMax, sestMax, w, gamma)
		sestMin, sMin, cMin = updateSingularValueEstimate(2, xMin, sestMin, w, gamma)
		xMax = growEstimateVector(xMax, sMax, cMax)
		xMin = growEstimateVector(xMin, sMin, cMin)
	}
	if sestMin == 0 {
		return math.Inf(1)
	}
	return sestMax / sestMin
}

func growEstimateVector(x []float64, s, c float64) []float64 {
	out := make([]float64, len(x)+1)
	for i, v := range x {
		out[i] = s * v
	}
	out[len(x)] = c
	return out
}

// updateSingularValueEstimate applies one step of incremental singular
// value estimation: given x with op(R_j)x=sest*w (R_j the leading j×j
// triangular block) and the new row/column (w, gamma) extending R_j to
// R_{j+1}, it returns an updated estimate sestpr of the largest (job=1)
// or smallest (job=2) singular value of R_{j+1}, plus the sine/cosine of
// the rotation relating the old and new approximate singular vectors.
//
// Adapted from lapack/gonum's Dlaic1 (itself LAPACK's dlaic1.f): the
// control flow and every branch constant below are unchanged, since this
// is a numerically delicate algorithm with no simpler equivalent; only
// the signature (no receiver, no job-argument panic, LAPACK's x/w
// nomenclature kept since there is no more descriptive name for "the
// approximate singular vector so far") is adapted to this package.
func updateSingularValueEstimate(job int, x []float64, sest float64, w []float64, gamma float64) (sestpr, s, c float64) {
	j := len(x)
	alpha := 0.0
	for i := 0; i < j; i++ {
		alpha += x[i] * w[i]
	}

	absalp := math.Abs(alpha)
	absgam := math.Abs(gamma)
	absest := math.Abs(sest)

	if job == 1 {
		switch {
		case sest == 0:
			s1 := math.Max(absgam, absalp)
			if s1 == 0 {
				return 0, 0, 1
			}
			s = alpha / s1
			c = gamma / s1
			tmp := math.Sqrt(s*s + c*c)
			return s1 * tmp, s / tmp, c / tmp
		case absgam <= eps2*absest:
			tmp := math.Max(absest, absalp)
			s1, s2 := absest/tmp, absalp/tmp
			return tmp * math.Sqrt(s1*s1+s2*s2), 1, 0
		case absalp <= eps2*absest:
			if absgam <= absest {
				return absest, 1, 0
			}
			return absgam, 0, 1
		case absest <= eps2*absalp || absest <= eps2*absgam:
			if absgam <= absalp {
				tmp := absgam / absalp
				ss := math.Sqrt(1 + tmp*tmp)
				return absalp * ss, math.Copysign(1, alpha) / ss, (gamma / absalp) / ss
			}
			tmp := absalp / absgam
			cc := math.Sqrt(1 + tmp*tmp)
			return absgam * cc, (alpha / absgam) / cc, math.Copysign(1, gamma) / cc
		}

		zeta1, zeta2 := alpha/absest, gamma/absest
		b := (1 - zeta1*zeta1 - zeta2*zeta2) * 0.5
		cc := zeta1 * zeta1
		var t float64
		if b > 0 {
			t = cc / (b + math.Sqrt(b*b+cc))
		} else {
			t = math.Sqrt(b*b+cc) - b
		}
		sine := -zeta1 / t
		cosine := -zeta2 / (1 + t)
		tmp := math.Sqrt(sine*sine + cosine*cosine)
		return math.Sqrt(t+1) * absest, sine / tmp, cosine / tmp
	}

	// job == 2: smallest singular value.
	switch {
	case sest == 0:
		if math.Max(absgam, absalp) == 0 {
			return 0, 1, 0
		}
		sine, cosine := -gamma, alpha
		s1 := math.Max(math.Abs(sine), math.Abs(cosine))
		sine, cosine = sine/s1, cosine/s1
		tmp := math.Sqrt(sine*sine + cosine*cosine)
		return 0, sine / tmp, cosine / tmp
	case absgam <= eps2*absest:
		return absgam, 0, 1
	case absalp <= eps2*absest:
		if absgam <= absest {
			return absgam, 0, 1
		}
		return absest, 1, 0
	case absest <= eps2*absalp || absest <= eps2*absgam:
		if absgam <= absalp {
			tmp := absgam / absalp
			cc := math.Sqrt(1 + tmp*tmp)
			return absest * (tmp / cc), -(gamma / absalp) / cc, math.Copysign(1, alpha) / cc
		}
		tmp := absalp / absgam
		ss := math.Sqrt(1 + tmp*tmp)
		return absest / ss, math.Copysign(1, alpha) / ss, -math.Copysign(1, gamma) / ss
	}

	zeta1, zeta2 := alpha/absest, gamma/absest
	norma := math.Max(1+zeta1*zeta1+math.Abs(zeta1*zeta2), math.Abs(zeta1*zeta2)+zeta2*zeta2)
	test := 1 + 2*(zeta1-zeta2)*(zeta1+zeta2)
	var sine, cosine, sestpr2 float64
	if test >= 0 {
		b := (zeta1*zeta1 + zeta2*zeta2 + 1) * 0.5
		cc := zeta2 * zeta2
		t := cc / (b + math.Sqrt(math.Abs(b*b-cc)))
		sine = zeta1 / (1 - t)
		cosine = -zeta2 / t
		sestpr2 = math.Sqrt(t+4*eps2*eps2*norma) * absest
	} else {
		b := (zeta2*zeta2 + zeta1*zeta1 - 1) * 0.5
		cc := zeta1 * zeta1
		var t float64
		if b >= 0 {
			t = -cc / (b + math.Sqrt(b*b+cc))
		} else {
			t = b - math.Sqrt(b*b+cc)
		}
		sine = -zeta1 / t
		cosine = -zeta2 / (1 + t)
		sestpr2 = math.Sqrt(1+t+4*eps2*eps2*norma) * absest
	}
	tmp := math.Sqrt(sine*sine + cosine*cosine)
	return sestpr2, sine / tmp, cosine / tmp
}
