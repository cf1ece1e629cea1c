// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// penaltyValue evaluates the L1 exact-penalty merit function
//
//	phi_rho(x) = rho*f(x) + sum_j max(g_j(x), 0) + sum_l |h_l(x)|
func penaltyValue(p Problem, x []float64, rho float64) float64 {
	v := rho * p.Obj.Eval(x)
	for _, g := range p.Ineq {
		v += math.Max(g.Eval(x), 0)
	}
	for _, h := range p.Eq {
		v += math.Abs(h.Eval(x))
	}
	return v
}

// modelValue evaluates the subproblem's convex model
//
//	q_rho(d) = rho*(f_k + max_i D_f_i.d)
//	         + sum_j max_i max(gI_k_j + D_gI_j_i.d, 0)
//	         + sum_l max_i |gE_k_l + D_gE_l_i.d|
//	         + 1/2 d^T H d
//
// with the three oracle kinds kept as three distinct summands.
func modelValue(d []float64, rho float64, h *mat.Dense, fk float64, gik, gek []float64, df *mat.Dense, dgi, dge []*mat.Dense) float64 {
	termF := rho * (fk + maxMatVec(df, d))

	var termI float64
	for j, dgij := range dgi {
		termI += maxZeroMatVec(dgij, d, gik[j])
	}

	var termE float64
	for l, dgel := range dge {
		termE += maxAbsMatVec(dgel, d, gek[l])
	}

	n := len(d)
	hd := make([]float64, n)
	for i := 0; i < n; i++ {
		hd[i] = floats.Dot(h.RawRowView(i), d)
	}
	termH := 0.5 * floats.Dot(d, hd)

	return termF + termI + termE + termH
}

// maxMatVec returns max_i (D[i,:] . d) over the rows of D.
func maxMatVec(d *mat.Dense, x []float64) float64 {
	n, _ := d.Dims()
	best := math.Inf(-1)
	for i := 0; i < n; i++ {
		v := floats.Dot(d.RawRowView(i), x)
		if v > best {
			best = v
		}
	}
	return best
}

// maxZeroMatVec returns max_i max(c + D[i,:] . d, 0).
func maxZeroMatVec(d *mat.Dense, x []float64, c float64) float64 {
	n, _ := d.Dims()
	best := math.Inf(-1)
	for i := 0; i < n; i++ {
		v := c + floats.Dot(d.RawRowView(i), x)
		if v > best {
			best = v
		}
	}
	return math.Max(best, 0)
}

// maxAbsMatVec returns max_i |c + D[i,:] . d|.
func maxAbsMatVec(d *mat.Dense, x []float64, c float64) float64 {
	n, _ := d.Dims()
	best := math.Inf(-1)
	for i := 0; i < n; i++ {
		v := math.Abs(c + floats.Dot(d.RawRowView(i), x))
		if v > best {
			best = v
		}
	}
	return best
}
