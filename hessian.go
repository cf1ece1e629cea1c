// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// curvatureWindow is a fixed-depth FIFO of BFGS curvature pairs (s, y),
// most recent at index 0. cap pairs are kept; once full, pushing drops the
// oldest pair.
type curvatureWindow struct {
	s, y [][]float64 // s[0], y[0] is the most recently pushed pair
	cap  int
}

func newCurvatureWindow(cap int) *curvatureWindow {
	return &curvatureWindow{cap: cap}
}

func (w *curvatureWindow) push(s, y []float64) {
	w.s = append([][]float64{append([]float64(nil), s...)}, w.s...)
	w.y = append([][]float64{append([]float64(nil), y...)}, w.y...)
	if len(w.s) > w.cap {
		w.s = w.s[:w.cap]
		w.y = w.y[:w.cap]
	}
}

// rebuildHessian rebuilds H from the identity by applying the accepted
// curvature pairs in the window oldest-first.
//
// A pair is accepted iff ||s|| <= xiS*eps, ||y|| <= xiY*eps and
// s.y >= xiSY*eps^2. The eps scaling keeps stale large-scale curvature out
// of H once the sampling radius has shrunk. Accepted pairs apply the
// standard BFGS rank-two update directly to the Hessian approximation (not
// its inverse, unlike the inverse-Hessian BFGS of classical unconstrained
// quasi-Newton methods).
func (w *curvatureWindow) rebuildHessian(dim int, eps, xiS, xiY, xiSY float64) *mat.Dense {
	h := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		h.Set(i, i, 1)
	}

	for l := len(w.s) - 1; l >= 0; l-- {
		s, y := w.s[l], w.y[l]
		if floats.Norm(s, 2) > xiS*eps {
			continue
		}
		if floats.Norm(y, 2) > xiY*eps {
			continue
		}
		if floats.Dot(s, y) < xiSY*eps*eps {
			continue
		}
		applyBFGS(h, s, y)
	}
	return h
}

// applyBFGS applies, in place,
//
//	H <- H - (Hs)(Hs)^T/(s^T H s + eps) + y y^T/(y^T s + eps)
//
// the direct Hessian BFGS rank-two update, with a 1e-16 guard in both
// denominators.
func applyBFGS(h *mat.Dense, s, y []float64) {
	dim := len(s)
	hs := make([]float64, dim)
	for i := 0; i < dim; i++ {
		hs[i] = floats.Dot(h.RawRowView(i), s)
	}
	sHs := floats.Dot(s, hs) + 1e-16
	ys := floats.Dot(y, s) + 1e-16

	for i := 0; i < dim; i++ {
		row := h.RawRowView(i)
		for j := 0; j < dim; j++ {
			row[j] += -hs[i]*hs[j]/sHs + y[i]*y[j]/ys
		}
	}
}

// maxAsymmetry returns the largest entrywise |H_ij - H_ji|, used by the
// driver to assert the BFGS update preserved symmetry.
func maxAsymmetry(h *mat.Dense) float64 {
	dim, _ := h.Dims()
	var m float64
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			d := h.At(i, j) - h.At(j, i)
			if d < 0 {
				d = -d
			}
			if d > m {
				m = d
			}
		}
	}
	return m
}
