// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qp implements a convex quadratic programming back-end for
// inequality-only QPs
//
//	minimize    1/2 y^T P y + q^T y
//	subject to  G y <= h
//
// which is the form the SQP-GS subproblem in the parent package produces
// (equality constraints are encoded as pairs of inequalities at the merit
// level, so no equality-constraint channel is needed here).
//
// Solver is the back-end contract; InteriorPointSolver is the built-in
// implementation, a dense Mehrotra predictor-corrector primal-dual method:
// an affine-scaling predictor step, a centering parameter
// sigma = (mu_aff/mu)^3, a combined corrector step, and
// fraction-to-boundary step lengths. The slack variable is eliminated at
// every iteration and the Newton direction is recovered from the reduced
// (normal-equations) KKT system.
package qp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInfeasible is returned when the interior-point iteration fails to
// converge within MaxIter, which for a well-posed SQP-GS subproblem
// indicates infeasibility or numerical breakdown upstream.
var ErrInfeasible = errors.New("qp: did not converge to a KKT point")

// Solver is a convex QP back-end. Implementations must return a primal
// optimum y and the inequality duals z, in the order the rows of G were
// supplied. G may be nil when h is empty.
type Solver interface {
	Solve(p *mat.Dense, q []float64, g *mat.Dense, h []float64) (y, z []float64, err error)
}

// InteriorPointSolver solves dense inequality-only convex QPs with a
// Mehrotra predictor-corrector primal-dual interior-point method.
type InteriorPointSolver struct {
	MaxIter int
	Tol     float64
	// Reg is a small diagonal regularization added to the reduced KKT
	// matrix at every iteration, keeping the solve well posed when P is
	// only positive semidefinite (the SQP-GS subproblem's P is zero in
	// its z/rI/rE coordinates).
	Reg float64
}

// NewInteriorPointSolver returns an InteriorPointSolver with the default
// iteration cap, tolerance and regularization.
func NewInteriorPointSolver() *InteriorPointSolver {
	return &InteriorPointSolver{MaxIter: 100, Tol: 1e-10, Reg: 1e-10}
}

// Solve implements Solver.
func (s *InteriorPointSolver) Solve(p *mat.Dense, q []float64, g *mat.Dense, h []float64) (y, z []float64, err error) {
	maxIter := s.MaxIter
	if maxIter == 0 {
		maxIter = 100
	}
	tol := s.Tol
	if tol == 0 {
		tol = 1e-10
	}
	reg := s.Reg

	n := len(q)
	m := len(h)

	if m == 0 {
		// No inequality rows: the unconstrained stationarity condition
		// P y = -q determines y directly.
		y = make([]float64, n)
		var sol mat.Dense
		neg := make([]float64, n)
		floats.ScaleTo(neg, -1, q)
		b := mat.NewDense(n, 1, neg)
		if err := sol.Solve(p, b); err != nil {
			return nil, nil, err
		}
		for i := 0; i < n; i++ {
			y[i] = sol.At(i, 0)
		}
		return y, nil, nil
	}

	yk := make([]float64, n)
	sk := make([]float64, m)
	zk := make([]float64, m)
	for i := 0; i < m; i++ {
		sk[i] = math.Max(h[i], 1)
		zk[i] = 1
	}

	rd := make([]float64, n)
	rp := make([]float64, m)
	rc := make([]float64, m)

	gy := make([]float64, m)
	gtz := make([]float64, n)
	py := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		matVec(gy, g, yk)
		matVecT(gtz, g, zk)
		matVec(py, p, yk)
		for i := 0; i < n; i++ {
			rd[i] = py[i] + q[i] + gtz[i]
		}
		for i := 0; i < m; i++ {
			rp[i] = gy[i] + sk[i] - h[i]
			rc[i] = sk[i] * zk[i]
		}
		mu := floats.Sum(rc) / float64(m)

		rdNorm := floats.Norm(rd, 2)
		rpNorm := floats.Norm(rp, 2)
		if rdNorm/(1+floats.Norm(q, 2)) < tol && rpNorm/(1+floats.Norm(h, 2)) < tol && mu < tol {
			return yk, zk, nil
		}

		m1 := buildReduced(p, g, sk, zk, reg)

		_, dsAff, dzAff, err := solveStep(m1, p, g, rd, rp, rc, sk, zk)
		if err != nil {
			return nil, nil, err
		}
		alphaPAff := fractionToBoundary(sk, dsAff, 1.0)
		alphaDAff := fractionToBoundary(zk, dzAff, 1.0)

		muAff := 0.0
		for i := 0; i < m; i++ {
			muAff += (sk[i] + alphaPAff*dsAff[i]) * (zk[i] + alphaDAff*dzAff[i])
		}
		muAff /= float64(m)

		sigma := math.Pow(clamp(muAff/mu, 0, 1), 3)

		rcBar := make([]float64, m)
		for i := 0; i < m; i++ {
			rcBar[i] = rc[i] + dsAff[i]*dzAff[i] - sigma*mu
		}

		dy, ds, dz, err := solveStep(m1, p, g, rd, rp, rcBar, sk, zk)
		if err != nil {
			return nil, nil, err
		}

		alphaP := 0.995 * fractionToBoundary(sk, ds, 1.0)
		alphaD := 0.995 * fractionToBoundary(zk, dz, 1.0)
		alphaP = math.Min(alphaP, 1)
		alphaD = math.Min(alphaD, 1)

		for i := 0; i < n; i++ {
			yk[i] += alphaP * dy[i]
		}
		for i := 0; i < m; i++ {
			sk[i] += alphaP * ds[i]
			zk[i] += alphaD * dz[i]
		}
	}
	return nil, nil, ErrInfeasible
}

// buildReduced forms M = P + G^T diag(z/s) G + reg*I, the reduced KKT
// matrix left after eliminating ds and dz from the Newton system; its solve
// gives the Newton step in y.
func buildReduced(p, g *mat.Dense, s, z []float64, reg float64) *mat.Dense {
	m, n := g.Dims()
	d := make([]float64, m)
	for i := 0; i < m; i++ {
		d[i] = z[i] / s[i]
	}
	var scaledG mat.Dense
	scaledG.CloneFrom(g)
	for i := 0; i < m; i++ {
		row := scaledG.RawRowView(i)
		floats.Scale(d[i], row)
	}
	var gtdg mat.Dense
	gtdg.Mul(g.T(), &scaledG)

	out := mat.NewDense(n, n, nil)
	out.Add(p, &gtdg)
	for i := 0; i < n; i++ {
		out.Set(i, i, out.At(i, i)+reg)
	}
	return out
}

// solveStep solves the reduced system for a Newton direction given a
// complementarity target rcTarget (rc for the affine-scaling step, the
// Mehrotra-corrected rcBar for the combined step).
func solveStep(reduced, p, g *mat.Dense, rd, rp, rcTarget, s, z []float64) (dy, ds, dz []float64, err error) {
	m, n := g.Dims()

	rhs := make([]float64, n)
	gt := make([]float64, n)
	tmp := make([]float64, m)
	for i := 0; i < m; i++ {
		tmp[i] = (z[i]*rp[i] - rcTarget[i]) / s[i]
	}
	matVecT(gt, g, tmp)
	for i := 0; i < n; i++ {
		rhs[i] = -rd[i] - gt[i]
	}

	var sol mat.Dense
	b := mat.NewDense(n, 1, rhs)
	if err := sol.Solve(reduced, b); err != nil {
		return nil, nil, nil, err
	}
	dy = make([]float64, n)
	for i := 0; i < n; i++ {
		dy[i] = sol.At(i, 0)
	}

	gdy := make([]float64, m)
	matVec(gdy, g, dy)
	ds = make([]float64, m)
	dz = make([]float64, m)
	for i := 0; i < m; i++ {
		ds[i] = -rp[i] - gdy[i]
		dz[i] = (z[i]*rp[i]-rcTarget[i])/s[i] + (z[i]/s[i])*gdy[i]
	}
	return dy, ds, dz, nil
}

// fractionToBoundary returns min(cap, min_i{-v_i/dv_i : dv_i < 0}), the
// largest step length that keeps v + alpha*dv >= 0 (elementwise), or cap if
// no component of dv is negative.
func fractionToBoundary(v, dv []float64, cap float64) float64 {
	alpha := cap
	for i, d := range dv {
		if d < 0 {
			a := -v[i] / d
			if a < alpha {
				alpha = a
			}
		}
	}
	return alpha
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func matVec(dst []float64, a *mat.Dense, x []float64) {
	m, _ := a.Dims()
	for i := 0; i < m; i++ {
		dst[i] = floats.Dot(a.RawRowView(i), x)
	}
}

func matVecT(dst []float64, a *mat.Dense, z []float64) {
	_, n := a.Dims()
	for i := range dst {
		dst[i] = 0
	}
	m, _ := a.Dims()
	for i := 0; i < m; i++ {
		if z[i] == 0 {
			continue
		}
		row := a.RawRowView(i)
		for j := 0; j < n; j++ {
			dst[j] += z[i] * row[j]
		}
	}
}
