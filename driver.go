// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/xiaogaogaoxiao/ncOPT/qp"
)

// Solve runs the SQP-GS driver on p starting from x0. settings may be
// nil, in which case DefaultSettings() is used.
//
// Each iteration samples gradient clouds around the current iterate,
// solves the convex quadratic subproblem for a candidate direction, and
// either takes an Armijo-damped step (refreshing the BFGS Hessian
// approximation) or shrinks the sampling radius and penalty parameters in
// place.
func Solve(p Problem, x0 []float64, settings *Settings) (*Result, error) {
	if settings == nil {
		settings = DefaultSettings()
	}

	dim := p.dim()
	if dim == 0 {
		return nil, ErrZeroDimensional
	}
	if err := checkOracleDim(p.Obj, dim, "objective"); err != nil {
		return nil, err
	}
	for j, g := range p.Ineq {
		if err := checkOracleDim(g, dim, fmt.Sprintf("inequality[%d]", j)); err != nil {
			return nil, err
		}
	}
	for l, g := range p.Eq {
		if err := checkOracleDim(g, dim, fmt.Sprintf("equality[%d]", l)); err != nil {
			return nil, err
		}
	}

	nI := len(p.Ineq)
	nE := len(p.Eq)
	pI := settings.pi(nI)
	pE := settings.pe(nE)

	src := settings.Source
	if src == nil {
		src = rand.New(rand.NewSource(1))
	}
	sampler := NewSampler(src)

	solver := settings.QPSolver
	if solver == nil {
		solver = qp.NewInteriorPointSolver()
	}
	sub := NewSubproblem(dim, nI, nE, settings.P0, pI, pE, solver)

	var out *printer
	if settings.Verbose {
		out = newPrinter(settings.Output)
	}

	x := append([]float64(nil), x0...)
	var xPrev, gPrev []float64
	haveHistory := false

	window := newCurvatureWindow(settings.IterH)
	h := identityDense(dim)

	eps := settings.InitEps
	rho := settings.InitRho
	theta := settings.InitTheta
	ek := math.Inf(1)

	rows := make([][]float64, 0, settings.MaxIter)
	status := MaxIterations
	stats := Stats{}

	var prevStep *bool

	for iter := 0; iter < settings.MaxIter; iter++ {
		if ek <= settings.Tol {
			status = Optimal
			break
		}
		stats.Iterations++

		bundle := buildSampleBundle(p, x, sampler, eps, settings.P0, pI, pE)

		sub.update(h, rho, bundle.df, bundle.dgi, bundle.dge, bundle.fk, bundle.gik, bundle.gek)
		if err := sub.solve(); err != nil {
			return nil, &SolveError{Iter: iter, Rho: rho, Eps: eps, Err: err}
		}

		gk := aggregateSubgradient(sub, bundle, dim)

		vk := violationSum(bundle.gik, bundle.gek)
		phik := rho*bundle.fk + vk
		qd := modelValue(sub.D, rho, h, bundle.fk, bundle.gik, bundle.gek, bundle.df, bundle.dgi, bundle.dge)
		deltaQ := phik - qd
		if deltaQ < -1e-5 {
			return nil, &SolveError{Iter: iter, Rho: rho, Eps: eps, Err: ErrInvariant}
		}

		if out != nil {
			out.record(iter, bundle.fk, maxOrNegInf(bundle.gik), ek, prevStep)
		}

		ek = math.Min(ek, stoppingEstimator(p, gk, bundle, sub))

		took := deltaQ > settings.Nu*eps*eps
		prevStep = &took
		if took {
			stats.StepIters++
			alpha := armijoLineSearch(p, x, sub.D, rho, phik, deltaQ, settings.Eta, settings.Gamma, settings.ArmijoMaxHalvings)

			if haveHistory {
				s := make([]float64, dim)
				y := make([]float64, dim)
				floats.SubTo(s, x, xPrev)
				floats.SubTo(y, gk, gPrev)
				window.push(s, y)
				h = window.rebuildHessian(dim, eps, settings.XiS, settings.XiY, settings.XiSY)
				if maxAsymmetry(h) > 1e-8 {
					return nil, &SolveError{Iter: iter, Rho: rho, Eps: eps, Err: ErrInvariant}
				}
			}

			xPrev = append([]float64(nil), x...)
			gPrev = append([]float64(nil), gk...)
			haveHistory = true

			for i := range x {
				x[i] += alpha * sub.D[i]
			}
		} else {
			stats.NoStepIters++
			if vk <= theta {
				theta *= settings.BetaTheta
			} else {
				rho *= settings.BetaRho
			}
			eps *= settings.BetaEps
		}

		rows = append(rows, append([]float64(nil), x...))
	}

	var history *mat.Dense
	if len(rows) > 0 {
		history = mat.NewDense(len(rows), dim, nil)
		for i, r := range rows {
			history.SetRow(i, r)
		}
	}

	return &Result{
		X:          x,
		History:    history,
		Status:     status,
		Stats:      stats,
		Subproblem: sub,
	}, nil
}

func identityDense(dim int) *mat.Dense {
	h := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		h.Set(i, i, 1)
	}
	return h
}

// aggregateSubgradient computes g_k = lambda_f^T D_f + sum_j
// lambda_gI[j]^T D_gI[j] + sum_l lambda_gE[l]^T D_gE[l], the
// dual-weighted combination of all sampled gradients. It feeds both the
// stopping estimator and the BFGS curvature pairs.
func aggregateSubgradient(sub *Subproblem, b *sampleBundle, dim int) []float64 {
	g := make([]float64, dim)
	addWeighted(g, sub.LambdaF, b.df)
	for j := range sub.LambdaGI {
		addWeighted(g, sub.LambdaGI[j], b.dgi[j])
	}
	for l := range sub.LambdaGE {
		addWeighted(g, sub.LambdaGE[l], b.dge[l])
	}
	return g
}

func addWeighted(dst []float64, weights []float64, rows *mat.Dense) {
	n, dim := rows.Dims()
	for i := 0; i < n; i++ {
		w := weights[i]
		if w == 0 {
			continue
		}
		row := rows.RawRowView(i)
		for d := 0; d < dim; d++ {
			dst[d] += w * row[d]
		}
	}
}

// violationSum returns v_k = sum_j max(gI_k_j, 0) + sum_l |gE_k_l|.
func violationSum(gik, gek []float64) float64 {
	var v float64
	for _, g := range gik {
		v += math.Max(g, 0)
	}
	for _, h := range gek {
		v += math.Abs(h)
	}
	return v
}

// stoppingEstimator computes the candidate stationarity residual M; the
// caller takes the running min against the previous E_k. M is the largest
// of the aggregated subgradient's infinity norm, the worst constraint
// violation at x_k, and the complementary-slackness residuals
// lambda_gI[j]_i * gI_j(B_gI[j][i]) and lambda_gE[l]_i * gE_l(B_gE[l][i])
// evaluated at every sample row the subproblem's duals were built from.
func stoppingEstimator(p Problem, gk []float64, b *sampleBundle, sub *Subproblem) float64 {
	m := floats.Norm(gk, math.Inf(1))
	m = math.Max(m, maxOrNegInf(b.gik))
	m = math.Max(m, maxAbsOrNegInf(b.gek))

	for j, lam := range sub.LambdaGI {
		n, _ := b.bgi[j].Dims()
		for i := 0; i < n; i++ {
			v := lam[i] * p.Ineq[j].Eval(b.bgi[j].RawRowView(i))
			m = math.Max(m, v)
		}
	}
	for l, lam := range sub.LambdaGE {
		n, _ := b.bge[l].Dims()
		for i := 0; i < n; i++ {
			v := lam[i] * p.Eq[l].Eval(b.bge[l].RawRowView(i))
			m = math.Max(m, v)
		}
	}
	return m
}

func maxOrNegInf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func maxAbsOrNegInf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		v := math.Abs(x)
		if v > m {
			m = v
		}
	}
	return m
}

// armijoLineSearch backtracks alpha from 1 until the sufficient-decrease
// condition phi_rho(x+alpha*d) <= phi_k - eta*alpha*deltaQ holds, or the
// safety cap on halvings is reached.
func armijoLineSearch(p Problem, x, d []float64, rho, phik, deltaQ, eta, gamma float64, maxHalvings int) float64 {
	alpha := 1.0
	xTrial := make([]float64, len(x))
	for i := 0; i < maxHalvings; i++ {
		for j := range xTrial {
			xTrial[j] = x[j] + alpha*d[j]
		}
		if penaltyValue(p, xTrial, rho) <= phik-eta*alpha*deltaQ {
			return alpha
		}
		alpha *= gamma
	}
	return alpha
}
