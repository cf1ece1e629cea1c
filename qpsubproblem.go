// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/xiaogaogaoxiao/ncOPT/qp"
)

// qpSolver is a local alias for the pluggable QP back-end contract, kept
// so the rest of this package does not need to import qp directly in
// every signature.
type qpSolver = qp.Solver

// Subproblem holds the static sparsity pattern of the per-iteration convex
// QP: variable layout y = (d, z, rI, rE), the "inG"/"inh" block that
// encodes the linearized merit constraints, and the "nonnegG"/"nonnegh"
// block that encodes rI, rE >= 0. update refreshes only the entries that
// change every iteration; solve calls the QP back-end and extracts the
// primal direction and per-oracle dual multipliers.
type Subproblem struct {
	dim, nI, nE int
	p0          int
	pI, pE      []int

	dimQP int

	p *mat.Dense
	q []float64

	inG, nonnegG *mat.Dense
	inh, nonnegh []float64

	solver qpSolver

	// Results of the most recent solve call.
	D        []float64
	Z        float64
	RI, RE   []float64
	LambdaF  []float64
	LambdaGI [][]float64
	LambdaGE [][]float64
}

// NewSubproblem builds the static QP structure for the given sizes.
func NewSubproblem(dim, nI, nE, p0 int, pI, pE []int, solver qpSolver) *Subproblem {
	if solver == nil {
		solver = qp.NewInteriorPointSolver()
	}
	sp := &Subproblem{
		dim: dim, nI: nI, nE: nE,
		p0: p0, pI: append([]int(nil), pI...), pE: append([]int(nil), pE...),
		solver: solver,
	}
	sp.dimQP = dim + 1 + nI + nE
	sp.initialize()
	return sp
}

// sumInt1pPrefix returns sum(1+x) over the first k entries of xs.
func sumInt1pPrefix(xs []int, k int) int {
	s := 0
	for i := 0; i < k; i++ {
		s += 1 + xs[i]
	}
	return s
}

func sumInt1p(xs []int) int {
	return sumInt1pPrefix(xs, len(xs))
}

func (sp *Subproblem) initialize() {
	n := sp.dimQP
	sp.p = mat.NewDense(n, n, nil)
	sp.q = make([]float64, n)

	si := sumInt1p(sp.pI)
	se := sumInt1p(sp.pE)
	rows := 1 + sp.p0 + si + 2*se

	sp.inG = mat.NewDense(rows, n, nil)
	sp.inh = make([]float64, rows)

	// block 1: (p0+1) rows enforce D_f.d - z <= -f_k; the -1 column for z
	// is static.
	for i := 0; i < sp.p0+1; i++ {
		sp.inG.Set(i, sp.dim, -1)
	}

	// block 2: SI rows enforce, per inequality j, D_gI[j].d - rI_j <= -gI_k_j
	for j := 0; j < sp.nI; j++ {
		start := sp.p0 + 1 + sumInt1pPrefix(sp.pI, j)
		for i := start; i < start+sp.pI[j]+1; i++ {
			sp.inG.Set(i, sp.dim+1+j, -1)
		}
	}

	// blocks 3+4: together enforce |D_gE[l].d + gE_k_l| via a +/- pair.
	for l := 0; l < sp.nE; l++ {
		startPos := sp.p0 + 1 + si + sumInt1pPrefix(sp.pE, l)
		startNeg := sp.p0 + 1 + si + se + sumInt1pPrefix(sp.pE, l)
		for i := startPos; i < startPos+sp.pE[l]+1; i++ {
			sp.inG.Set(i, sp.dim+1+sp.nI+l, -1)
		}
		for i := startNeg; i < startNeg+sp.pE[l]+1; i++ {
			sp.inG.Set(i, sp.dim+1+sp.nI+l, -1)
		}
	}

	// nonnegativity block: rI, rE >= 0, encoded as -rI <= 0, -rE <= 0.
	// Absent entirely when there are no constraints.
	if nr := sp.nI + sp.nE; nr > 0 {
		sp.nonnegG = mat.NewDense(nr, n, nil)
		sp.nonnegh = make([]float64, nr)
		for i := 0; i < nr; i++ {
			sp.nonnegG.Set(i, sp.dim+1+i, -1)
		}
	}
}

// update refreshes the entries of P, q, inG and inh that change every
// iteration: the Hessian block of P, the objective weight in q, the
// gradient columns of inG, and the right-hand side inh. The -1 columns
// placing z, rI and rE, and the nonnegativity block, are set once at
// construction.
func (sp *Subproblem) update(h *mat.Dense, rho float64, df *mat.Dense, dgi, dge []*mat.Dense, fk float64, gik, gek []float64) {
	for i := 0; i < sp.dim; i++ {
		for j := 0; j < sp.dim; j++ {
			sp.p.Set(i, j, h.At(i, j))
		}
	}

	sp.q[sp.dim] = rho
	for j := 0; j < sp.nI; j++ {
		sp.q[sp.dim+1+j] = 1
	}
	for l := 0; l < sp.nE; l++ {
		sp.q[sp.dim+1+sp.nI+l] = 1
	}

	setRows(sp.inG, 0, sp.dim, df)
	for i := 0; i < sp.p0+1; i++ {
		sp.inh[i] = -fk
	}

	si := sumInt1p(sp.pI)
	se := sumInt1p(sp.pE)

	for j := 0; j < sp.nI; j++ {
		start := sp.p0 + 1 + sumInt1pPrefix(sp.pI, j)
		setRows(sp.inG, start, sp.dim, dgi[j])
		for i := start; i < start+sp.pI[j]+1; i++ {
			sp.inh[i] = -gik[j]
		}
	}

	for l := 0; l < sp.nE; l++ {
		startPos := sp.p0 + 1 + si + sumInt1pPrefix(sp.pE, l)
		startNeg := sp.p0 + 1 + si + se + sumInt1pPrefix(sp.pE, l)
		setRowsNeg(sp.inG, startPos, sp.dim, dge[l], 1)
		setRowsNeg(sp.inG, startNeg, sp.dim, dge[l], -1)
		for i := startPos; i < startPos+sp.pE[l]+1; i++ {
			sp.inh[i] = -gek[l]
		}
		for i := startNeg; i < startNeg+sp.pE[l]+1; i++ {
			sp.inh[i] = gek[l]
		}
	}
}

// setRows copies src into dst starting at row rowOff, columns [0, cols).
func setRows(dst *mat.Dense, rowOff, cols int, src *mat.Dense) {
	n, _ := src.Dims()
	for i := 0; i < n; i++ {
		row := src.RawRowView(i)
		for j := 0; j < cols; j++ {
			dst.Set(rowOff+i, j, row[j])
		}
	}
}

// setRowsNeg is setRows scaled by sign, used for the +D_gE/-D_gE pair that
// encodes an absolute value via two inequalities.
func setRowsNeg(dst *mat.Dense, rowOff, cols int, src *mat.Dense, sign float64) {
	n, _ := src.Dims()
	for i := 0; i < n; i++ {
		row := src.RawRowView(i)
		for j := 0; j < cols; j++ {
			dst.Set(rowOff+i, j, sign*row[j])
		}
	}
}

// solve calls the QP back-end, splits the primal optimum into (d, z, rI,
// rE), and slices the inequality duals per oracle, combining the +/- pair
// for each equality constraint into one signed multiplier vector.
func (sp *Subproblem) solve() error {
	g := sp.inG
	hvec := sp.inh
	if sp.nonnegG != nil {
		rows := sp.inG.RawMatrix().Rows + sp.nonnegG.RawMatrix().Rows
		stacked := mat.NewDense(rows, sp.dimQP, nil)
		stacked.Stack(sp.inG, sp.nonnegG)
		g = stacked
		hvec = append(append([]float64(nil), sp.inh...), sp.nonnegh...)
	}

	y, z, err := sp.solver.Solve(sp.p, sp.q, g, hvec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrQPFailed, err)
	}

	sp.D = append([]float64(nil), y[:sp.dim]...)
	sp.Z = y[sp.dim]
	sp.RI = append([]float64(nil), y[sp.dim+1:sp.dim+1+sp.nI]...)
	sp.RE = append([]float64(nil), y[sp.dim+1+sp.nI:]...)

	for _, v := range sp.RI {
		if v < -1e-5 {
			return ErrInvariant
		}
	}
	for _, v := range sp.RE {
		if v < -1e-5 {
			return ErrInvariant
		}
	}

	sp.LambdaF = append([]float64(nil), z[:sp.p0+1]...)

	si := sumInt1p(sp.pI)
	se := sumInt1p(sp.pE)

	sp.LambdaGI = make([][]float64, sp.nI)
	for j := 0; j < sp.nI; j++ {
		start := sp.p0 + 1 + sumInt1pPrefix(sp.pI, j)
		sp.LambdaGI[j] = append([]float64(nil), z[start:start+sp.pI[j]+1]...)
	}

	sp.LambdaGE = make([][]float64, sp.nE)
	for l := 0; l < sp.nE; l++ {
		startPos := sp.p0 + 1 + si + sumInt1pPrefix(sp.pE, l)
		startNeg := sp.p0 + 1 + si + se + sumInt1pPrefix(sp.pE, l)
		pos := z[startPos : startPos+sp.pE[l]+1]
		neg := z[startNeg : startNeg+sp.pE[l]+1]
		signed := make([]float64, sp.pE[l]+1)
		for i := range signed {
			signed[i] = pos[i] - neg[i]
		}
		sp.LambdaGE[l] = signed
	}

	if sumFloats(sp.LambdaF)-sp.rhoAtLastUpdate() > 1e-6 || sp.rhoAtLastUpdate()-sumFloats(sp.LambdaF) > 1e-6 {
		return ErrInvariant
	}
	return nil
}

func (sp *Subproblem) rhoAtLastUpdate() float64 {
	return sp.q[sp.dim]
}

func sumFloats(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
