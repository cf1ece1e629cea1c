// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"io"
	"os"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Problem describes the optimization problem to be solved: minimize Obj
// subject to Ineq[j](x) <= 0 and Eq[l](x) == 0. All oracles must share the
// same input dimension, which becomes the problem's Dim.
type Problem struct {
	Obj  Oracle
	Ineq []Oracle
	Eq   []Oracle
}

func (p Problem) dim() int {
	return p.Obj.Dim()
}

// Status is the terminal state of a Solve call.
type Status int

const (
	// NotOptimal is the zero value, reported only on results that were
	// never run to completion (it should not appear in a returned Result).
	NotOptimal Status = iota
	// Optimal indicates the stationarity estimate E_k dropped to or below
	// the requested tolerance.
	Optimal
	// MaxIterations indicates the iteration budget was exhausted before
	// the tolerance was met.
	MaxIterations
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case MaxIterations:
		return "max-iterations"
	default:
		return "not-optimal"
	}
}

// Settings holds the tunable constants of the SQP-GS driver. Use
// DefaultSettings to obtain the standard constants, then override
// individual fields.
type Settings struct {
	// Tol is the stationarity tolerance that triggers Optimal status.
	Tol float64
	// MaxIter bounds the number of outer iterations.
	MaxIter int

	// InitEps, InitRho, InitTheta are the initial sampling radius,
	// objective penalty weight and feasibility threshold.
	InitEps, InitRho, InitTheta float64

	// P0 is the number of extra samples (beyond x_k) used for the
	// objective. PI and PE give the extra sample counts per inequality
	// and equality constraint; a nil entry falls back to the defaults
	// below (3 and 4 respectively).
	P0                   int
	PI, PE               []int
	DefaultPI, DefaultPE int

	// Eta, Gamma parametrize the Armijo sufficient-decrease line search.
	Eta, Gamma float64

	// BetaEps, BetaRho, BetaTheta shrink eps, rho and theta on
	// no-step iterations.
	BetaEps, BetaRho, BetaTheta float64

	// Nu gates whether a computed direction is accepted as a step.
	Nu float64

	// IterH is the depth of the BFGS curvature-pair window.
	IterH int
	// XiS, XiY, XiSY gate which curvature pairs are accepted into H.
	XiS, XiY, XiSY float64

	// ArmijoMaxHalvings caps the Armijo backtracking loop as a safety net
	// against non-termination in floating point.
	ArmijoMaxHalvings int

	// QPSolver is the convex QP back-end used by the subproblem. A nil
	// value falls back to qp.NewInteriorPointSolver().
	QPSolver qpSolver

	// Source is the random source driving the gradient-sampling cloud. A
	// nil value gives each Solve call its own new source seeded with 1, so
	// concurrent Solve calls never share RNG state; such calls all draw the
	// same stream.
	Source *rand.Rand

	// Verbose enables the iter/f/maxG/E_k/step progress table.
	Verbose bool
	// Output receives the verbose table; it defaults to os.Stdout.
	Output io.Writer
}

// DefaultSettings returns the standard SQP-GS constants.
func DefaultSettings() *Settings {
	return &Settings{
		Tol:               1e-8,
		MaxIter:           100,
		InitEps:           1e-1,
		InitRho:           1e-1,
		InitTheta:         1e-1,
		P0:                2,
		DefaultPI:         3,
		DefaultPE:         4,
		Eta:               1e-8,
		Gamma:             0.5,
		BetaEps:           0.5,
		BetaRho:           0.5,
		BetaTheta:         0.8,
		Nu:                10,
		IterH:             10,
		XiS:               1e3,
		XiY:               1e3,
		XiSY:              1e-6,
		ArmijoMaxHalvings: 60,
		Output:            os.Stdout,
	}
}

func (s *Settings) pi(nI int) []int {
	out := make([]int, nI)
	for i := range out {
		if s.PI != nil && i < len(s.PI) {
			out[i] = s.PI[i]
		} else {
			out[i] = s.DefaultPI
		}
	}
	return out
}

func (s *Settings) pe(nE int) []int {
	out := make([]int, nE)
	for i := range out {
		if s.PE != nil && i < len(s.PE) {
			out[i] = s.PE[i]
		} else {
			out[i] = s.DefaultPE
		}
	}
	return out
}

// Result is the outcome of a Solve call.
type Result struct {
	// X is the final iterate.
	X []float64
	// History has one row per iteration (after the step decision), X's
	// dimension columns wide. It is nil if no iterations ran.
	History *mat.Dense
	// Status is the termination status.
	Status Status
	// Stats records iteration counts.
	Stats Stats
	// Subproblem is the last-solved subproblem snapshot (direction and
	// dual multipliers), useful for diagnostics.
	Subproblem *Subproblem
}

// Stats records how much work a Solve call performed.
type Stats struct {
	Iterations  int
	StepIters   int
	NoStepIters int
}
