// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/xiaogaogaoxiao/ncOPT/qp"
)

// A Rosenbrock variant with a kink in the objective and a pointwise-max
// inequality: f(x) = 8|x0^2 - x1| + (1-x0)^2 subject to
// g(x) = max(sqrt2*x0, 2*x1) - 1 <= 0. Accepted optima cluster near
// (0.7071, 0.5) or the nearby (0.6498, 0.4223).
func TestRosenbrockKinkKnownOptima(t *testing.T) {
	sqrt2 := math.Sqrt2
	obj := Func{
		InputDim: 2,
		EvalFunc: func(x []float64) float64 {
			return 8*math.Abs(x[0]*x[0]-x[1]) + (1-x[0])*(1-x[0])
		},
		GradFunc: func(x []float64) []float64 {
			sign := 1.0
			if x[0]*x[0]-x[1] < 0 {
				sign = -1
			}
			return []float64{16*sign*x[0] - 2*(1-x[0]), -8 * sign}
		},
	}
	gfn := Func{
		InputDim: 2,
		EvalFunc: func(x []float64) float64 { return math.Max(sqrt2*x[0], 2*x[1]) - 1 },
		GradFunc: func(x []float64) []float64 {
			if sqrt2*x[0] >= 2*x[1] {
				return []float64{sqrt2, 0}
			}
			return []float64{0, 2}
		},
	}

	p := Problem{Obj: obj, Ineq: []Oracle{gfn}}
	settings := DefaultSettings()
	settings.Source = rand.New(rand.NewSource(42))

	res, err := Solve(p, []float64{-0.5, 1.5}, settings)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	opt1 := []float64{0.7071, 0.5}
	opt2 := []float64{0.6498, 0.4223}
	d1 := math.Hypot(res.X[0]-opt1[0], res.X[1]-opt1[1])
	d2 := math.Hypot(res.X[0]-opt2[0], res.X[1]-opt2[1])
	if d1 > 0.2 && d2 > 0.2 {
		t.Errorf("X = %v, want near %v or %v (status %v, E after %d iters)", res.X, opt1, opt2, res.Status, res.Stats.Iterations)
	}
}

// Minimize x0 on the unit circle: f(x) = x0, h(x) = x0^2+x1^2-1 = 0.
// Expect convergence near (-1, 0).
func TestPureEqualityConstraint(t *testing.T) {
	obj := Func{
		InputDim: 2,
		EvalFunc: func(x []float64) float64 { return x[0] },
		GradFunc: func(x []float64) []float64 { return []float64{1, 0} },
	}
	eq := Func{
		InputDim: 2,
		EvalFunc: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] - 1 },
		GradFunc: func(x []float64) []float64 { return []float64{2 * x[0], 2 * x[1]} },
	}

	p := Problem{Obj: obj, Eq: []Oracle{eq}}
	settings := DefaultSettings()
	settings.Source = rand.New(rand.NewSource(3))

	res, err := Solve(p, []float64{-0.5, 0.8}, settings)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(eq.Eval(res.X)) > 0.05 {
		t.Errorf("|h(x)| too large: x=%v, h=%v", res.X, eq.Eval(res.X))
	}
	if res.X[0] > -0.5 {
		t.Errorf("x0 = %v, want near -1", res.X[0])
	}
}

// f contains |x0|; the solver must not stall at the kink because the
// sample cloud straddles both sides of it.
func TestNondifferentiableAbs(t *testing.T) {
	obj := Func{
		InputDim: 1,
		EvalFunc: func(x []float64) float64 { return math.Abs(x[0]) + 0.1*x[0]*x[0] },
		GradFunc: func(x []float64) []float64 {
			if x[0] > 0 {
				return []float64{1 + 0.2*x[0]}
			} else if x[0] < 0 {
				return []float64{-1 + 0.2*x[0]}
			}
			return []float64{0.2 * x[0]}
		},
	}
	p := Problem{Obj: obj}
	settings := DefaultSettings()
	settings.Source = rand.New(rand.NewSource(17))

	res, err := Solve(p, []float64{0}, settings)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(res.X[0]) > 0.1 {
		t.Errorf("X = %v, want near 0", res.X)
	}
}

// Subproblem.solve is deterministic given fixed inputs.
func TestSubproblemReproducibility(t *testing.T) {
	sp1 := buildReproSubproblem()
	sp2 := buildReproSubproblem()

	if err := sp1.solve(); err != nil {
		t.Fatalf("solve sp1: %v", err)
	}
	if err := sp2.solve(); err != nil {
		t.Fatalf("solve sp2: %v", err)
	}
	for i := range sp1.D {
		if math.Abs(sp1.D[i]-sp2.D[i]) > 1e-8 {
			t.Errorf("D not reproducible: %v vs %v", sp1.D, sp2.D)
		}
	}
	if math.Abs(floats.Sum(sp1.LambdaF)-floats.Sum(sp2.LambdaF)) > 1e-8 {
		t.Errorf("LambdaF not reproducible: %v vs %v", sp1.LambdaF, sp2.LambdaF)
	}
}

func buildReproSubproblem() *Subproblem {
	sp := NewSubproblem(2, 1, 1, 1, []int{1}, []int{1}, qp.NewInteriorPointSolver())
	h := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	df := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	dgi := []*mat.Dense{mat.NewDense(2, 2, []float64{1, 1, 0.5, 0.5})}
	dge := []*mat.Dense{mat.NewDense(2, 2, []float64{1, -1, 0.5, -0.5})}
	sp.update(h, 1.5, df, dgi, dge, 0.2, []float64{-0.3}, []float64{0.1})
	return sp
}
