// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

// quadratic returns an oracle for f(x) = sum x_i^2.
func quadratic(dim int) Oracle {
	return Func{
		InputDim: dim,
		EvalFunc: func(x []float64) float64 { return floats.Dot(x, x) },
		GradFunc: func(x []float64) []float64 {
			g := make([]float64, len(x))
			floats.AddScaled(g, 2, x)
			return g
		},
	}
}

func TestSolveUnconstrainedQuadratic(t *testing.T) {
	p := Problem{Obj: quadratic(2)}
	settings := DefaultSettings()
	settings.Source = rand.New(rand.NewSource(11))

	res, err := Solve(p, []float64{3, -2}, settings)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != Optimal && res.Status != MaxIterations {
		t.Fatalf("Status = %v", res.Status)
	}
	if floats.Norm(res.X, 2) > 0.1 {
		t.Errorf("X = %v, want near the origin", res.X)
	}
}

func TestSolveEmptyConstraintListsHandleDuals(t *testing.T) {
	p := Problem{Obj: quadratic(3)}
	settings := DefaultSettings()
	settings.MaxIter = 20
	settings.Source = rand.New(rand.NewSource(5))

	res, err := Solve(p, []float64{1, 1, 1}, settings)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(res.Subproblem.LambdaGI) != 0 || len(res.Subproblem.LambdaGE) != 0 {
		t.Errorf("expected empty dual lists for an unconstrained problem")
	}
}

func TestSolveDimensionMismatch(t *testing.T) {
	obj := quadratic(2)
	badIneq := Func{InputDim: 3, EvalFunc: func(x []float64) float64 { return 0 }, GradFunc: func(x []float64) []float64 { return make([]float64, 3) }}
	p := Problem{Obj: obj, Ineq: []Oracle{badIneq}}

	_, err := Solve(p, []float64{0, 0}, nil)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("err = %v, want *DimensionError", err)
	}
}

func TestSolveZeroDimensional(t *testing.T) {
	p := Problem{Obj: Func{InputDim: 0, EvalFunc: func(x []float64) float64 { return 0 }, GradFunc: func(x []float64) []float64 { return nil }}}
	_, err := Solve(p, nil, nil)
	if !errors.Is(err, ErrZeroDimensional) {
		t.Fatalf("err = %v, want ErrZeroDimensional", err)
	}
}

func TestSolveHistoryShape(t *testing.T) {
	p := Problem{Obj: quadratic(2)}
	settings := DefaultSettings()
	settings.MaxIter = 5
	settings.Tol = -1 // force all MaxIter iterations to run
	settings.Source = rand.New(rand.NewSource(9))

	res, err := Solve(p, []float64{5, 5}, settings)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	rows, cols := res.History.Dims()
	if cols != 2 {
		t.Errorf("History cols = %d, want 2", cols)
	}
	if rows != res.Stats.Iterations {
		t.Errorf("History rows = %d, want %d (Stats.Iterations)", rows, res.Stats.Iterations)
	}
	if res.Status != MaxIterations {
		t.Errorf("Status = %v, want MaxIterations", res.Status)
	}
}

func TestSolveVerboseWritesTable(t *testing.T) {
	p := Problem{Obj: quadratic(2)}
	settings := DefaultSettings()
	settings.MaxIter = 3
	settings.Verbose = true
	var buf recordingWriter
	settings.Output = &buf
	settings.Source = rand.New(rand.NewSource(2))

	if _, err := Solve(p, []float64{1, 1}, settings); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if buf.n == 0 {
		t.Errorf("expected verbose output, got none")
	}
}

type recordingWriter struct{ n int }

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	return len(p), nil
}

func TestArmijoLineSearchAcceptsFullStep(t *testing.T) {
	p := Problem{Obj: quadratic(2)}
	d := []float64{-1, -1}
	x := []float64{2, 2}
	phik := penaltyValue(p, x, 1)
	alpha := armijoLineSearch(p, x, d, 1, phik, 1, 1e-8, 0.5, 60)
	if alpha != 1 {
		t.Errorf("alpha = %v, want 1 for a strongly descending direction", alpha)
	}
}

func TestArmijoLineSearchBacktracks(t *testing.T) {
	p := Problem{Obj: quadratic(2)}
	// An ascent direction forces backtracking, never satisfied at alpha=1.
	d := []float64{10, 10}
	x := []float64{1, 1}
	phik := penaltyValue(p, x, 1)
	alpha := armijoLineSearch(p, x, d, 1, phik, -1e-9, 1e-8, 0.5, 10)
	if alpha >= 1 {
		t.Errorf("alpha = %v, want backtracked below 1", alpha)
	}
	if math.IsNaN(alpha) {
		t.Errorf("alpha is NaN")
	}
}
