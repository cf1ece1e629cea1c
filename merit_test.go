// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPenaltyValue(t *testing.T) {
	obj := Func{InputDim: 2, EvalFunc: func(x []float64) float64 { return x[0] + x[1] }}
	ineq := Func{InputDim: 2, EvalFunc: func(x []float64) float64 { return x[0] - 1 }}
	eq := Func{InputDim: 2, EvalFunc: func(x []float64) float64 { return x[1] }}

	p := Problem{Obj: obj, Ineq: []Oracle{ineq}, Eq: []Oracle{eq}}
	got := penaltyValue(p, []float64{2, -3}, 2)
	// rho*f + max(g,0) + |h| = 2*(-1) + max(1,0) + 3 = -2 + 1 + 3 = 2.
	if math.Abs(got-2) > 1e-12 {
		t.Errorf("penaltyValue = %v, want 2", got)
	}
}

func TestModelValueMatchesDirectEvaluation(t *testing.T) {
	h := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	df := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	dgi := []*mat.Dense{mat.NewDense(1, 2, []float64{1, 1})}
	dge := []*mat.Dense{mat.NewDense(1, 2, []float64{1, -1})}

	d := []float64{1, 2}
	got := modelValue(d, 3, h, 0.5, []float64{-0.5}, []float64{0.25}, df, dgi, dge)

	// termF = rho*(fk + max_i(D_f_i . d)) = 3*(0.5+max(1,2)) = 3*2.5 = 7.5
	// termI = max(gik+D_gi.d, 0) = max(-0.5+3, 0) = 2.5
	// termE = |gek+D_ge.d| = |0.25+(1-2)| = |-0.75| = 0.75
	// termH = 0.5*d^T H d = 0.5*(2*1+2*4) = 5
	want := 7.5 + 2.5 + 0.75 + 5
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("modelValue = %v, want %v", got, want)
	}
}
