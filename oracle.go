// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

// Oracle is the evaluation contract an objective or a constraint must
// satisfy. Eval and Grad must not retain or modify x.
//
// For points where the underlying function is not differentiable, Grad may
// return any Clarke subgradient; the solver does not require a specific
// choice and samples a cloud of nearby points to approximate the
// subdifferential instead.
type Oracle interface {
	// Dim is the input dimension the oracle accepts.
	Dim() int
	// Eval returns the oracle's value at x.
	Eval(x []float64) float64
	// Grad returns a (sub)gradient of the oracle at x.
	Grad(x []float64) []float64
}

// Differentiable is an optional capability an Oracle may implement to
// report, for diagnostic purposes, whether it is differentiable at a given
// point. The solver never branches on it; it exists for callers that want
// to inspect where nonsmoothness was encountered along a solve.
type Differentiable interface {
	Differentiable(x []float64) bool
}

// Func adapts plain closures to the Oracle interface, the way gonum's
// optimize.Problem adapts bare Func/Grad fields rather than forcing an
// interface on simple analytic test functions.
type Func struct {
	InputDim int
	EvalFunc func(x []float64) float64
	GradFunc func(x []float64) []float64
}

var _ Oracle = Func{}

// Dim returns the declared input dimension.
func (f Func) Dim() int { return f.InputDim }

// Eval calls the wrapped evaluation closure.
func (f Func) Eval(x []float64) float64 { return f.EvalFunc(x) }

// Grad calls the wrapped gradient closure.
func (f Func) Grad(x []float64) []float64 { return f.GradFunc(x) }

// DiffFunc wraps a Func with a Differentiable predicate, for oracles such
// as pointwise maxima where the nonsmooth set is known analytically. It
// only implements the optional Differentiable interface when constructed
// this way; a plain Func never does.
type DiffFunc struct {
	Func
	DiffPredicate func(x []float64) bool
}

var (
	_ Oracle         = DiffFunc{}
	_ Differentiable = DiffFunc{}
)

// Differentiable reports whether the wrapped function is differentiable at x.
func (f DiffFunc) Differentiable(x []float64) bool { return f.DiffPredicate(x) }

func checkOracleDim(o Oracle, dim int, name string) error {
	if o.Dim() != dim {
		return &DimensionError{Name: name, Want: dim, Got: o.Dim()}
	}
	return nil
}
