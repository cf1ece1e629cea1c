// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"errors"
	"fmt"
)

// ErrZeroDimensional signifies Solve was called with a zero-dimensional
// problem.
var ErrZeroDimensional = errors.New("ncopt: zero dimensional input")

// ErrQPFailed signifies the QP back-end could not produce a primal-dual
// optimum (infeasible, indefinite, or numerical breakdown).
var ErrQPFailed = errors.New("ncopt: QP solve failed")

// ErrInvariant signifies one of the algorithm's numerical invariants was
// violated, indicating a bug in the QP back-end or a numerical regression
// rather than a condition the driver can recover from.
var ErrInvariant = errors.New("ncopt: invariant violated")

// DimensionError signifies an oracle's declared input dimension does not
// match the problem dimension.
type DimensionError struct {
	Name string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("ncopt: %s has dimension %d, want %d", e.Name, e.Got, e.Want)
}

// SolveError wraps a fatal error from Solve with the iteration context in
// which it occurred, so a caller can tell a numerical regression at
// iteration 80 apart from one at iteration 2.
type SolveError struct {
	Iter int
	Rho  float64
	Eps  float64
	Err  error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("ncopt: iteration %d (rho=%g, eps=%g): %v", e.Iter, e.Rho, e.Eps, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through SolveError to the
// underlying sentinel.
func (e *SolveError) Unwrap() error { return e.Err }
