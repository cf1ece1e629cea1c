// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ncopt implements Sequential Quadratic Programming with Gradient
// Sampling (SQP-GS), a method for constrained nonsmooth, nonconvex
// optimization problems
//
//	minimize    f(x)
//	subject to  g_j(x) <= 0,  j = 1..nI
//	            h_l(x) == 0,  l = 1..nE
//
// where f, g_j and h_l are locally Lipschitz functions that may fail to be
// differentiable on a set of measure zero (pointwise maxima, absolute
// values, ReLU networks, ...).
//
// At every iterate the solver samples gradients at the current point and at
// a cloud of random points in a shrinking ball around it, assembles a convex
// quadratic subproblem (package qp) whose solution is a descent direction
// for an L1 exact-penalty merit function, and advances along that direction
// with an Armijo line search. The Hessian approximation is refreshed with a
// windowed BFGS update and the sampling radius, penalty weight and
// feasibility threshold are driven to zero as iterations proceed.
//
// The caller supplies the objective and constraints through the Oracle
// interface; the QP back-end is pluggable through the qp.Solver interface,
// with qp.NewInteriorPointSolver as the built-in default.
package ncopt
