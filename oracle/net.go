// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package oracle provides concrete Oracle implementations (ncopt.Oracle)
// for use as objectives or constraints, beyond the simple closures a
// caller can build inline with ncopt.Func.
package oracle

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FeedForwardNet is a fully connected feedforward network with ReLU
// activations on every hidden layer and a linear output layer, evaluated
// and differentiated (w.r.t. its input, not its weights) by hand rather
// than through reverse-mode autodiff: the piecewise-linear structure of a
// ReLU net makes the chain rule a direct matrix product at each layer, so
// no autodiff dependency is needed for the depths this package targets.
//
// FeedForwardNet implements ncopt.Oracle (Dim, Eval, Grad) and
// ncopt.Differentiable (it reports non-differentiability exactly at
// inputs where some hidden unit's pre-activation is zero).
type FeedForwardNet struct {
	Weights []*mat.Dense // Weights[l] has shape (out_l, in_l)
	Biases  [][]float64  // Biases[l] has length out_l

	// Standardization applied to the raw input before the first layer:
	// (x - Mean) / Std, elementwise. Zero-value Mean/Std (nil) means no
	// standardization.
	Mean, Std []float64
}

// NewFeedForwardNet builds a network with the given layer sizes (including
// input and output dimensions) and zero weights; callers fill in Weights
// and Biases, e.g. from a trained checkpoint, before use.
func NewFeedForwardNet(sizes []int) *FeedForwardNet {
	n := &FeedForwardNet{
		Weights: make([]*mat.Dense, len(sizes)-1),
		Biases:  make([][]float64, len(sizes)-1),
	}
	for l := 0; l < len(sizes)-1; l++ {
		n.Weights[l] = mat.NewDense(sizes[l+1], sizes[l], nil)
		n.Biases[l] = make([]float64, sizes[l+1])
	}
	return n
}

// Standardize sets Mean and Std from the columns of data (one row per
// sample), the usual z-scoring applied to training data before fitting a
// network.
func (n *FeedForwardNet) Standardize(data *mat.Dense) {
	rows, cols := data.Dims()
	n.Mean = make([]float64, cols)
	n.Std = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		mean, std := stat.MeanStdDev(col, nil)
		n.Mean[j] = mean
		if std == 0 {
			std = 1
		}
		n.Std[j] = std
	}
}

func (n *FeedForwardNet) Dim() int {
	if len(n.Weights) == 0 {
		return 0
	}
	_, in := n.Weights[0].Dims()
	return in
}

func (n *FeedForwardNet) standardized(x []float64) []float64 {
	if n.Mean == nil {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - n.Mean[i]) / n.Std[i]
	}
	return out
}

// forward returns the pre-activations and activations at every layer, with
// layer 0's activation being the (standardized) input.
func (n *FeedForwardNet) forward(x []float64) (pre [][]float64, act [][]float64) {
	act = make([][]float64, len(n.Weights)+1)
	pre = make([][]float64, len(n.Weights))
	act[0] = n.standardized(x)

	for l, w := range n.Weights {
		out, _ := w.Dims()
		z := make([]float64, out)
		for i := 0; i < out; i++ {
			z[i] = n.Biases[l][i]
			row := w.RawRowView(i)
			for j, v := range act[l] {
				z[i] += row[j] * v
			}
		}
		pre[l] = z
		a := make([]float64, out)
		isLast := l == len(n.Weights)-1
		for i, v := range z {
			if isLast || v > 0 {
				a[i] = v
			}
		}
		act[l+1] = a
	}
	return pre, act
}

// Eval implements ncopt.Oracle. The network is treated as scalar-valued:
// the output layer must have exactly one unit.
func (n *FeedForwardNet) Eval(x []float64) float64 {
	_, act := n.forward(x)
	return act[len(act)-1][0]
}

// Grad implements ncopt.Oracle via manual reverse-mode backpropagation
// through the stored forward pass: at a ReLU kink (pre-activation exactly
// zero) the subgradient 0 is chosen, one valid element of the Clarke
// subdifferential.
func (n *FeedForwardNet) Grad(x []float64) []float64 {
	pre, act := n.forward(x)
	L := len(n.Weights)

	delta := []float64{1}
	for l := L - 1; l >= 0; l-- {
		in := len(act[l])
		back := make([]float64, in)
		w := n.Weights[l]
		for j := 0; j < in; j++ {
			var s float64
			for i := 0; i < len(delta); i++ {
				s += delta[i] * w.At(i, j)
			}
			back[j] = s
		}
		if l > 0 {
			for j := range back {
				if pre[l-1][j] <= 0 {
					back[j] = 0
				}
			}
		}
		delta = back
	}

	if n.Std == nil {
		return delta
	}
	g := make([]float64, len(delta))
	for i, v := range delta {
		g[i] = v / n.Std[i]
	}
	return g
}

// Differentiable implements ncopt.Differentiable: x is a non-differentiable
// point iff some hidden unit's pre-activation lands exactly on the ReLU
// kink at 0.
func (n *FeedForwardNet) Differentiable(x []float64) bool {
	pre, _ := n.forward(x)
	for l := 0; l < len(pre)-1; l++ {
		for _, v := range pre[l] {
			if v == 0 {
				return false
			}
		}
	}
	return true
}
