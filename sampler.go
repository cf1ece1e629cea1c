// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws points uniformly distributed in an open eps-ball around a
// center. A Sampler is not safe for concurrent use; give each concurrent
// solve its own Sampler (and its own *rand.Rand).
type Sampler struct {
	normal  distuv.Normal
	uniform distuv.Uniform
}

// NewSampler builds a Sampler drawing from src. A nil src creates a new
// source seeded with 1.
func NewSampler(src *rand.Rand) *Sampler {
	if src == nil {
		src = rand.New(rand.NewSource(1))
	}
	return &Sampler{
		normal:  distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
}

// Sample returns an N x dim matrix whose rows are drawn uniformly from the
// open eps-ball centered at x.
//
// Draw U as an N x dim standard normal matrix, draw R as length-N uniform
// on [0,1), set
// radii_i = eps * R_i^(1/dim) / ||U_i||, and output x + radii_i * U_i. The
// R^(1/dim) term gives uniform density over volume; dividing by ||U_i||
// projects each draw onto the unit sphere before scaling by the radius.
func (s *Sampler) Sample(x []float64, eps float64, n int) *mat.Dense {
	dim := len(x)
	out := mat.NewDense(n, dim, nil)
	u := make([]float64, dim)
	for i := 0; i < n; i++ {
		var norm float64
		for norm == 0 {
			for d := range u {
				u[d] = s.normal.Rand()
			}
			norm = floats.Norm(u, 2)
		}
		r := s.uniform.Rand()
		radius := eps * math.Pow(r, 1/float64(dim)) / norm
		row := out.RawRowView(i)
		for d := range u {
			row[d] = x[d] + radius*u[d]
		}
	}
	return out
}
