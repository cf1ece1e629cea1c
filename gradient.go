// Copyright ©2024 The ncOPT Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ncopt

import "gonum.org/v1/gonum/mat"

// gradientBatch computes an oracle's gradient at every row of X, returning
// a matrix of the same shape. If the oracle reports non-differentiability
// at a row (via the optional Differentiable capability), its own
// subgradient choice from Grad is accepted verbatim; no tie-breaking
// happens at this layer.
func gradientBatch(o Oracle, x *mat.Dense) *mat.Dense {
	n, dim := x.Dims()
	out := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		g := o.Grad(x.RawRowView(i))
		out.SetRow(i, g)
	}
	return out
}

// withCenter prepends center as row 0 above the sampled rows, so every
// oracle's cloud carries the current iterate in a known position.
func withCenter(center []float64, samples *mat.Dense) *mat.Dense {
	n, dim := samples.Dims()
	out := mat.NewDense(n+1, dim, nil)
	out.SetRow(0, center)
	for i := 0; i < n; i++ {
		out.SetRow(i+1, samples.RawRowView(i))
	}
	return out
}

// sampleBundle holds one iteration's sample clouds, their gradients, and
// the oracle evaluations at x_k.
type sampleBundle struct {
	bf  *mat.Dense
	bgi []*mat.Dense
	bge []*mat.Dense

	df  *mat.Dense
	dgi []*mat.Dense
	dge []*mat.Dense

	fk  float64
	gik []float64
	gek []float64
}

func buildSampleBundle(p Problem, x []float64, sampler *Sampler, eps float64, p0 int, pI, pE []int) *sampleBundle {
	nI := len(p.Ineq)
	nE := len(p.Eq)

	b := &sampleBundle{
		bgi: make([]*mat.Dense, nI),
		bge: make([]*mat.Dense, nE),
		dgi: make([]*mat.Dense, nI),
		dge: make([]*mat.Dense, nE),
		gik: make([]float64, nI),
		gek: make([]float64, nE),
	}

	b.bf = withCenter(x, sampler.Sample(x, eps, p0))
	b.df = gradientBatch(p.Obj, b.bf)
	b.fk = p.Obj.Eval(x)

	for j, g := range p.Ineq {
		b.bgi[j] = withCenter(x, sampler.Sample(x, eps, pI[j]))
		b.dgi[j] = gradientBatch(g, b.bgi[j])
		b.gik[j] = g.Eval(x)
	}
	for l, h := range p.Eq {
		b.bge[l] = withCenter(x, sampler.Sample(x, eps, pE[l]))
		b.dge[l] = gradientBatch(h, b.bge[l])
		b.gek[l] = h.Eval(x)
	}
	return b
}
