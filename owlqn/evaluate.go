// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"gonum.org/v1/gonum/mat"
)

// evaluate computes the penalized objective and its pseudo-gradient at x.
//
// The objective is
//
//	f(x) = 𝚕𝚘𝚜𝚜(A·x, y) + λ·∑|xᵢ|
//
// and the gradient g = Aᵀ∇𝚕𝚘𝚜𝚜 + λ·𝚜𝚒𝚐𝚗(x) is well defined except at xᵢ = 0,
// where the L1 subdifferential is the interval [-λ, λ]. The pseudo-gradient
// picks its minimal-magnitude element there:
//
//	𝚙𝚜𝚎𝚞𝚍𝚘 gᵢ = 𝚖𝚊𝚡(gᵢ - λ, 0)  if xᵢ = 0, gᵢ > 0
//	𝚙𝚜𝚎𝚞𝚍𝚘 gᵢ = 𝚖𝚒𝚗(gᵢ + λ, 0)  if xᵢ = 0, gᵢ < 0
//	𝚙𝚜𝚎𝚞𝚍𝚘 gᵢ = gᵢ + λ·𝚜𝚒𝚐𝚗(xᵢ)  otherwise
//
// which is the steepest descent direction consistent with staying in the
// orthant of x. The result is written into g. The loss gradient with respect
// to the prediction vector is produced by the user loss into ctx.gz.
func evaluate(x, g []float64, spec *iterSpec, ctx *iterCtx) float64 {

	n, rows := spec.n, spec.rows

	// z = A·x
	zv := mat.NewVecDense(rows, ctx.z)
	zv.MulVec(spec.a, mat.NewVecDense(n, x))

	f := spec.loss(ctx.z, spec.y, ctx.gz)

	// g = Aᵀ·∇𝚕𝚘𝚜𝚜
	gv := mat.NewVecDense(n, g)
	gv.MulVec(spec.a.T(), mat.NewVecDense(rows, ctx.gz))

	if len(g) < len(x) {
		panic("bound check error")
	}

	lambda := spec.lambda
	l1 := zero
	for i, xi := range x {
		switch {
		case xi > zero:
			l1 += xi
			g[i] += lambda
		case xi < zero:
			l1 -= xi
			g[i] -= lambda
		default:
			if gi := g[i]; gi > lambda {
				g[i] = gi - lambda
			} else if gi < -lambda {
				g[i] = gi + lambda
			} else {
				g[i] = zero
			}
		}
	}
	return f + lambda*l1
}
