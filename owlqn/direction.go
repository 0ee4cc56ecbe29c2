// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"gonum.org/v1/gonum/floats"
)

// computeDirection produces the quasi-Newton search direction d ≈ -Hₖgₖ
// by the two-loop recursion applied to the pseudo-gradient g.
//
// Given the stored corrections (sⱼ, yⱼ, ysⱼ = yⱼᵀsⱼ):
//
//	q = -g
//	for j = k-1,...,k-count (newest → oldest):
//	    ɑⱼ = sⱼᵀq / ysⱼ ;  q = q - ɑⱼyⱼ
//	q = q × ysₗₐₛₜ/yyₗₐₛₜ   (γ-scaling of the initial inverse Hessian H⁰ = γI)
//	for j = k-count,...,k-1 (oldest → newest):
//	    βⱼ = yⱼᵀq / ysⱼ ;  q = q + (ɑⱼ - βⱼ)sⱼ
//
// With an empty store the scaling is the identity and the direction
// degenerates to the plain negative pseudo-gradient.
//
// The orthant projection then zeroes every component that does not strictly
// descend against the pseudo-gradient:
//
//	dᵢ = 0  if dᵢ·gᵢ ≥ 0
//
// so that the projected direction is a valid descent direction for the
// orthant-restricted problem.
func computeDirection(d, g []float64, corr *corrStore, alpha []float64) {

	if len(d) < len(g) {
		panic("bound check error")
	}

	for i, gi := range g {
		d[i] = -gi
	}

	for i, p := range corr.newest() {
		a := floats.Dot(p.s, d) / p.ys
		alpha[i] = a
		floats.AddScaled(d, -a, p.y)
	}

	if p := corr.latest(); p != nil {
		yy := floats.Dot(p.y, p.y)
		floats.Scale(p.ys/yy, d)
	}

	for i, p := range corr.oldest() {
		b := floats.Dot(p.y, d) / p.ys
		floats.AddScaled(d, alpha[i]-b, p.s)
	}

	for i, gi := range g {
		if d[i]*gi >= zero {
			d[i] = zero
		}
	}
}
