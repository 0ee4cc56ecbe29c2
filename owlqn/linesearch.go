// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"gonum.org/v1/gonum/floats"
)

// Perform a backtracking line search along dₖ constrained to the orthant of xₖ.
// The λₖ starts with ctx.stp and is halved until fₖ₊₁ = f(𝚙𝚛𝚘𝚓(xₖ + λₖdₖ)) satisfies
// the sufficient decrease condition:
//
//	fₖ₊₁ ≤ fₖ + ɑλₖgₖᵀdₖ (ɑ = FTol)
//
// Each trial point is projected back onto the orthant of xₖ before evaluation:
//
//	xᵢ = 0  if xᵢ·xₖᵢ < 0
//
// so a single step never crosses into a different orthant for any coordinate,
// it stops exactly at zero instead.
func (dr *iterDriver) searchStep() Status {

	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	x, d, t := loc.x, ctx.d, ctx.t
	if len(x) != len(d) || len(d) != len(t) {
		panic("bound check error")
	}

	ctx.dginit = floats.Dot(loc.g, d)
	if ctx.dginit >= zero {
		// Line search is impossible when the directional derivative ≥ 0.
		ctx.stp = zero
		return NotDescent
	}

	loc.save(ctx.t, &ctx.fOld, ctx.r) // Save original x, f, g

	stp := ctx.stp
	for numBack := 0; numBack < spec.opts.MaxLineSearch; numBack++ {

		for i := range x { // x = 𝚙𝚛𝚘𝚓(xₖ + λₖdₖ)
			xi := t[i] + stp*d[i]
			if xi*t[i] < zero {
				xi = zero
			}
			x[i] = xi
		}

		if st := dr.nextLocation(); st != running {
			return st
		}

		if loc.f <= ctx.fOld+spec.opts.FTol*stp*ctx.dginit {
			ctx.stp = stp
			return running
		}

		stp *= half
	}

	// Restore the previous iterate and its exact objective state.
	copy(x, t)
	if st := dr.nextLocation(); st != running {
		return st
	}
	loc.load(ctx.t, ctx.fOld, ctx.r)
	ctx.stp = zero
	return SearchFailed
}
