// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
	location  *iterLoc
}

// nextLocation evaluates the objective and pseudo-gradient at the current
// location, recovering a panic in the user loss.
func (dr *iterDriver) nextLocation() (st Status) {
	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	st = running
	func() {
		defer func() {
			if r := recover(); r != nil {
				st = EvalPanic
			}
		}()
		loc.f = evaluate(loc.x, loc.g, spec, ctx)
		ctx.numEval++
	}()
	return
}

// record appends the per-iteration diagnostics of the current iterate.
func (dr *iterDriver) record() {
	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	ctx.fHist = append(ctx.fHist, loc.f)
	ctx.timeHist = append(ctx.timeHist, time.Since(ctx.start).Seconds())
	if w0 := spec.opts.W0; w0 != nil {
		dist := zero
		for i, xi := range loc.x {
			e := xi - w0[i]
			dist += e * e
		}
		ctx.distHist = append(ctx.distHist, math.Sqrt(dist))
	}
}

// updateCorrections pushes the correction pair of the accepted step:
// s = xₖ₊₁ - xₖ, y = gₖ₊₁ - gₖ, reusing the line-search scratch in place.
// The orthant projection can produce pairs with yᵀs ≤ 0; those are pushed
// unconditionally unless SkipIndefinite is set.
func (dr *iterDriver) updateCorrections() {
	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	s, y := ctx.t, ctx.r
	if len(s) < len(loc.x) || len(y) < len(loc.g) {
		panic("bound check error")
	}
	for i, xi := range loc.x {
		s[i] = xi - s[i]
	}
	for i, gi := range loc.g {
		y[i] = gi - y[i]
	}

	if spec.opts.SkipIndefinite && floats.Dot(y, s) <= zero {
		ctx.numSkip++
		if log := &spec.logger; log.enable(LogEval) {
			log.log("Skipping indefinite correction pair at iterate %d\n", ctx.iter)
		}
		return
	}
	ctx.corr.push(s, y)
}

// mainLoop is the main execution loop of the iteration process: it records
// diagnostics, checks convergence, performs the orthant-constrained line
// search and maintains the limited-memory corrections until a terminal
// status is reached.
func (dr *iterDriver) mainLoop() (st Status) {

	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	ctx.reset()
	dr.printInit()

	// Calculate f₀ and pseudo g₀
	if st = dr.nextLocation(); st != running {
		return
	}

	// The initial direction is the raw negative pseudo-gradient.
	for i, gi := range loc.g {
		ctx.d[i] = -gi
	}

	for st == running {

		dr.record()
		ctx.gnorm = floats.Norm(loc.g, 2)
		dr.printIter()

		if p := spec.progress; p != nil {
			p(Snapshot{
				Iter:    ctx.iter,
				F:       loc.f,
				GNorm:   ctx.gnorm,
				Step:    ctx.stp,
				NumEval: ctx.numEval,
			})
		}

		switch {
		case dr.converged():
			st = Converged
		case spec.opts.MaxIterations > 0 && ctx.iter == spec.opts.MaxIterations-1:
			st = IterLimit
		default:
			if ctx.iter == 0 {
				// Scale the first trial step to unit length in parameter space.
				if dnorm := floats.Norm(ctx.d, 2); dnorm > zero {
					ctx.stp = one / dnorm
				} else {
					ctx.stp = one
				}
			} else {
				ctx.stp = one
			}

			if st = dr.searchStep(); st != running {
				break
			}

			dr.updateCorrections()
			computeDirection(ctx.d, loc.g, &ctx.corr, ctx.alpha)
			ctx.iter++
		}
	}

	dr.printExit(st)
	return
}

// converged tests the stopping criterion of the current iterate: the absolute
// function value when Tol is set, the pseudo-gradient norm otherwise.
func (dr *iterDriver) converged() bool {
	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	if tol := spec.opts.Tol; tol != zero && !math.IsNaN(tol) {
		return loc.f < tol
	}
	return ctx.gnorm < spec.opts.EpsG
}

func (dr *iterDriver) printInit() {
	spec := &dr.optimizer.iterSpec
	log := &spec.logger
	if log.enable(LogLast) {
		log.log("RUNNING THE OWL-QN CODE\n")
		log.log("           * * *\n")
		log.log("N = %d    M = %d    LAMBDA = %g\n", spec.n, spec.m, spec.lambda)
	}
}

func (dr *iterDriver) printIter() {
	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	log := &spec.logger
	if log.enable(LogTrace) {
		log.log("\n\nITERATION %5d\n", ctx.iter)
		log.log("At iterate %5d    f= %12.5e    |pseudo g|= %12.5e    step= %g\n", ctx.iter, loc.f, ctx.gnorm, ctx.stp)
	} else if log.enable(LogEval) {
		if ctx.iter%int(log.Level) == 0 {
			log.log("At iterate %5d    f= %12.5e    |pseudo g|= %12.5e\n", ctx.iter, loc.f, ctx.gnorm)
		}
	}
}

func (dr *iterDriver) printExit(st Status) {
	spec := &dr.optimizer.iterSpec
	ctx := &dr.workspace.iterCtx
	loc := dr.location

	log := &spec.logger
	if !log.enable(LogLast) {
		return
	}

	log.log("\n           * * *\n")
	log.log("   N     Tit     Tnf   Skip      |pseudo g|        F\n")
	log.log("%5d %6d %7d %6d    %10.3e %14.8e\n",
		spec.n, ctx.iter, ctx.numEval, ctx.numSkip, ctx.gnorm, loc.f)

	var msg string
	switch st {
	case Converged:
		msg = "CONVERGENCE: CRITERION SATISFIED"
	case NotDescent:
		msg = "ABNORMAL: DIRECTIONAL DERIVATIVE >= 0, LINE SEARCH IMPOSSIBLE"
	case SearchFailed:
		msg = "ABNORMAL: LINE SEARCH CANNOT LOCATE AN ADEQUATE POINT"
	case IterLimit:
		msg = "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case EvalPanic:
		msg = "STOP: CALLBACK REQUESTED HALT"
	default:
		msg = "UNKNOWN STATUS"
	}
	log.log("\n%s\n", msg)
}
