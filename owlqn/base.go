// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	zero = 0.0
	half = 0.5
	one  = 1.0
)

// Status reports the terminal state of an optimization run.
type Status int

const (
	// Converged the pseudo-gradient norm or function value fell below threshold.
	Converged Status = 0
	// NotDescent the search direction is not a descent direction.
	NotDescent Status = -1
	// SearchFailed the line search exhausted MaxLineSearch attempts without sufficient decrease.
	SearchFailed Status = -2
	// IterLimit the iteration count reached MaxIterations before convergence.
	IterLimit Status = -3
	// EvalPanic the loss function panicked during evaluation.
	EvalPanic Status = -4
)

// running is the internal non-terminal state of the driver loop.
const running Status = 1

func (s Status) String() string {
	switch s {
	case Converged:
		return "Converged"
	case NotDescent:
		return "NotDescent"
	case SearchFailed:
		return "SearchFailed"
	case IterLimit:
		return "IterLimit"
	case EvalPanic:
		return "EvalPanic"
	}
	return "Unknown"
}

type iterSpec struct {
	// the number of variables
	n int
	// the number of predictions (rows of A)
	rows int
	// the correction number of L-BFGS (≤ 0 disables curvature)
	m int
	// the L1 penalty weight
	lambda float64
	// the design matrix (rows × n)
	a mat.Matrix
	// the prediction targets
	y []float64
	// the smooth loss
	loss Loss
	// normalized options
	opts Options
	// iteration observer
	progress Progress
	logger   Logger
}

type iterLoc struct {
	f float64
	x []float64 // n
	g []float64 // n, pseudo-gradient
}

// save stores the current location into (t, fOld, r).
func (l *iterLoc) save(t []float64, fOld *float64, r []float64) {
	copy(t, l.x)
	copy(r, l.g)
	*fOld = l.f
}

// load restores the location from (t, fOld, r).
func (l *iterLoc) load(t []float64, fOld float64, r []float64) {
	copy(l.x, t)
	copy(l.g, r)
	l.f = fOld
}

type iterCtx struct {
	// iteration counter.
	iter int
	// total loss evaluations.
	numEval int
	// indefinite correction pairs skipped.
	numSkip int
	// line-search step length.
	stp float64
	// line-search initial derivative g₀ᵀd.
	dginit float64
	// line-search initial value of objective function.
	fOld float64
	// ‖ pseudo g ‖₂ of the current iterate.
	gnorm float64
	// the search direction.
	d []float64 // n
	// the initial location of the line search.
	t []float64 // n
	// the initial pseudo-gradient of the line search.
	r []float64 // n
	// prediction scratch A·x.
	z []float64 // rows
	// loss gradient scratch ∂loss/∂z.
	gz []float64 // rows
	// two-loop scalars, indexed by correction slot.
	alpha []float64 // m
	// correction pairs.
	corr corrStore
	// diagnostics.
	fHist    []float64
	timeHist []float64
	distHist []float64
	start    time.Time
}

func (ctx *iterCtx) init(n, rows, m int) {
	ctx.d = make([]float64, n)
	ctx.t = make([]float64, n)
	ctx.r = make([]float64, n)
	ctx.z = make([]float64, rows)
	ctx.gz = make([]float64, rows)
	if m > 0 {
		ctx.alpha = make([]float64, m)
	}
	ctx.corr.init(m, n)
}

func (ctx *iterCtx) reset() {
	ctx.iter = 0
	ctx.numEval = 0
	ctx.numSkip = 0
	ctx.stp = zero
	ctx.dginit = zero
	ctx.fOld = zero
	ctx.gnorm = zero
	ctx.corr.reset()
	ctx.fHist = ctx.fHist[:0]
	ctx.timeHist = ctx.timeHist[:0]
	ctx.distHist = ctx.distHist[:0]
	ctx.start = time.Now()
}
