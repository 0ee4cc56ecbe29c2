// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/owlqn/numdiff"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only the summary at the end of the run
	LogLast LogLevel = 0
	// LogEval print also f and |pseudo g| every `level` iterations for any (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration
	LogTrace LogLevel = 99
)

// Logger handles logging output for the optimizer.
// Note the writer must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

// Loss is the smooth part of the objective: given the prediction vector
// z = A·x and the targets y, it returns the loss value and writes the
// gradient with respect to z into g (same dimension as z).
type Loss func(z, y, g []float64) (f float64)

// Snapshot is the structured per-iteration state handed to a Progress observer.
type Snapshot struct {
	Iter    int     // Iteration number, starting at 0.
	F       float64 // Penalized objective value.
	GNorm   float64 // 2-norm of the pseudo-gradient.
	Step    float64 // Step length accepted by the previous line search.
	NumEval int     // Total loss evaluations so far.
}

// Progress observes the optimization once per iteration.
// It is a pure side-channel and cannot influence the run.
type Progress func(Snapshot)

// Options specifies the configuration of an OWL-QN run.
// The zero value selects the documented defaults.
type Options struct {
	// M is the number of limited-memory correction pairs kept.
	// Zero selects the default of 6. A negative value keeps no corrections,
	// degrading the method to scaled steepest descent.
	M int
	// FTol is the Armijo sufficient-decrease coefficient of the line search (default 1e-5).
	FTol float64
	// MaxIterations caps the number of outer iterations.
	// Zero means unbounded: the run stops only via convergence or a line-search status.
	MaxIterations int
	// MaxLineSearch caps the backtracking attempts per outer iteration (default 50).
	MaxLineSearch int
	// Display selects the verbosity when no Logger is supplied:
	// 0 is silent, 1 prints the exit summary, k > 1 prints every k-1 iterations.
	Display int
	// EpsG is the pseudo-gradient norm convergence threshold (default 1e-5).
	EpsG float64
	// Tol is an absolute function-value convergence threshold.
	// When set (non-zero, not NaN) it replaces the EpsG test.
	Tol float64
	// W0 is an optional reference point: when supplied, the distance
	// ‖xₖ - W0‖₂ is recorded per iteration. It does not affect the run.
	W0 []float64
	// SkipIndefinite skips pushing correction pairs with yᵀs ≤ 0.
	// The reference method pushes them unconditionally, which is a known
	// weakness; the default false preserves that behavior.
	SkipIndefinite bool
}

const (
	defaultM          = 6
	defaultFTol       = 1e-5
	defaultEpsG       = 1e-5
	defaultLineSearch = 50
)

// Problem specifies the L1-penalized problem 𝚖𝚒𝚗ₓ 𝚕𝚘𝚜𝚜(A·x, y) + λ·‖x‖₁.
type Problem struct {
	A        mat.Matrix // The design matrix (rows × n)
	Y        []float64  // The prediction targets (rows)
	Lambda   float64    // The L1 penalty weight λ
	Loss     Loss       // The smooth loss
	Progress Progress   // Optional per-iteration observer
	Opts     Options    // Run configuration
}

// New creates a new OWL-QN optimizer for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	opts := p.Opts

	if logger == nil {
		logger = &Logger{Level: LogLevel(opts.Display) - 1}
	}
	if logger.Msg == nil {
		logger.Msg = os.Stdout
	}

	var rows, n int
	if p.A != nil {
		rows, n = p.A.Dims()
	}

	switch {
	case p.A == nil:
		err = errors.New("design matrix is required")
	case n <= 0 || rows <= 0:
		err = errors.New("problem dimension must greater than 0")
	case p.Loss == nil:
		err = errors.New("loss function is required")
	case len(p.Y) != rows:
		err = errors.New("target size must equal to rows of design matrix")
	case p.Lambda < zero:
		err = errors.New("penalty weight must not less than 0")
	case opts.FTol < zero:
		err = errors.New("sufficient decrease coefficient must not less than 0")
	case opts.EpsG < zero:
		err = errors.New("gradient tolerance must not less than 0")
	case opts.MaxIterations < 0:
		err = errors.New("max iteration must not less than 0")
	case opts.MaxLineSearch < 0:
		err = errors.New("max line search must not less than 0")
	case opts.W0 != nil && len(opts.W0) != n:
		err = errors.New("reference point size must equal to n")
	}
	if err != nil {
		return
	}

	switch {
	case opts.M == 0:
		opts.M = defaultM
	case opts.M < 0:
		opts.M = 0
	}
	if opts.FTol == zero {
		opts.FTol = defaultFTol
	}
	if opts.EpsG == zero {
		opts.EpsG = defaultEpsG
	}
	if opts.MaxLineSearch == 0 {
		opts.MaxLineSearch = defaultLineSearch
	}
	if math.IsNaN(opts.Tol) {
		opts.Tol = zero
	}

	optimizer = &Optimizer{
		iterSpec{
			n: n, rows: rows, m: opts.M,
			lambda:   p.Lambda,
			a:        p.A,
			y:        p.Y,
			loss:     p.Loss,
			opts:     opts,
			progress: p.Progress,
			logger:   *logger,
		},
	}
	return
}

// Optimizer implemented using the OWL-QN algorithm.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of the optimization process.
// Given problem dimension n, prediction dimension r and corrections number m,
// total work space is approximately float64[2×mn + 3×n + 2×r + m].
type Workspace struct {
	n, rows, m int
	iterCtx
}

// Result contains the final result of the optimization process.
type Result struct {
	OK   bool      // Whether the optimization converged.
	F    float64   // Final penalized objective value.
	X, G []float64 // Final solution and pseudo-gradient.
	// FHistory holds the objective value of every visited iterate,
	// non-increasing across accepted iterations.
	FHistory []float64
	// TimeHistory holds the elapsed seconds at every visited iterate.
	TimeHistory []float64
	// DistHistory holds ‖xₖ - W0‖₂ per iterate, nil unless Options.W0 was set.
	DistHistory []float64
	// Opts echoes the normalized options of the run.
	Opts    Options
	Summary // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  Status // Final status after optimization.
	NumIter int    // Number of iterations performed.
	NumEval int    // Number of loss evaluations performed.
	NumSkip int    // Number of indefinite correction pairs skipped.
}

// Init allocate the workspace for OWL-QN optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	w := new(Workspace)
	w.n, w.rows, w.m = o.n, o.rows, o.m
	w.init(w.n, w.rows, w.m)
	return w
}

// Fit runs the optimization process using the initial guess x and workspace w.
func (o *Optimizer) Fit(x []float64, w *Workspace) *Result {

	if len(x) != o.n {
		panic("initial x dimension not match spec")
	}

	if w.n != o.n || w.rows != o.rows || w.m != o.m {
		panic("workspace dimension not match spec")
	}

	loc := iterLoc{
		x: slices.Clone(x),
		g: make([]float64, len(x)),
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		location:  &loc,
	}

	st := driver.mainLoop()
	ctx := &w.iterCtx

	res := &Result{
		OK: st == Converged,
		X:  loc.x, F: loc.f, G: loc.g,
		FHistory:    slices.Clone(ctx.fHist),
		TimeHistory: slices.Clone(ctx.timeHist),
		Opts:        o.opts,
		Summary: Summary{
			Status:  st,
			NumIter: ctx.iter,
			NumEval: ctx.numEval,
			NumSkip: ctx.numSkip,
		},
	}
	if o.opts.W0 != nil {
		res.DistHistory = slices.Clone(ctx.distHist)
	}
	return res
}

// Minimize is the one-call entry point: it builds the problem, runs the
// optimization from x0 and returns the final solution with its result.
func Minimize(loss Loss, x0 []float64, a mat.Matrix, y []float64, lambda float64, opts Options) ([]float64, *Result, error) {
	p := Problem{A: a, Y: y, Lambda: lambda, Loss: loss, Opts: opts}
	o, err := p.New(nil)
	if err != nil {
		return nil, nil, err
	}
	r := o.Fit(x0, o.Init())
	return r.X, r, nil
}

// NumericLoss wraps a value-only loss into a Loss whose gradient is
// estimated by finite differences. The returned Loss reuses internal
// scratch and must not be shared across concurrent runs.
func NumericLoss(f func(z, y []float64) float64, method numdiff.Method) Loss {
	var gs numdiff.GradSpec
	return func(z, y, g []float64) float64 {
		if gs.N != len(z) {
			gs = numdiff.GradSpec{N: len(z), Method: method}
		}
		gs.Object = func(z []float64) float64 { return f(z, y) }
		f0, err := gs.Grad(z, g)
		if err != nil {
			panic(err)
		}
		return f0
	}
}
