package numdiff

import (
	"errors"
	"math"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// GradSpec represents a numerical differentiation algorithm to estimate
// the gradient of a scalar function by finite differences.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
type GradSpec struct {
	N int
	// Function of which to estimate the gradient.
	// The argument x passed to this function is an n-vector.
	Object func(x []float64) float64
	// Finite difference method to use.
	Method Method
	// Relative step size used to compute absolute step size.
	// The default absolute step size is computed as h = RelStep * sign(x0) * max(1, abs(x0)) with RelStep being selected automatically.
	// Otherwise, absolute step size is computed as h = RelStep * sign(x0) * abs(x0) when RelStep is provided.
	RelStep float64
	// Absolute step size to use.
	// The RelStep is used when AbsStep is not provide.
	// For Central method the sign of AbsStep is ignored.
	AbsStep float64
	gradCtx
}

type gradCtx struct {
	absStep []float64
}

// Check the parameters and initialize gradCtx.
func (gs *GradSpec) Check(x0, grad []float64) (err error) {

	switch {
	case gs.N <= 0:
		err = errors.New("negative dimensions")
	case gs.Method != Forward && gs.Method != Central:
		err = errors.New("unknown method")
	case gs.Object == nil:
		err = errors.New("object function is required")
	case gs.N != len(x0):
		return errors.New("invalid x0 dimensions")
	case gs.N != len(grad):
		return errors.New("invalid grad dimensions")
	}

	if len(gs.absStep) != gs.N {
		gs.absStep = make([]float64, gs.N)
	}
	return
}

// Grad calculates an approximation of the gradient by finite differences
// and returns the function value at x0.
// The entries of x0 are perturbed and restored in place.
func (gs *GradSpec) Grad(x0, grad []float64) (f0 float64, err error) {

	if err = gs.Check(x0, grad); err != nil {
		return
	}

	gs.absoluteStep(x0)

	fun := gs.Object
	f0 = fun(x0)

	h := gs.absStep
	if len(h) != len(x0) || len(h) != len(grad) {
		panic("bound check error")
	}

	if gs.Method == Forward {
		for i, s := range h {
			t := x0[i]
			x0[i] = t + s
			grad[i] = (fun(x0) - f0) / s
			x0[i] = t
		}
	} else {
		for i, s := range h {
			s = math.Abs(s)
			t := x0[i]
			x0[i] = t - s
			f1 := fun(x0)
			x0[i] = t + s
			f2 := fun(x0)
			grad[i] = (f2 - f1) / (2 * s)
			x0[i] = t
		}
	}
	return
}

func (gs *GradSpec) absoluteStep(x0 []float64) {
	h := gs.absStep
	if len(h) != len(x0) {
		panic("bound check error")
	}

	var eps float64
	switch gs.Method {
	case Forward:
		eps = sqrtEps
	case Central:
		eps = cubeEps
	default:
		panic("unknown method")
	}

	abs := gs.AbsStep
	rel := gs.RelStep
	if abs == 0 && rel == 0 {
		for i, v := range x0 {
			h[i] = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
	} else {
		for i, v := range x0 {
			s := abs
			if s == 0 {
				s = math.Copysign(rel, v) * math.Abs(v)
			}
			d := (v + s) - v
			if d == 0 {
				s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
			h[i] = s
		}
	}
}
