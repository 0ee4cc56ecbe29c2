package numdiff

import (
	"math"
	"testing"
)

func objTrig(x []float64) float64 {
	return x[0]*math.Sin(x[1]) + math.Pow(x[0], 3)
}

func gradTrig(x []float64) []float64 {
	return []float64{
		math.Sin(x[1]) + 3*math.Pow(x[0], 2),
		x[0] * math.Cos(x[1]),
	}
}

func objLogSumExp(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += math.Exp(v)
	}
	return math.Log(sum)
}

func gradLogSumExp(x []float64) []float64 {
	sum := 0.0
	for _, v := range x {
		sum += math.Exp(v)
	}
	g := make([]float64, len(x))
	for i, v := range x {
		g[i] = math.Exp(v) / sum
	}
	return g
}

func TestGrad(t *testing.T) {

	cases := []struct {
		obj  func([]float64) float64
		grad func([]float64) []float64
		x0   []float64
	}{
		{objTrig, gradTrig, []float64{1.5, -0.7}},
		{objTrig, gradTrig, []float64{0, 2.0}},
		{objLogSumExp, gradLogSumExp, []float64{0.1, -0.3, 0.8}},
	}

	for _, c := range cases {
		n := len(c.x0)
		want := c.grad(c.x0)
		grad := make([]float64, n)

		gs := GradSpec{N: n, Method: Central, Object: c.obj}
		f0, err := gs.Grad(c.x0, grad)
		switch {
		case err != nil:
			t.Fatal(err)
		case !relativeEqual(f0, c.obj(c.x0), 0):
			t.Fatal("unexpected central f0")
		case !relativeEqual(grad, want, 1e-7):
			t.Fatalf("unexpected central grad: got %v want %v", grad, want)
		}

		gs = GradSpec{N: n, Method: Forward, Object: c.obj}
		if _, err = gs.Grad(c.x0, grad); err != nil {
			t.Fatal(err)
		}
		if !relativeEqual(grad, want, 1e-6) {
			t.Fatalf("unexpected forward grad: got %v want %v", grad, want)
		}
	}
}

func TestGradStep(t *testing.T) {

	x0 := []float64{2, -3}
	grad := make([]float64, 2)
	want := gradTrig(x0)

	gs := GradSpec{N: 2, Method: Central, Object: objTrig, RelStep: 1e-6}
	if _, err := gs.Grad(x0, grad); err != nil {
		t.Fatal(err)
	}
	if !relativeEqual(grad, want, 1e-5) {
		t.Fatalf("unexpected rel-step grad: got %v want %v", grad, want)
	}

	gs = GradSpec{N: 2, Method: Central, Object: objTrig, AbsStep: 1e-6}
	if _, err := gs.Grad(x0, grad); err != nil {
		t.Fatal(err)
	}
	if !relativeEqual(grad, want, 1e-5) {
		t.Fatalf("unexpected abs-step grad: got %v want %v", grad, want)
	}

	// perturbation underflow falls back to the automatic step
	gs = GradSpec{N: 2, Method: Central, Object: objTrig, AbsStep: 1e-300}
	if _, err := gs.Grad(x0, grad); err != nil {
		t.Fatal(err)
	}
	if !relativeEqual(grad, want, 1e-5) {
		t.Fatalf("unexpected fallback grad: got %v want %v", grad, want)
	}
}

func TestGradCheck(t *testing.T) {

	x0 := []float64{1, 2}
	grad := make([]float64, 2)

	bad := []GradSpec{
		{N: 0, Method: Central, Object: objTrig},
		{N: 2, Method: Method(7), Object: objTrig},
		{N: 2, Method: Central},
		{N: 3, Method: Central, Object: objTrig},
	}
	for i, gs := range bad {
		if _, err := gs.Grad(x0, grad); err == nil {
			t.Fatalf("case %d: expect check error", i)
		}
	}

	gs := GradSpec{N: 2, Method: Central, Object: objTrig}
	if _, err := gs.Grad(x0, grad[:1]); err == nil {
		t.Fatal("expect grad dimension error")
	}
}

func relativeEqual[T float64 | []float64](a, b T, tol float64) bool {
	equalWithinRel := func(a, b float64) bool {
		if a == b {
			return true
		}
		delta := math.Abs(a - b)
		return delta/math.Max(math.Abs(a), math.Abs(b)) <= tol
	}
	switch v := any(a).(type) {
	case float64:
		return equalWithinRel(v, any(b).(float64))
	case []float64:
		b := any(b).([]float64)
		if len(v) != len(b) {
			return false
		}
		for i, a := range v {
			if !equalWithinRel(a, b[i]) {
				return false
			}
		}
		return true
	}
	return false
}
