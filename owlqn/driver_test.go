// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateCorrections(t *testing.T) {

	p := Problem{A: eye(1), Y: []float64{0}, Loss: squaredLoss}
	dr := newTestDriver(t, p, []float64{1})

	ctx, loc := &dr.workspace.iterCtx, dr.location

	// fabricate an accepted step with yᵀs = -1
	ctx.t[0], loc.x[0] = 0, 1  // s = 1
	ctx.r[0], loc.g[0] = 0, -1 // y = -1
	dr.updateCorrections()

	// the reference behavior pushes indefinite pairs unconditionally
	require.Equal(t, 1, ctx.corr.count)
	require.Equal(t, -1.0, ctx.corr.latest().ys)
	require.Equal(t, 0, ctx.numSkip)
}

func TestSkipIndefinite(t *testing.T) {

	p := Problem{A: eye(1), Y: []float64{0}, Loss: squaredLoss,
		Opts: Options{SkipIndefinite: true}}
	dr := newTestDriver(t, p, []float64{1})

	ctx, loc := &dr.workspace.iterCtx, dr.location

	ctx.t[0], loc.x[0] = 0, 1
	ctx.r[0], loc.g[0] = 0, -1
	dr.updateCorrections()

	require.Equal(t, 0, ctx.corr.count)
	require.Equal(t, 1, ctx.numSkip)

	// a well-curved pair is still accepted
	ctx.t[0], loc.x[0] = 0, 1 // s = 1
	ctx.r[0], loc.g[0] = 0, 2 // y = 2
	dr.updateCorrections()

	require.Equal(t, 1, ctx.corr.count)
	require.Equal(t, 2.0, ctx.corr.latest().ys)
}

func TestTolConvergence(t *testing.T) {

	// with Tol set the run stops on the function value, not the gradient
	// the penalized optimum is f* = 0.69, comfortably below Tol = 1
	p := Problem{A: eye(2), Y: []float64{3, -4}, Lambda: 0.1, Loss: squaredLoss,
		Opts: Options{Tol: 1.0}}
	o, err := p.New(nil)
	require.NoError(t, err)

	r := o.Fit([]float64{0, 0}, o.Init())
	require.True(t, r.OK)
	require.Equal(t, Converged, r.Status)
	require.Less(t, r.F, 1.0)
}
