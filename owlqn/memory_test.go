// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collectNewest(c *corrStore) (idx []int, ys []float64) {
	for i, p := range c.newest() {
		idx = append(idx, i)
		ys = append(ys, p.ys)
	}
	return
}

func collectOldest(c *corrStore) (idx []int, ys []float64) {
	for i, p := range c.oldest() {
		idx = append(idx, i)
		ys = append(ys, p.ys)
	}
	return
}

func TestCorrStorePush(t *testing.T) {

	var c corrStore
	c.init(3, 2)

	require.Equal(t, 0, c.count)
	require.Nil(t, c.latest())

	// pair k has s = (k, 0), y = (k, k) so ys = k²
	push := func(k float64) float64 {
		return c.push([]float64{k, 0}, []float64{k, k})
	}

	require.Equal(t, 1.0, push(1))
	require.Equal(t, 4.0, push(2))
	require.Equal(t, 2, c.count)
	require.Equal(t, 4.0, c.latest().ys)

	idx, ys := collectNewest(&c)
	require.Equal(t, []int{1, 0}, idx)
	require.Equal(t, []float64{4, 1}, ys)

	idx, ys = collectOldest(&c)
	require.Equal(t, []int{0, 1}, idx)
	require.Equal(t, []float64{1, 4}, ys)
}

func TestCorrStoreWrap(t *testing.T) {

	var c corrStore
	c.init(3, 2)

	for k := 1.0; k <= 5; k++ {
		c.push([]float64{k, 0}, []float64{k, k})
	}

	// pairs 3,4,5 survive; pair 5 overwrote slot 1
	require.Equal(t, 3, c.count)
	require.Equal(t, 2, c.head)
	require.Equal(t, 25.0, c.latest().ys)

	_, ys := collectNewest(&c)
	require.Equal(t, []float64{25, 16, 9}, ys)

	_, ys = collectOldest(&c)
	require.Equal(t, []float64{9, 16, 25}, ys)

	// sequences are restartable
	_, again := collectNewest(&c)
	require.Equal(t, []float64{25, 16, 9}, again)

	// and stop early on break
	seen := 0
	for range c.newest() {
		seen++
		break
	}
	require.Equal(t, 1, seen)
}

func TestCorrStoreEmpty(t *testing.T) {

	var c corrStore
	c.init(0, 4)

	ys := c.push([]float64{1, 2, 3, 4}, []float64{1, 1, 1, 1})
	require.Equal(t, 10.0, ys)
	require.Equal(t, 0, c.count)
	require.Nil(t, c.latest())

	idx, _ := collectNewest(&c)
	require.Empty(t, idx)
}

func TestCorrStoreSlots(t *testing.T) {

	var c corrStore
	c.init(2, 3)

	s := []float64{1, 2, 3}
	y := []float64{4, 5, 6}
	c.push(s, y)

	// slot owns a copy, caller mutation does not leak in
	s[0], y[0] = -1, -4
	p := c.latest()
	require.Equal(t, []float64{1, 2, 3}, p.s)
	require.Equal(t, []float64{4, 5, 6}, p.y)
	require.Equal(t, 32.0, p.ys)
}
