// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owlqn

import (
	"iter"

	"gonum.org/v1/gonum/floats"
)

// corrPair holds one limited-memory correction of the inverse Hessian:
// the step s = xₖ₊₁ - xₖ, the pseudo-gradient change y = gₖ₊₁ - gₖ
// and the curvature scalar ys = yᵀs.
// The slot vectors are owned by the store and overwritten in place at push.
type corrPair struct {
	s, y []float64
	ys   float64
}

// corrStore is a fixed-capacity ring of correction pairs.
// The m slots are preallocated once; head is the next write position and
// count the number of valid pairs, so the valid entries run oldest to newest
// from (head - count) mod m.
type corrStore struct {
	pairs []corrPair
	head  int
	count int
}

func (c *corrStore) init(m, n int) {
	if m <= 0 {
		return
	}
	buf := make([]float64, 2*m*n)
	c.pairs = make([]corrPair, m)
	for i := range c.pairs {
		c.pairs[i].s = buf[:n:n]
		c.pairs[i].y = buf[n : 2*n : 2*n]
		buf = buf[2*n:]
	}
}

func (c *corrStore) reset() {
	c.head, c.count = 0, 0
}

// push records a correction pair, overwriting the oldest one once the
// ring is full. When the capacity is zero push is a no-op and only the
// curvature scalar is returned.
func (c *corrStore) push(s, y []float64) (ys float64) {
	ys = floats.Dot(y, s)
	m := len(c.pairs)
	if m == 0 {
		return
	}
	p := &c.pairs[c.head]
	copy(p.s, s)
	copy(p.y, y)
	p.ys = ys
	c.head = (c.head + 1) % m
	if c.count < m {
		c.count++
	}
	return
}

// latest returns the most recently pushed pair, or nil when empty.
func (c *corrStore) latest() *corrPair {
	if c.count == 0 {
		return nil
	}
	m := len(c.pairs)
	return &c.pairs[(c.head-1+m)%m]
}

// newest yields the valid pairs from most recently pushed to oldest,
// keyed by slot index.
func (c *corrStore) newest() iter.Seq2[int, *corrPair] {
	return func(yield func(int, *corrPair) bool) {
		m := len(c.pairs)
		for k := 1; k <= c.count; k++ {
			i := (c.head - k + m) % m
			if !yield(i, &c.pairs[i]) {
				return
			}
		}
	}
}

// oldest yields the valid pairs in the reverse order of newest.
func (c *corrStore) oldest() iter.Seq2[int, *corrPair] {
	return func(yield func(int, *corrPair) bool) {
		m := len(c.pairs)
		for k := c.count; k >= 1; k-- {
			i := (c.head - k + m) % m
			if !yield(i, &c.pairs[i]) {
				return
			}
		}
	}
}
