// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package chain groups colinear anchors into chains and keeps the major ones.
package chain

import (
	"github.com/pkg/errors"
	"github.com/rdleal/intervalst/interval"
	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/twotwotwo/sorts"
)

// ChainingOptions contains all options in chaining.
type ChainingOptions struct {
	// Maximum gap between start positions of two linked anchors,
	// on both the query and the target.
	NearDist int
	// Maximum difference of diagonals of two linked anchors,
	// NearDist is used when it is <= 0.
	MaxDiagShift int
}

// DefaultChainingOptions is the default value of ChainingOptions.
var DefaultChainingOptions = ChainingOptions{
	NearDist:     50,
	MaxDiagShift: 0,
}

// ErrInvalidNearDist means the near distance is negative.
var ErrInvalidNearDist = errors.Wrap(util.ErrInvalidOption, "chain: the value of near distance should be >= 0")

// CheckChainingOptions checks the options.
func CheckChainingOptions(opt *ChainingOptions) error {
	if opt.NearDist < 0 {
		return errors.Wrapf(ErrInvalidNearDist, "%d", opt.NearDist)
	}
	return nil
}

// Chain is a group of colinear anchors on the same strand.
type Chain struct {
	TBegin, TEnd int // [TBegin, TEnd)
	QBegin, QEnd int // [QBegin, QEnd)
	Matched      int // sum of anchor lengths
	Strand       int

	Anchors []anchor.Anchor // ordered by query position

	first int // rank of the first anchor in the sorted list, for breaking ties
}

// Score returns the score of the chain.
func (c *Chain) Score() int { return c.Matched }

// Chainer is an object for chaining anchors.
// It reuses its buffers and is not safe for concurrent use,
// please create one for each goroutine.
type Chainer struct {
	options *ChainingOptions

	anchors []anchor.Anchor // sorted copy
	parent  []int
	chainOf []int
}

// NewChainer creates a new chainer.
func NewChainer(options *ChainingOptions) *Chainer {
	return &Chainer{
		options: options,

		anchors: make([]anchor.Anchor, 0, 1024),
		parent:  make([]int, 0, 1024),
		chainOf: make([]int, 0, 1024),
	}
}

// Chain groups anchors into chains, the input is not modified.
//
// Two anchors of the same strand are linked when the gaps between their
// start positions on the query and the target are both <= NearDist,
// and their diagonals differ by <= MaxDiagShift. A chain is a connected
// component of linked anchors, an isolated anchor forms a one-anchor chain.
// Chains are returned in the order of strand, query and target positions.
func (ce *Chainer) Chain(anchors []anchor.Anchor) []*Chain {
	n := len(anchors)
	if n == 0 {
		return nil
	}

	near := ce.options.NearDist
	maxShift := ce.options.MaxDiagShift
	if maxShift <= 0 {
		maxShift = near
	}

	// sort anchors by strand, query and target positions
	subs := append(ce.anchors[:0], anchors...)
	sorts.Quicksort(byPosition(subs))
	ce.anchors = subs

	parent := ce.parent[:0]
	for i := 0; i < n; i++ {
		parent = append(parent, i)
	}
	ce.parent = parent

	// link anchors in a sliding window of query positions
	var i, j int
	var a, b *anchor.Anchor
	for i = 1; i < n; i++ {
		a = &subs[i]
		for j = i - 1; j >= 0; j-- {
			b = &subs[j]
			if b.Strand != a.Strand || a.QBegin-b.QBegin > near {
				break
			}
			if util.AbsInt(a.TBegin-b.TBegin) > near ||
				util.AbsInt(a.Diag-b.Diag) > maxShift {
				continue
			}
			union(parent, i, j)
		}
	}

	// collect members of each component, still ordered by query position
	chainOf := ce.chainOf[:0]
	for i = 0; i < n; i++ {
		chainOf = append(chainOf, -1)
	}
	ce.chainOf = chainOf

	chains := make([]*Chain, 0, 8)
	var root int
	var c *Chain
	for i = 0; i < n; i++ {
		a = &subs[i]
		root = find(parent, i)
		if chainOf[root] < 0 {
			chainOf[root] = len(chains)
			c = &Chain{
				TBegin: a.TBegin,
				TEnd:   a.TEnd(),
				QBegin: a.QBegin,
				QEnd:   a.QEnd(),
				Strand: a.Strand,
				first:  i,

				Anchors: make([]anchor.Anchor, 0, 4),
			}
			chains = append(chains, c)
		} else {
			c = chains[chainOf[root]]
		}

		c.Anchors = append(c.Anchors, *a)
		c.Matched += a.Len
		if a.TBegin < c.TBegin {
			c.TBegin = a.TBegin
		}
		if a.TEnd() > c.TEnd {
			c.TEnd = a.TEnd()
		}
		if a.QEnd() > c.QEnd {
			c.QEnd = a.QEnd()
		}
	}

	return chains
}

// MajorChains groups anchors into chains and returns only the major ones,
// see SelectMajorChains.
func (ce *Chainer) MajorChains(anchors []anchor.Anchor) []*Chain {
	return SelectMajorChains(ce.Chain(anchors))
}

// SelectMajorChains keeps chains that are not overlapped by a better chain
// of the same strand on the query.
//
// Chains are ranked by descending score, ties are broken by the earliest query
// start and then the earliest target start. A chain is major when no chain of
// the same strand with a better rank intersects its query range, whether or
// not that chain is major itself.
// Major chains are returned in the order of strand, query and target positions.
func SelectMajorChains(chains []*Chain) []*Chain {
	if len(chains) == 0 {
		return nil
	}

	ranked := make([]*Chain, len(chains))
	copy(ranked, chains)
	sorts.Quicksort(byScore(ranked))

	// one tree for each strand, values are ranks.
	// starts are even and ends are odd, so touching ranges never intersect.
	cmpFn := func(x, y int) int { return x - y }
	trees := [2]*interval.SearchTree[int, int]{
		interval.NewSearchTree[int, int](cmpFn),
		interval.NewSearchTree[int, int](cmpFn),
	}

	// worse chains first, so a chain with the same query range as a better
	// one is overwritten by it.
	var c *Chain
	for r := len(ranked) - 1; r >= 0; r-- {
		c = ranked[r]
		trees[c.Strand&1].Insert(c.QBegin<<1, c.QEnd<<1-1, r)
	}

	majors := make([]*Chain, 0, len(ranked))
	var ranks []int
	var major bool
	for r, c := range ranked {
		ranks, _ = trees[c.Strand&1].AllIntersections(c.QBegin<<1, c.QEnd<<1-1)
		major = true
		for _, r2 := range ranks {
			if r2 < r {
				major = false
				break
			}
		}
		if major {
			majors = append(majors, c)
		}
	}

	sorts.Quicksort(byPositionChain(majors))
	return majors
}

func find(parent []int, i int) int {
	for parent[i] != i {
		parent[i] = parent[parent[i]]
		i = parent[i]
	}
	return i
}

// the root with the smaller index wins, so a root is always the first member.
func union(parent []int, i, j int) {
	ri, rj := find(parent, i), find(parent, j)
	if ri == rj {
		return
	}
	if ri < rj {
		parent[rj] = ri
	} else {
		parent[ri] = rj
	}
}

type byPosition []anchor.Anchor

func (s byPosition) Len() int      { return len(s) }
func (s byPosition) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byPosition) Less(i, j int) bool {
	a, b := &s[i], &s[j]
	if a.Strand != b.Strand {
		return a.Strand < b.Strand
	}
	if a.QBegin != b.QBegin {
		return a.QBegin < b.QBegin
	}
	if a.TBegin != b.TBegin {
		return a.TBegin < b.TBegin
	}
	return a.Len < b.Len
}

type byScore []*Chain

func (s byScore) Len() int      { return len(s) }
func (s byScore) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byScore) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.Matched != b.Matched {
		return a.Matched > b.Matched
	}
	if a.QBegin != b.QBegin {
		return a.QBegin < b.QBegin
	}
	if a.TBegin != b.TBegin {
		return a.TBegin < b.TBegin
	}
	if a.Strand != b.Strand {
		return a.Strand < b.Strand
	}
	return a.first < b.first
}

type byPositionChain []*Chain

func (s byPositionChain) Len() int      { return len(s) }
func (s byPositionChain) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byPositionChain) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.Strand != b.Strand {
		return a.Strand < b.Strand
	}
	if a.QBegin != b.QBegin {
		return a.QBegin < b.QBegin
	}
	if a.TBegin != b.TBegin {
		return a.TBegin < b.TBegin
	}
	return a.first < b.first
}
