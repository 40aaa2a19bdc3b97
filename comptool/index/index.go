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

// Package index implements a BWT (FM) index over an integer-encoded sequence
// and its suffix array, supporting exact backward search of k-mers
// on both strands.
package index

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/util"
)

// Strands could be used to output strand for a reverse complement flag
var Strands = [2]byte{'+', '-'}

// Threads is the maximum concurrency number for building the lookup table.
var Threads = runtime.NumCPU()

// ErrInvalidInterval means the sampling interval of occurrence checkpoints is < 1.
var ErrInvalidInterval = errors.Wrap(util.ErrInvalidOption, "bwt index: sampling interval should be >= 1")

// ErrSeqSAMismatch means the suffix array does not belong to the sequence.
var ErrSeqSAMismatch = errors.Wrap(util.ErrInvalidInput, "bwt index: sequence and suffix array unmatched")

// ErrInvalidQuerySymbol means a query symbol is out of the alphabet.
var ErrInvalidQuerySymbol = errors.Wrap(util.ErrInvalidInput, "bwt index: invalid query symbol")

// Index is a BWT index. It is read-only after creation,
// and safe for concurrent searching.
type Index struct {
	alphabet *alphabet.Alphabet
	size     int // alphabet size
	interval int // sampling interval of occurrence checkpoints

	seq []uint8 // encoded sequence with the sentinel, shared, never modified
	sa  []int32 // suffix array, shared, never modified

	bwt []uint8
	c   []int   // c[s]: number of symbols < s, len(c) == size+1
	occ []int32 // occ[r*size+s]: number of s in bwt[0:r*interval]

	// optional p-mer lookup table, two values (lower, upper) for each p-mer
	lookupP   int
	lookup    []int32
	sym2bit   [256]uint8
	withTable bool

	// ------------- optional -------------

	// names and start positions of records concatenated in the sequence
	SeqNames   []string
	SeqOffsets []int
	// source file of the sequence
	Source string
}

// New creates a BWT index from an encoded sequence (ending with the sentinel)
// and its suffix array. Both are borrowed and must not be modified afterwards.
// interval is the sampling interval of occurrence checkpoints, 1 for the fastest search.
func New(seq []uint8, sa []int32, alpha *alphabet.Alphabet, interval int) (*Index, error) {
	if interval < 1 {
		return nil, errors.Wrapf(ErrInvalidInterval, "%d", interval)
	}
	n := len(seq)
	if n == 0 || len(sa) != n {
		return nil, errors.Wrapf(ErrSeqSAMismatch, "sequence length: %d, suffix array length: %d", n, len(sa))
	}
	if seq[n-1] != alpha.Sentinel() {
		return nil, errors.Wrap(ErrSeqSAMismatch, "the sequence should end with the sentinel")
	}
	if int(sa[0]) != n-1 {
		return nil, errors.Wrap(ErrSeqSAMismatch, "the first suffix should be the sentinel")
	}

	err := checkSA(seq, sa, alpha.Size())
	if err != nil {
		return nil, err
	}

	size := alpha.Size()
	idx := &Index{
		alphabet: alpha,
		size:     size,
		interval: interval,
		seq:      seq,
		sa:       sa,
	}

	// BWT and symbol counts
	bwt := make([]uint8, n)
	counts := make([]int, size)
	var p int32
	for i := 0; i < n; i++ {
		p = sa[i]
		if p == 0 { // wrap around to the sentinel
			bwt[i] = seq[n-1]
		} else {
			bwt[i] = seq[p-1]
		}

		counts[seq[i]]++
	}
	idx.bwt = bwt

	// cumulative counts
	c := make([]int, size+1)
	for i := 0; i < size; i++ {
		c[i+1] = c[i] + counts[i]
	}
	idx.c = c

	// occurrence checkpoints
	rows := n/interval + 1
	occ := make([]int32, rows*size)
	cur := make([]int32, size)
	for j := 0; j <= n; j++ {
		if j%interval == 0 {
			copy(occ[(j/interval)*size:], cur)
		}
		if j < n {
			cur[bwt[j]]++
		}
	}
	idx.occ = occ

	for i := range idx.sym2bit {
		idx.sym2bit[i] = 0xff
	}

	return idx, nil
}

// Len returns the length of the sequence, excluding the sentinel.
func (idx *Index) Len() int { return len(idx.seq) - 1 }

// Interval returns the sampling interval of occurrence checkpoints.
func (idx *Index) Interval() int { return idx.interval }

// Alphabet returns the alphabet.
func (idx *Index) Alphabet() *alphabet.Alphabet { return idx.alphabet }

// Seq returns the encoded sequence, including the sentinel. Do not modify it.
func (idx *Index) Seq() []uint8 { return idx.seq }

// SA returns the suffix array. Do not modify it.
func (idx *Index) SA() []int32 { return idx.sa }

// BWT returns the Burrows-Wheeler transform. Do not modify it.
func (idx *Index) BWT() []uint8 { return idx.bwt }

// LookupPrefix returns the prefix length of the lookup table, 0 for none.
func (idx *Index) LookupPrefix() int { return idx.lookupP }

// Bytes returns the approximate memory occupation of the index, including
// the shared sequence and suffix array.
func (idx *Index) Bytes() int {
	return len(idx.seq) + len(idx.sa)*4 + len(idx.bwt) + len(idx.c)*8 + len(idx.occ)*4 + len(idx.lookup)*4
}

// rank returns the number of symbol s in bwt[0:i].
func (idx *Index) rank(s uint8, i int) int {
	r := i / idx.interval
	n := int(idx.occ[r*idx.size+int(s)])
	for _, b := range idx.bwt[r*idx.interval : i] {
		if b == s {
			n++
		}
	}
	return n
}

// Locate returns the sequence position of the i-th suffix.
func (idx *Index) Locate(i int) int {
	return int(idx.sa[i])
}

// Positions appends sequence positions of suffixes in [lower, upper] to dst,
// at most maxHits positions when maxHits > 0.
func (idx *Index) Positions(lower, upper int, maxHits int, dst []int) []int {
	if lower > upper {
		return dst
	}
	if maxHits > 0 && upper-lower+1 > maxHits {
		upper = lower + maxHits - 1
	}
	for i := lower; i <= upper; i++ {
		dst = append(dst, int(idx.sa[i]))
	}
	return dst
}

// Search performs backward search of a query and returns the suffix array
// range [lower, upper]. lower > upper means no matches.
func (idx *Index) Search(query []uint8) (lower, upper int, err error) {
	lower, upper = 0, len(idx.seq)-1
	i := len(query) - 1

	// start from the cached range of the last p symbols
	if idx.withTable && len(query) >= idx.lookupP {
		if code, ok := idx.code(query[len(query)-idx.lookupP:]); ok {
			lower, upper = int(idx.lookup[code<<1]), int(idx.lookup[code<<1+1])
			if lower > upper {
				return lower, upper, nil
			}
			i -= idx.lookupP
		}
	}

	var s uint8
	sentinel := idx.alphabet.Sentinel()
	for ; i >= 0; i-- {
		s = query[i]
		if int(s) >= idx.size {
			return 0, -1, errors.Wrapf(ErrInvalidQuerySymbol, "%d at position %d", s, i)
		}
		if s == sentinel {
			return 0, -1, nil
		}

		lower = idx.c[s] + idx.rank(s, lower)
		upper = idx.c[s] + idx.rank(s, upper+1) - 1
		if lower > upper {
			return lower, upper, nil
		}
	}
	return lower, upper, nil
}

var poolQuery = &sync.Pool{New: func() interface{} {
	tmp := make([]uint8, 0, 64)
	return &tmp
}}

// SearchRevComp searches the reverse complement of a query,
// for finding matches on the other strand without rebuilding the index.
func (idx *Index) SearchRevComp(query []uint8) (lower, upper int, err error) {
	for i, s := range query {
		if int(s) >= idx.size {
			return 0, -1, errors.Wrapf(ErrInvalidQuerySymbol, "%d at position %d", s, i)
		}
	}

	buf := poolQuery.Get().(*[]uint8)
	*buf = idx.alphabet.RevComp(*buf, query)
	lower, upper, err = idx.Search(*buf)
	poolQuery.Put(buf)
	return
}

// checkSA checks that sa is the suffix array of seq in O(n) time.
// sa must be a permutation of [0, n), and every two adjacent suffixes
// are compared by their first symbols and the ranks of the remaining suffixes.
func checkSA(seq []uint8, sa []int32, size int) error {
	n := len(seq)
	for i, s := range seq {
		if int(s) >= size {
			return errors.Wrapf(ErrSeqSAMismatch, "invalid symbol %d at %d", s, i)
		}
	}

	rank := make([]int32, n)
	for i := range rank {
		rank[i] = -1
	}
	var p int32
	for i := 0; i < n; i++ {
		p = sa[i]
		if p < 0 || int(p) >= n {
			return errors.Wrapf(ErrSeqSAMismatch, "invalid suffix array value: %d", p)
		}
		if rank[p] >= 0 {
			return errors.Wrapf(ErrSeqSAMismatch, "duplicated suffix array value: %d", p)
		}
		rank[p] = int32(i)
	}

	var a, b int32
	last := int32(n - 1)
	for i := 1; i < n; i++ {
		a, b = sa[i-1], sa[i]
		if seq[a] < seq[b] {
			continue
		}
		if seq[a] > seq[b] || a == last || b == last || rank[a+1] > rank[b+1] {
			return errors.Wrapf(ErrSeqSAMismatch, "suffixes %d and %d out of order", a, b)
		}
	}
	return nil
}
