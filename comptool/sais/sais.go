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

// Package sais builds suffix arrays in linear time with induced sorting (SA-IS).
//
// The input text must end with a unique sentinel that is strictly smaller
// than every other symbol, and all symbols must be smaller than the alphabet size.
package sais

import (
	"math"
	"math/bits"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
)

// ErrEmptyText means the text is empty.
var ErrEmptyText = errors.Wrap(util.ErrInvalidInput, "sais: empty text")

// ErrInvalidSentinel means the last symbol is not the unique smallest one.
var ErrInvalidSentinel = errors.Wrap(util.ErrInvalidInput, "sais: the last symbol should be a unique sentinel smaller than all other symbols")

// ErrSymbolOverflow means a symbol is not smaller than the alphabet size.
var ErrSymbolOverflow = errors.Wrap(util.ErrInvalidInput, "sais: symbol out of alphabet")

// ErrTextTooLong means the text can not be indexed with int32.
var ErrTextTooLong = errors.Wrap(util.ErrInvalidInput, "sais: text too long")

// ErrRecursionTooDeep should never happen, as the reduced text is at most half of the input.
var ErrRecursionTooDeep = errors.New("sais: recursion too deep")

// Build returns the suffix array of text.
func Build(text []uint8, alphabetSize int) ([]int32, error) {
	sa := make([]int32, len(text))
	err := BuildInto(text, sa, alphabetSize)
	if err != nil {
		return nil, err
	}
	return sa, nil
}

// BuildInto computes the suffix array of text into sa, which should have the same length.
func BuildInto(text []uint8, sa []int32, alphabetSize int) error {
	n := len(text)
	if n == 0 {
		return ErrEmptyText
	}
	if n > math.MaxInt32 {
		return ErrTextTooLong
	}
	if len(sa) != n {
		return errors.Errorf("sais: length of suffix array (%d) and text (%d) unmatched", len(sa), n)
	}
	if alphabetSize < 1 || alphabetSize > 256 {
		return errors.Wrapf(util.ErrInvalidOption, "sais: alphabet size should be in range of [1, 256]: %d", alphabetSize)
	}

	sentinel := text[n-1]
	for i, c := range text {
		if int(c) >= alphabetSize {
			return errors.Wrapf(ErrSymbolOverflow, "symbol %d at position %d, alphabet size: %d", c, i, alphabetSize)
		}
		if c <= sentinel && i < n-1 {
			return errors.Wrapf(ErrInvalidSentinel, "symbol %d at position %d, sentinel: %d", c, i, sentinel)
		}
	}

	return sais(text, sa, alphabetSize, bits.Len(uint(n))+1)
}

// sais sorts the suffixes of text, whose symbols are in [0, k).
// depth is the number of recursive calls still allowed.
func sais[T uint8 | int32](text []T, sa []int32, k int, depth int) error {
	n := len(text)
	if n == 1 {
		sa[0] = 0
		return nil
	}
	if depth <= 0 {
		return ErrRecursionTooDeep
	}

	// ------------------------------------------------------------------
	// S/L types. true for S-type.

	t := make([]bool, n)
	t[n-1] = true
	for i := n - 2; i >= 0; i-- {
		t[i] = text[i] < text[i+1] || (text[i] == text[i+1] && t[i+1])
	}

	bkt := make([]int32, k)

	// ------------------------------------------------------------------
	// stage 1: sort LMS substrings

	for i := range sa {
		sa[i] = -1
	}
	bucketEnds(text, bkt)
	var c T
	for i := 1; i < n; i++ {
		if t[i] && !t[i-1] {
			c = text[i]
			bkt[c]--
			sa[bkt[c]] = int32(i)
		}
	}
	induceL(text, sa, t, bkt)
	induceS(text, sa, t, bkt)

	// move sorted LMS positions to the front
	var n1 int
	var p int32
	for i := 0; i < n; i++ {
		p = sa[i]
		if p > 0 && t[p] && !t[p-1] {
			sa[n1] = p
			n1++
		}
	}

	// name the LMS substrings, names are stored at n1+pos/2,
	// which never collide as two LMS positions differ by at least 2.
	for i := n1; i < n; i++ {
		sa[i] = -1
	}
	var name int32
	prev := -1
	var pos, d int
	var diff bool
	for i := 0; i < n1; i++ {
		pos = int(sa[i])
		diff = false
		for d = 0; d < n; d++ {
			if prev == -1 || text[pos+d] != text[prev+d] || t[pos+d] != t[prev+d] {
				diff = true
				break
			} else if d > 0 && (isLMS(t, pos+d) || isLMS(t, prev+d)) {
				break
			}
		}
		if diff {
			name++
			prev = pos
		}
		sa[n1+pos>>1] = name - 1
	}
	j := n - 1
	for i := n - 1; i >= n1; i-- {
		if sa[i] >= 0 {
			sa[j] = sa[i]
			j--
		}
	}

	// ------------------------------------------------------------------
	// stage 2: sort the reduced problem

	sa1 := sa[:n1]
	s1 := sa[n-n1:]
	if int(name) < n1 { // some LMS substrings are identical
		if err := sais(s1, sa1, int(name), depth-1); err != nil {
			return err
		}
	} else { // all names are unique
		for i := 0; i < n1; i++ {
			sa1[s1[i]] = int32(i)
		}
	}

	// ------------------------------------------------------------------
	// stage 3: induce the final suffix array from sorted LMS suffixes

	j = 0
	for i := 1; i < n; i++ {
		if t[i] && !t[i-1] {
			s1[j] = int32(i)
			j++
		}
	}
	for i := 0; i < n1; i++ {
		sa1[i] = s1[sa1[i]]
	}
	for i := n1; i < n; i++ {
		sa[i] = -1
	}
	bucketEnds(text, bkt)
	for i := n1 - 1; i >= 0; i-- {
		p = sa[i]
		sa[i] = -1
		c = text[p]
		bkt[c]--
		sa[bkt[c]] = p
	}
	induceL(text, sa, t, bkt)
	induceS(text, sa, t, bkt)

	return nil
}

func isLMS(t []bool, i int) bool {
	return i > 0 && t[i] && !t[i-1]
}

func bucketStarts[T uint8 | int32](text []T, bkt []int32) {
	counts(text, bkt)
	var sum, c int32
	for i := range bkt {
		c = bkt[i]
		bkt[i] = sum
		sum += c
	}
}

func bucketEnds[T uint8 | int32](text []T, bkt []int32) {
	counts(text, bkt)
	var sum int32
	for i := range bkt {
		sum += bkt[i]
		bkt[i] = sum
	}
}

func counts[T uint8 | int32](text []T, bkt []int32) {
	for i := range bkt {
		bkt[i] = 0
	}
	for _, c := range text {
		bkt[c]++
	}
}

// induceL places L-type suffixes, scanning from left to right.
func induceL[T uint8 | int32](text []T, sa []int32, t []bool, bkt []int32) {
	bucketStarts(text, bkt)
	var j int32
	var c T
	for i := 0; i < len(sa); i++ {
		j = sa[i] - 1
		if j >= 0 && !t[j] {
			c = text[j]
			sa[bkt[c]] = j
			bkt[c]++
		}
	}
}

// induceS places S-type suffixes, scanning from right to left.
func induceS[T uint8 | int32](text []T, sa []int32, t []bool, bkt []int32) {
	bucketEnds(text, bkt)
	var j int32
	var c T
	for i := len(sa) - 1; i >= 0; i-- {
		j = sa[i] - 1
		if j >= 0 && t[j] {
			c = text[j]
			bkt[c]--
			sa[bkt[c]] = j
		}
	}
}
