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

// Package anchor defines exact-match anchors between a query and a target,
// and the tab-delimited anchor tables passed from the search stage to the chaining stage.
//
// Each table starts with a header line:
//
//	#<query file>\t<target file>
//
// followed by one anchor per line with five columns:
//
//	qbegin  tbegin  len  strand  diag
//
// qbegin and tbegin are 0-based start positions on the forward strands of
// the query and target. strand is 0 for forward matches and 1 for matches
// of the reverse complement k-mer. diag is tbegin-qbegin for forward matches,
// and tbegin+qbegin+len-1 for reverse ones, both are constant along a colinear run.
package anchor

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
)

// Forward and Reverse are values of Anchor.Strand.
const (
	Forward = 0
	Reverse = 1
)

// ErrInvalidLine means a line of an anchor table is malformed.
var ErrInvalidLine = errors.Wrap(util.ErrInvalidInput, "anchor: invalid line")

// ErrInvalidHeader means the file is empty and the header line is missing.
var ErrInvalidHeader = errors.Wrap(util.ErrInvalidInput, "anchor: invalid header line")

// Anchor is an exact match between a query and a target.
type Anchor struct {
	QBegin int
	TBegin int
	Len    int
	Strand int
	Diag   int
}

// New returns an anchor with the diagonal computed.
func New(qBegin, tBegin, length, strand int) Anchor {
	return Anchor{
		QBegin: qBegin,
		TBegin: tBegin,
		Len:    length,
		Strand: strand,
		Diag:   Diagonal(qBegin, tBegin, length, strand),
	}
}

// Diagonal returns the diagonal of a forward match, or the anti-diagonal
// of a reverse match.
func Diagonal(qBegin, tBegin, length, strand int) int {
	if strand == Reverse {
		return tBegin + qBegin + length - 1
	}
	return tBegin - qBegin
}

// QEnd returns the end position (exclusive) on the query.
func (a *Anchor) QEnd() int { return a.QBegin + a.Len }

// TEnd returns the end position (exclusive) on the target.
func (a *Anchor) TEnd() int { return a.TBegin + a.Len }

func (a Anchor) String() string {
	return fmt.Sprintf("q[%d, %d) vs t[%d, %d) %c", a.QBegin, a.QEnd(), a.TBegin, a.TEnd(), StrandSymbol(a.Strand))
}

// Validate checks the strand and diagonal.
func (a *Anchor) Validate() error {
	if a.Strand != Forward && a.Strand != Reverse {
		return errors.Wrapf(ErrInvalidLine, "strand should be 0 or 1: %d", a.Strand)
	}
	if a.QBegin < 0 || a.TBegin < 0 || a.Len <= 0 {
		return errors.Wrapf(ErrInvalidLine, "negative positions or non-positive length: %d %d %d", a.QBegin, a.TBegin, a.Len)
	}
	if d := Diagonal(a.QBegin, a.TBegin, a.Len, a.Strand); d != a.Diag {
		return errors.Wrapf(ErrInvalidLine, "diagonal unmatched: %d, expected %d", a.Diag, d)
	}
	return nil
}

// StrandSymbol returns '+' or '-'.
func StrandSymbol(strand int) byte {
	if strand == Reverse {
		return '-'
	}
	return '+'
}
