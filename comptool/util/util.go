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

package util

import (
	"github.com/pkg/errors"
	"github.com/twotwotwo/sorts/sortutil"
)

// Error categories shared by all packages. Concrete errors wrap one of them,
// so callers can classify a failure with errors.Is.
var (
	// ErrInvalidInput means malformed sequences, anchor tables or index files.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidOption means an unrecognized or out-of-range option value.
	ErrInvalidOption = errors.New("invalid option")

	// ErrNotFound means a file expected from a previous stage is absent.
	ErrNotFound = errors.New("not found")
)

// UniqInts sorts a list of ints and removes duplicates in place.
func UniqInts(list *[]int) {
	if len(*list) < 2 {
		return
	}

	sortutil.Ints(*list)

	s := *list
	j := 1
	for i := 1; i < len(s); i++ {
		if s[i] != s[j-1] {
			s[j] = s[i]
			j++
		}
	}
	*list = s[:j]
}

// AbsInt returns the absolute value.
func AbsInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
