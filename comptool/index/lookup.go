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

package index

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/kmers"
)

// MaxLookupPrefix is the maximum prefix length of the lookup table,
// the table has 4^p entries.
const MaxLookupPrefix = 12

// ErrInvalidLookupPrefix means the prefix length is out of range.
var ErrInvalidLookupPrefix = errors.Wrapf(util.ErrInvalidOption, "bwt index: lookup prefix length should be in range of [0, %d]", MaxLookupPrefix)

// ErrLookupAlphabet means the alphabet does not contain the four bases.
var ErrLookupAlphabet = errors.Wrap(util.ErrInvalidOption, "bwt index: lookup table needs an alphabet with A, C, G and T")

// BuildLookup precomputes suffix array ranges of all p-mers of A/C/G/T,
// so searches of queries ending with such a p-mer skip the first p steps.
// p == 0 removes the table. Please call it before searching.
func (idx *Index) BuildLookup(p int) error {
	if p < 0 || p > MaxLookupPrefix {
		return errors.Wrapf(ErrInvalidLookupPrefix, "%d", p)
	}
	idx.withTable = false
	idx.lookup = nil
	idx.lookupP = 0
	if p == 0 {
		return nil
	}

	bases, err := idx.alphabet.Encode([]byte("ACGT"))
	if err != nil {
		return ErrLookupAlphabet
	}
	for i := range idx.sym2bit {
		idx.sym2bit[i] = 0xff
	}
	for i, s := range bases {
		idx.sym2bit[s] = uint8(i) // the same order as k-mer codes
	}

	n := 1 << (p << 1)
	table := make([]int32, n<<1)

	// searching in parallel, the table is not used yet.
	var wg sync.WaitGroup
	tokens := make(chan int, Threads)
	chunkSize := n/Threads + 1
	var chErr = make(chan error, Threads)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		tokens <- 1
		go func(start, end int) {
			defer func() {
				wg.Done()
				<-tokens
			}()

			var lower, upper int
			var err error
			var codes []uint8
			for code := start; code < end; code++ {
				codes, err = idx.alphabet.Encode(kmers.MustDecode(uint64(code), p))
				if err == nil {
					lower, upper, err = idx.Search(codes)
				}
				if err != nil {
					chErr <- err
					return
				}
				if lower > upper { // a canonical empty range
					lower, upper = 1, 0
				}
				table[code<<1] = int32(lower)
				table[code<<1+1] = int32(upper)
			}
		}(start, end)
	}
	wg.Wait()
	close(chErr)
	for err = range chErr {
		return err
	}

	idx.lookup = table
	idx.lookupP = p
	idx.withTable = true
	return nil
}

// code returns the k-mer code of a query with only A/C/G/T.
func (idx *Index) code(query []uint8) (int, bool) {
	var code int
	var b uint8
	for _, s := range query {
		b = idx.sym2bit[s]
		if b == 0xff {
			return 0, false
		}
		code = code<<2 | int(b)
	}
	return code, true
}
