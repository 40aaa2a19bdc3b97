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
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/sais"
	"github.com/shenwei356/comptool/comptool/util"
)

func buildIndex(t *testing.T, s []byte, interval int) *Index {
	seq, err := alphabet.DNA.EncodeWithSentinel(s)
	if err != nil {
		t.Fatal(err)
	}
	sa, err := sais.Build(seq, alphabet.DNA.Size())
	if err != nil {
		t.Fatal(err)
	}
	idx, err := New(seq, sa, alphabet.DNA, interval)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func randSeq(n int, bases string) []byte {
	s := make([]byte, n)
	for i := range s {
		s[i] = bases[rand.Intn(len(bases))]
	}
	return s
}

func naiveOccurrences(s, q []byte) []int {
	locs := make([]int, 0, 8)
	for i := 0; i+len(q) <= len(s); i++ {
		if bytes.Equal(s[i:i+len(q)], q) {
			locs = append(locs, i)
		}
	}
	return locs
}

func searchPositions(t *testing.T, idx *Index, q []byte, rc bool) []int {
	codes, err := alphabet.DNA.Encode(q)
	if err != nil {
		t.Fatal(err)
	}
	var lower, upper int
	if rc {
		lower, upper, err = idx.SearchRevComp(codes)
	} else {
		lower, upper, err = idx.Search(codes)
	}
	if err != nil {
		t.Fatal(err)
	}
	locs := idx.Positions(lower, upper, 0, nil)
	sort.Ints(locs)
	return locs
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearchExample(t *testing.T) {
	idx := buildIndex(t, []byte("ACGTACGTACGT"), 1)

	locs := searchPositions(t, idx, []byte("ACGT"), false)
	if !equalInts(locs, []int{0, 4, 8}) {
		t.Errorf("unexpected matches: %v", locs)
	}

	// a k-mer not in the sequence
	codes, _ := alphabet.DNA.Encode([]byte("NNNN"))
	lower, upper, err := idx.Search(codes)
	if err != nil {
		t.Error(err)
		return
	}
	if lower <= upper {
		t.Errorf("empty range expected, got [%d, %d]", lower, upper)
	}

	// the sentinel never matches
	lower, upper, _ = idx.Search([]uint8{alphabet.T, alphabet.Sentinel})
	if lower <= upper {
		t.Errorf("empty range expected for a query with the sentinel, got [%d, %d]", lower, upper)
	}

	// invalid symbol
	_, _, err = idx.Search([]uint8{alphabet.A, 9})
	if !errors.Is(err, ErrInvalidQuerySymbol) || !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected invalid query symbol error, got %v", err)
	}
}

func TestSearchSoundnessAndCompleteness(t *testing.T) {
	for _, interval := range []int{1, 3, 16, 64} {
		for r := 0; r < 3; r++ {
			s := randSeq(2000, "ACGTACGTACGTN")
			idx := buildIndex(t, s, interval)

			for _, k := range []int{1, 4, 9, 15} {
				// substrings of s
				for i := 0; i < 50; i++ {
					p := rand.Intn(len(s) - k + 1)
					q := s[p : p+k]
					locs := searchPositions(t, idx, q, false)
					expected := naiveOccurrences(s, q)
					if len(locs) == 0 {
						t.Errorf("interval %d: no matches for a substring %s at %d", interval, q, p)
						return
					}
					if !equalInts(locs, expected) {
						t.Errorf("interval %d: unmatched occurrences of %s: %v vs %v", interval, q, locs, expected)
						return
					}
				}

				// random queries, might be absent
				for i := 0; i < 50; i++ {
					q := randSeq(k, "ACGT")
					locs := searchPositions(t, idx, q, false)
					if !equalInts(locs, naiveOccurrences(s, q)) {
						t.Errorf("interval %d: unmatched occurrences of %s", interval, q)
						return
					}
				}
			}
		}
	}
}

func revcomp(s []byte) []byte {
	codes, _ := alphabet.DNA.Encode(s)
	return alphabet.DNA.Decode(alphabet.DNA.RevComp(nil, codes))
}

func TestSearchRevComp(t *testing.T) {
	s := randSeq(3000, "ACGT")
	rc := revcomp(s)
	n := len(s)

	idx := buildIndex(t, s, 4)
	idxRC := buildIndex(t, rc, 4)

	for _, k := range []int{5, 8, 12} {
		for i := 0; i < 100; i++ {
			var q []byte
			if i&1 == 0 {
				p := rand.Intn(n - k + 1)
				q = rc[p : p+k]
			} else {
				q = randSeq(k, "ACGT")
			}

			locs := searchPositions(t, idx, q, true)

			// positions in the reverse complement sequence
			locs2 := searchPositions(t, idxRC, q, false)
			for j, p := range locs2 {
				locs2[j] = n - p - k
			}
			sort.Ints(locs2)

			if !equalInts(locs, locs2) {
				t.Errorf("reverse complement matches unmatched for %s: %v vs %v", q, locs, locs2)
				return
			}
			if !equalInts(locs, naiveOccurrences(s, revcomp(q))) {
				t.Errorf("reverse complement matches unmatched with naive search for %s", q)
				return
			}
		}
	}
}

func TestLookup(t *testing.T) {
	s := randSeq(5000, "ACGTACGTACGTACGTN")
	idx := buildIndex(t, s, 8)
	idx2 := buildIndex(t, s, 8)
	if err := idx2.BuildLookup(5); err != nil {
		t.Error(err)
		return
	}

	for _, k := range []int{3, 5, 6, 11} {
		for i := 0; i < 200; i++ {
			var q []byte
			if i&1 == 0 {
				p := rand.Intn(len(s) - k + 1)
				q = s[p : p+k]
			} else {
				q = randSeq(k, "ACGTN")
			}
			codes, _ := alphabet.DNA.Encode(q)
			l1, u1, err1 := idx.Search(codes)
			l2, u2, err2 := idx2.Search(codes)
			if err1 != nil || err2 != nil {
				t.Errorf("unexpected errors: %v, %v", err1, err2)
				return
			}
			if l1 <= u1 != (l2 <= u2) || (l1 <= u1 && (l1 != l2 || u1 != u2)) {
				t.Errorf("search results with lookup table unmatched for %s: [%d, %d] vs [%d, %d]", q, l1, u1, l2, u2)
				return
			}
		}
	}

	if err := idx2.BuildLookup(MaxLookupPrefix + 1); !errors.Is(err, util.ErrInvalidOption) {
		t.Errorf("expected invalid option error, got %v", err)
	}
}

func TestNewInvalid(t *testing.T) {
	seq, _ := alphabet.DNA.EncodeWithSentinel([]byte("ACGT"))
	sa, _ := sais.Build(seq, alphabet.DNA.Size())

	if _, err := New(seq, sa, alphabet.DNA, 0); !errors.Is(err, util.ErrInvalidOption) {
		t.Errorf("expected invalid option error, got %v", err)
	}
	if _, err := New(seq, sa[:3], alphabet.DNA, 1); !errors.Is(err, ErrSeqSAMismatch) {
		t.Errorf("expected ErrSeqSAMismatch, got %v", err)
	}

	// swapped, duplicated and out-of-range values
	for _, bad := range [][2]int{{1, 2}, {2, 4}, {1, 4}} {
		sa2 := make([]int32, len(sa))
		copy(sa2, sa)
		sa2[bad[0]], sa2[bad[1]] = sa2[bad[1]], sa2[bad[0]]
		if _, err := New(seq, sa2, alphabet.DNA, 1); !errors.Is(err, ErrSeqSAMismatch) {
			t.Errorf("swapped %v: expected ErrSeqSAMismatch, got %v", bad, err)
		}
	}
	sa2 := make([]int32, len(sa))
	copy(sa2, sa)
	sa2[2] = sa2[3]
	if _, err := New(seq, sa2, alphabet.DNA, 1); !errors.Is(err, ErrSeqSAMismatch) {
		t.Errorf("duplicated: expected ErrSeqSAMismatch, got %v", err)
	}
	sa2[2] = 9
	if _, err := New(seq, sa2, alphabet.DNA, 1); !errors.Is(err, ErrSeqSAMismatch) {
		t.Errorf("out of range: expected ErrSeqSAMismatch, got %v", err)
	}

	// the sentinel in the middle
	seq2 := []uint8{1, 0, 2, 0}
	if _, err := New(seq2, []int32{3, 1, 0, 2}, alphabet.DNA, 1); !errors.Is(err, ErrSeqSAMismatch) {
		t.Errorf("sentinel in the middle: expected ErrSeqSAMismatch, got %v", err)
	}
}

func TestPositionsLimit(t *testing.T) {
	idx := buildIndex(t, []byte("AAAAAAAAAA"), 2)
	codes, _ := alphabet.DNA.Encode([]byte("AA"))
	lower, upper, _ := idx.Search(codes)
	if upper-lower+1 != 9 {
		t.Errorf("expected 9 matches, got %d", upper-lower+1)
	}
	locs := idx.Positions(lower, upper, 3, nil)
	if len(locs) != 3 {
		t.Errorf("expected 3 positions, got %d", len(locs))
	}
}
