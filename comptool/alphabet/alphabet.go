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

// Package alphabet maps sequence characters to the small integer codes
// used by the suffix array builder, the BWT index and the k-mer search.
package alphabet

import (
	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
)

// Codes of the default DNA alphabet.
const (
	Sentinel uint8 = 0
	A        uint8 = 1
	C        uint8 = 2
	G        uint8 = 3
	T        uint8 = 4
	N        uint8 = 5
)

// ErrInvalidSymbol means a byte can not be encoded.
var ErrInvalidSymbol = errors.Wrap(util.ErrInvalidInput, "alphabet: invalid symbol")

// Alphabet describes an integer alphabet with a reserved sentinel.
// The sentinel code is strictly smaller than every other code,
// and is never produced by Encode.
type Alphabet struct {
	size     int
	sentinel uint8
	unknown  uint8

	encode     [256]uint8 // byte -> code, 0xff for invalid bytes
	decode     []byte     // code -> byte
	complement []uint8    // code -> code
}

const invalid uint8 = 0xff

// DNA is the nucleotide alphabet: $ A C G T N.
// IUPAC ambiguity codes are treated as N, and lower-case letters are accepted.
var DNA = newDNA()

func newDNA() *Alphabet {
	a := &Alphabet{
		size:       6,
		sentinel:   Sentinel,
		unknown:    N,
		decode:     []byte{'$', 'A', 'C', 'G', 'T', 'N'},
		complement: []uint8{Sentinel, T, G, C, A, N},
	}
	for i := range a.encode {
		a.encode[i] = invalid
	}
	for b, c := range map[byte]uint8{'A': A, 'C': C, 'G': G, 'T': T, 'U': T, 'N': N} {
		a.encode[b] = c
		a.encode[b+32] = c
	}
	for _, b := range []byte("RYSWKMBDHVX") {
		a.encode[b] = N
		a.encode[b+32] = N
	}
	return a
}

// Size returns the alphabet size, including the sentinel.
func (a *Alphabet) Size() int { return a.size }

// String returns all symbols in the order of their codes, e.g., "$ACGTN".
func (a *Alphabet) String() string { return string(a.decode) }

// Sentinel returns the code of the sentinel.
func (a *Alphabet) Sentinel() uint8 { return a.sentinel }

// Unknown returns the code of unknown symbols.
func (a *Alphabet) Unknown() uint8 { return a.unknown }

// IsUnknown tells if the code is the unknown symbol.
func (a *Alphabet) IsUnknown(c uint8) bool { return c == a.unknown }

// Valid tells if c is a code of this alphabet.
func (a *Alphabet) Valid(c uint8) bool { return int(c) < a.size }

// Complement returns the code of the complementary symbol.
func (a *Alphabet) Complement(c uint8) uint8 { return a.complement[c] }

// Encode converts a sequence to codes, without appending the sentinel.
func (a *Alphabet) Encode(s []byte) ([]uint8, error) {
	codes := make([]uint8, len(s))
	if err := a.encodeTo(codes, s, 0); err != nil {
		return nil, err
	}
	return codes, nil
}

// EncodeWithSentinel converts a sequence to codes and appends the sentinel.
func (a *Alphabet) EncodeWithSentinel(s []byte) ([]uint8, error) {
	codes := make([]uint8, len(s)+1)
	if err := a.encodeTo(codes, s, 0); err != nil {
		return nil, err
	}
	codes[len(s)] = a.sentinel
	return codes, nil
}

// AppendEncoded appends the codes of s to dst.
// offset is the position of s in the whole sequence, only used in error messages.
func (a *Alphabet) AppendEncoded(dst []uint8, s []byte, offset int) ([]uint8, error) {
	n := len(dst)
	dst = append(dst, make([]uint8, len(s))...)
	if err := a.encodeTo(dst[n:], s, offset); err != nil {
		return dst[:n], err
	}
	return dst, nil
}

func (a *Alphabet) encodeTo(dst []uint8, s []byte, offset int) error {
	var c uint8
	for i, b := range s {
		c = a.encode[b]
		if c == invalid {
			return errors.Wrapf(ErrInvalidSymbol, "%q at position %d", b, offset+i+1)
		}
		dst[i] = c
	}
	return nil
}

// Decode converts codes back to a sequence.
func (a *Alphabet) Decode(codes []uint8) []byte {
	s := make([]byte, len(codes))
	for i, c := range codes {
		if int(c) < a.size {
			s[i] = a.decode[c]
		} else {
			s[i] = '?'
		}
	}
	return s
}

// RevComp writes the reverse complement of src into dst and returns it.
// dst is reused when its capacity is enough.
func (a *Alphabet) RevComp(dst, src []uint8) []uint8 {
	if cap(dst) < len(src) {
		dst = make([]uint8, len(src))
	}
	dst = dst[:len(src)]
	n := len(src) - 1
	for i, c := range src {
		dst[n-i] = a.complement[c]
	}
	return dst
}
