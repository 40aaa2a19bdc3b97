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

package alphabet

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
)

func TestEncode(t *testing.T) {
	s := []byte("ACGTNacgtnRy")
	codes, err := DNA.EncodeWithSentinel(s)
	if err != nil {
		t.Error(err)
		return
	}
	expected := []uint8{A, C, G, T, N, A, C, G, T, N, N, N, Sentinel}
	if !bytes.Equal(codes, expected) {
		t.Errorf("expected %v, got %v", expected, codes)
	}

	// the sentinel appears only once, at the end.
	for i, c := range codes[:len(codes)-1] {
		if c == DNA.Sentinel() {
			t.Errorf("sentinel found at %d", i)
		}
	}

	if d := DNA.Decode(codes); string(d) != "ACGTNACGTNNN$" {
		t.Errorf("unexpected decoded sequence: %s", d)
	}
}

func TestEncodeInvalid(t *testing.T) {
	_, err := DNA.Encode([]byte("ACG*T"))
	if err == nil {
		t.Errorf("error expected")
		return
	}
	if !errors.Is(err, ErrInvalidSymbol) || !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("unexpected error type: %s", err)
	}
	t.Logf("%s", err)
}

func TestRevComp(t *testing.T) {
	codes, _ := DNA.Encode([]byte("AACGTN"))
	rc := DNA.RevComp(nil, codes)
	if d := DNA.Decode(rc); string(d) != "NACGTT" {
		t.Errorf("unexpected reverse complement: %s", d)
	}

	// complement is an involution
	for c := 0; c < DNA.Size(); c++ {
		if DNA.Complement(DNA.Complement(uint8(c))) != uint8(c) {
			t.Errorf("complement of complement of %d is not itself", c)
		}
	}
	if DNA.Complement(N) != N || DNA.Complement(Sentinel) != Sentinel {
		t.Errorf("N and the sentinel should be self-complementary")
	}
}

func TestAppendEncoded(t *testing.T) {
	var dst []uint8
	var err error
	dst, err = DNA.AppendEncoded(dst, []byte("AC"), 0)
	if err != nil {
		t.Error(err)
		return
	}
	dst, err = DNA.AppendEncoded(dst, []byte("G-"), 2)
	if err == nil {
		t.Errorf("error expected")
	}
	if len(dst) != 2 {
		t.Errorf("dst should be restored after an error, length: %d", len(dst))
	}
}
