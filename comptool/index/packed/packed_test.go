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

package packed

import (
	"bytes"
	"io"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestPackAndUnpack(t *testing.T) {
	_codes := []uint8{1, 2, 3, 4, 5, 0, 4, 3, 2, 1, 5, 5, 1}
	var codes, codes2 []uint8
	var p *[]byte
	var err error
	for n := 0; n <= len(_codes); n++ {
		codes = _codes[:n]
		p, err = Pack(codes)
		if err != nil {
			t.Error(err)
			return
		}
		codes2, err = Unpack(*p, n)
		if err != nil {
			t.Error(err)
			return
		}
		if !bytes.Equal(codes, codes2) {
			t.Errorf("expected: %v, results: %v\n", codes, codes2)
			return
		}
		RecyclePacked(p)
	}

	if _, err = Pack([]uint8{1, 16}); !errors.Is(err, ErrSymbolOverflow) {
		t.Errorf("expected ErrSymbolOverflow, got: %v", err)
	}
}

func TestReadAndWrite(t *testing.T) {
	file := filepath.Join(t.TempDir(), "t.bin")

	seqs := make([][]uint8, 10)
	for i := range seqs {
		seqs[i] = make([]uint8, rand.Intn(1000))
		for j := range seqs[i] {
			seqs[i][j] = uint8(rand.Intn(6))
		}
	}

	w, err := NewWriter(file)
	if err != nil {
		t.Error(err)
		return
	}
	for _, s := range seqs {
		if err = w.Write(s); err != nil {
			t.Error(err)
			return
		}
	}
	if err = w.Close(); err != nil {
		t.Error(err)
		return
	}

	r, err := NewReader(file)
	if err != nil {
		t.Error(err)
		return
	}
	defer r.Close()

	var s []uint8
	for i := 0; ; i++ {
		s, err = r.Read()
		if err != nil {
			if err == io.EOF {
				if i != len(seqs) {
					t.Errorf("expected %d seqs, read %d", len(seqs), i)
				}
				break
			}
			t.Error(err)
			return
		}
		if !bytes.Equal(s, seqs[i]) {
			t.Errorf("seq #%d unmatched", i)
		}
	}
}
