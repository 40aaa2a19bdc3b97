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
	"bufio"
	"io"

	"github.com/pkg/errors"
)

var offsetsUint32 = []uint8{24, 16, 8, 0}

// ErrBrokenStream means the encoded integers end abruptly.
var ErrBrokenStream = errors.New("varint-GB: broken stream")

// PutUint32s encodes four uint32s into 4-16 bytes, and returns control byte
// and encoded byte length.
func PutUint32s(buf []byte, v1, v2, v3, v4 uint32) (ctrl byte, n int) {
	for _, v := range [4]uint32{v1, v2, v3, v4} {
		blen := ByteLengthUint32(v)
		ctrl = ctrl<<2 | byte(blen-1)
		for _, offset := range offsetsUint32[4-blen:] {
			buf[n] = byte((v >> offset) & 0xff)
			n++
		}
	}
	return
}

// Uint32s decodes encoded bytes.
func Uint32s(ctrl byte, buf []byte) (v1, v2, v3, v4 uint32, n int) {
	if len(buf) < CtrlByte2ByteLengthsUint32(ctrl) {
		return 0, 0, 0, 0, 0
	}

	var vs [4]uint32
	var blen, j int
	for i := 0; i < 4; i++ {
		blen = int((ctrl>>(6-i<<1))&3) + 1
		for j = 0; j < blen; j++ {
			vs[i] <<= 8
			vs[i] |= uint32(buf[n])
			n++
		}
	}

	return vs[0], vs[1], vs[2], vs[3], n
}

// ByteLengthUint32 returns the minimum number of bytes to store a integer.
func ByteLengthUint32(n uint32) uint8 {
	if n < 256 {
		return 1
	}
	if n < 65536 {
		return 2
	}
	if n < 16777216 {
		return 3
	}
	return 4
}

// CtrlByte2ByteLengthsUint32 returns the byte length for a given control byte.
func CtrlByte2ByteLengthsUint32(ctrl byte) int {
	return int(ctrl>>6&3+ctrl>>4&3+ctrl>>2&3+ctrl&3) + 4
}

// WriteInt32s writes non-negative int32s in groups of four,
// each group is a control byte followed by 4-16 bytes.
// The last group is padded with zeros, so the reader needs the count.
func WriteInt32s(w *bufio.Writer, vs []int32) error {
	buf := make([]byte, 17)
	var ctrl byte
	var n int
	var g [4]uint32
	for i := 0; i < len(vs); i += 4 {
		g = [4]uint32{}
		for j := 0; j < 4 && i+j < len(vs); j++ {
			g[j] = uint32(vs[i+j])
		}
		ctrl, n = PutUint32s(buf[1:], g[0], g[1], g[2], g[3])
		buf[0] = ctrl
		if _, err := w.Write(buf[:n+1]); err != nil {
			return err
		}
	}
	return nil
}

// ReadInt32s reads len(vs) int32s written by WriteInt32s.
func ReadInt32s(r io.Reader, vs []int32) error {
	buf := make([]byte, 17)
	var n, j int
	var err error
	var g [4]uint32
	for i := 0; i < len(vs); i += 4 {
		if _, err = io.ReadFull(r, buf[:1]); err != nil {
			return errors.Wrap(ErrBrokenStream, err.Error())
		}
		n = CtrlByte2ByteLengthsUint32(buf[0])
		if _, err = io.ReadFull(r, buf[1:n+1]); err != nil {
			return errors.Wrap(ErrBrokenStream, err.Error())
		}
		g[0], g[1], g[2], g[3], _ = Uint32s(buf[0], buf[1:n+1])
		for j = 0; j < 4 && i+j < len(vs); j++ {
			vs[i+j] = int32(g[j])
		}
	}
	return nil
}
