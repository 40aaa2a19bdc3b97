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

// Package packed stores integer-encoded sequences with two symbols per byte.
package packed

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/util"
)

var be = binary.BigEndian

// Magic number for checking file format
var Magic = [8]byte{'n', 'i', 'b', 'b', 'l', 'e', 's', 'q'}

// MainVersion is use for checking compatibility
var MainVersion uint8 = 0

// MinorVersion is less important
var MinorVersion uint8 = 1

// BufferSize is size of reading and writing buffer
var BufferSize = 65536 // os.Getpagesize()

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.Wrap(util.ErrInvalidInput, "packed seqs: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.Wrap(util.ErrInvalidInput, "packed seqs: broken file")

// ErrVersionMismatch means version mismatch between files and program
var ErrVersionMismatch = errors.Wrap(util.ErrInvalidInput, "packed seqs: version mismatch")

// ErrSymbolOverflow means a code can not be stored in 4 bits.
var ErrSymbolOverflow = errors.Wrap(util.ErrInvalidInput, "packed seqs: symbol code > 15")

// ErrInvalidPackedData means the length of packed data does not match the number of symbols
var ErrInvalidPackedData = errors.Wrap(util.ErrInvalidInput, "packed seqs: invalid packed data")

// Writer saves integer-encoded sequences into a binary file.
type Writer struct {
	fh  *os.File
	w   *bufio.Writer
	buf []byte
}

// NewWriter creates a new Writer.
func NewWriter(file string) (*Writer, error) {
	w := &Writer{buf: make([]byte, 16)}
	var err error
	w.fh, err = os.Create(file)
	if err != nil {
		return nil, err
	}
	w.w = bufio.NewWriterSize(w.fh, BufferSize)

	// 8-byte magic number
	err = binary.Write(w.w, be, Magic)
	if err != nil {
		return nil, err
	}

	// 8-byte meta info
	// actually, only 2 bytes used and the left 6 bytes is preserved.
	err = binary.Write(w.w, be, [8]uint8{MainVersion, MinorVersion})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Write packs and writes one sequence.
func (w *Writer) Write(codes []uint8) error {
	p, err := Pack(codes)
	if err != nil {
		return err
	}
	defer RecyclePacked(p)

	// the number of bytes and symbols
	be.PutUint64(w.buf[:8], uint64(len(*p)))
	be.PutUint64(w.buf[8:16], uint64(len(codes)))
	_, err = w.w.Write(w.buf[:16])
	if err != nil {
		return err
	}

	_, err = w.w.Write(*p)
	return err
}

// Close flushes the data and closes the file.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if err != nil {
		return err
	}
	return w.fh.Close()
}

// Reader reads sequences written by Writer, one by one.
type Reader struct {
	fh  *os.File
	r   *bufio.Reader
	buf []byte
}

// NewReader returns a reader from a file
func NewReader(file string) (*Reader, error) {
	var err error
	r := &Reader{buf: make([]byte, 16)}

	r.fh, err = os.Open(file)
	if err != nil {
		return nil, err
	}
	r.r = bufio.NewReaderSize(r.fh, BufferSize)

	buf := r.buf
	// check the magic number
	_, err = io.ReadFull(r.r, buf[:8])
	if err != nil {
		r.fh.Close()
		return nil, ErrBrokenFile
	}
	for i := 0; i < 8; i++ {
		if Magic[i] != buf[i] {
			r.fh.Close()
			return nil, ErrInvalidFileFormat
		}
	}

	// read metadata
	_, err = io.ReadFull(r.r, buf[:8])
	if err != nil {
		r.fh.Close()
		return nil, ErrBrokenFile
	}
	// check compatibility
	if MainVersion != buf[0] {
		r.fh.Close()
		return nil, ErrVersionMismatch
	}

	return r, nil
}

// Read returns the next sequence, and io.EOF when no more sequences.
func (r *Reader) Read() ([]uint8, error) {
	_, err := io.ReadFull(r.r, r.buf[:16])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ErrBrokenFile
	}
	nBytes := int(be.Uint64(r.buf[:8]))
	nSymbols := int(be.Uint64(r.buf[8:16]))
	if nBytes != (nSymbols+1)>>1 {
		return nil, ErrInvalidPackedData
	}

	data := make([]byte, nBytes)
	_, err = io.ReadFull(r.r, data)
	if err != nil {
		return nil, ErrBrokenFile
	}

	return Unpack(data, nSymbols)
}

// Close the file handler.
func (r *Reader) Close() error {
	return r.fh.Close()
}

var poolPacked = &sync.Pool{New: func() interface{} {
	tmp := make([]byte, 0, 1<<20)
	return &tmp
}}

// RecyclePacked recycles the packed data returned by Pack.
func RecyclePacked(p *[]byte) {
	poolPacked.Put(p)
}

// Pack packs codes (each < 16) into bytes, the first symbol in the high 4 bits.
// Please call RecyclePacked after using the result.
func Pack(codes []uint8) (*[]byte, error) {
	p := poolPacked.Get().(*[]byte)
	*p = (*p)[:0]

	n := len(codes) >> 1
	var a, b uint8
	for i := 0; i < n; i++ {
		a, b = codes[i<<1], codes[i<<1+1]
		if a > 15 || b > 15 {
			RecyclePacked(p)
			return nil, ErrSymbolOverflow
		}
		*p = append(*p, a<<4|b)
	}
	if len(codes)&1 == 1 {
		a = codes[len(codes)-1]
		if a > 15 {
			RecyclePacked(p)
			return nil, ErrSymbolOverflow
		}
		*p = append(*p, a<<4)
	}
	return p, nil
}

// Unpack converts packed bytes back to n codes.
func Unpack(p []byte, n int) ([]uint8, error) {
	if len(p) != (n+1)>>1 {
		return nil, ErrInvalidPackedData
	}
	codes := make([]uint8, n)
	for i := 0; i < n>>1; i++ {
		codes[i<<1] = p[i] >> 4
		codes[i<<1+1] = p[i] & 15
	}
	if n&1 == 1 {
		codes[n-1] = p[n>>1] >> 4
	}
	return codes, nil
}
