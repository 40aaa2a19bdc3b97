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

package anchor

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// NumColumns is the number of columns of an anchor table for chaining.
const NumColumns = 5

// Writer writes an anchor table.
type Writer struct {
	w        io.Writer
	startPos bool
	buf      []byte
}

// NewWriter creates a writer and writes the header line.
// In the start-position mode, only two columns (qpos, tpos) are written
// and the output can not be chained.
// Please flush or close w after writing.
func NewWriter(w io.Writer, query, target string, startPos bool) (*Writer, error) {
	aw := &Writer{w: w, startPos: startPos, buf: make([]byte, 0, 64)}

	aw.buf = append(aw.buf[:0], '#')
	aw.buf = append(aw.buf, query...)
	aw.buf = append(aw.buf, '\t')
	aw.buf = append(aw.buf, target...)
	aw.buf = append(aw.buf, '\n')
	if _, err := w.Write(aw.buf); err != nil {
		return nil, err
	}
	return aw, nil
}

// Write writes one anchor.
func (w *Writer) Write(a *Anchor) error {
	buf := w.buf[:0]
	if w.startPos {
		qpos := a.QBegin
		if a.Strand == Reverse { // the k-mer end on the query
			qpos = a.QEnd() - 1
		}
		buf = strconv.AppendInt(buf, int64(qpos), 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(a.TBegin), 10)
	} else {
		buf = strconv.AppendInt(buf, int64(a.QBegin), 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(a.TBegin), 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(a.Len), 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(a.Strand), 10)
		buf = append(buf, '\t')
		buf = strconv.AppendInt(buf, int64(a.Diag), 10)
	}
	buf = append(buf, '\n')
	w.buf = buf

	_, err := w.w.Write(buf)
	return err
}

// WriteAll writes a list of anchors.
func (w *Writer) WriteAll(anchors []Anchor) error {
	var err error
	for i := range anchors {
		if err = w.Write(&anchors[i]); err != nil {
			return err
		}
	}
	return nil
}

// Reader reads an anchor table written by Writer in the chaining mode.
// Plain or gzipped files are supported.
type Reader struct {
	file    string
	fh      *xopen.Reader
	scanner *bufio.Scanner
	line    int

	// from the header line
	Query  string
	Target string
}

// NewReader opens an anchor table and parses the header line.
func NewReader(file string) (*Reader, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}

	r := &Reader{file: file, fh: fh, scanner: bufio.NewScanner(fh)}

	var line string
	for r.scanner.Scan() {
		r.line++
		line = strings.TrimRight(r.scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		break
	}
	if err = r.scanner.Err(); err != nil {
		fh.Close()
		return nil, errors.Wrap(err, file)
	}
	if len(line) == 0 {
		fh.Close()
		return nil, errors.Wrapf(ErrInvalidHeader, "%s:%d", file, r.line)
	}
	if line[0] != '#' { // skipped, without names
		return r, nil
	}
	names := strings.SplitN(line[1:], "\t", 2)
	r.Query = names[0]
	if len(names) > 1 {
		r.Target = names[1]
	}
	return r, nil
}

// Read returns the next anchor, or io.EOF at the end of file.
func (r *Reader) Read() (Anchor, error) {
	var a Anchor
	var line []byte
	for r.scanner.Scan() {
		r.line++
		line = bytes.TrimRight(r.scanner.Bytes(), "\r\n")
		if len(line) == 0 {
			continue
		}
		err := parseLine(line, &a)
		if err != nil {
			return a, errors.Wrapf(err, "%s:%d", r.file, r.line)
		}
		return a, nil
	}
	if err := r.scanner.Err(); err != nil {
		return a, errors.Wrap(err, r.file)
	}
	return a, io.EOF
}

// ReadAll reads all remaining anchors and closes the file.
func (r *Reader) ReadAll() ([]Anchor, error) {
	anchors := make([]Anchor, 0, 1024)
	var a Anchor
	var err error
	for {
		a, err = r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			r.Close()
			return nil, err
		}
		anchors = append(anchors, a)
	}
	return anchors, r.Close()
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.fh.Close()
}

func parseLine(line []byte, a *Anchor) error {
	fields := bytes.Fields(line)
	if len(fields) != NumColumns {
		return errors.Wrapf(ErrInvalidLine, "%d columns found, %d expected", len(fields), NumColumns)
	}

	var vs [NumColumns]int
	var err error
	for i, f := range fields {
		vs[i], err = strconv.Atoi(string(f))
		if err != nil {
			return errors.Wrapf(ErrInvalidLine, "non-integer value in column %d: %s", i+1, f)
		}
	}
	a.QBegin, a.TBegin, a.Len, a.Strand, a.Diag = vs[0], vs[1], vs[2], vs[3], vs[4]
	return a.Validate()
}
