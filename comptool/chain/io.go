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

package chain

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/xopen"
)

// NumColumns is the number of columns of a chain table:
//
//	tstart  tend  qstart  qend  matched  strand  anchors
//
// Ranges are 0-based and half-open, strand is "+" or "-".
const NumColumns = 7

// ErrInvalidLine means a line of a chain table is malformed.
var ErrInvalidLine = errors.Wrap(util.ErrInvalidInput, "chain: invalid line")

// Writer writes major chains to a table.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter creates a writer and writes the header line with the names of the query and target.
// Please flush or close w after writing.
func NewWriter(w io.Writer, query, target string) (*Writer, error) {
	cw := &Writer{w: w, buf: make([]byte, 0, 128)}

	cw.buf = append(cw.buf[:0], '#')
	cw.buf = append(cw.buf, query...)
	cw.buf = append(cw.buf, '\t')
	cw.buf = append(cw.buf, target...)
	cw.buf = append(cw.buf, '\n')
	if _, err := w.Write(cw.buf); err != nil {
		return nil, err
	}
	return cw, nil
}

// Write writes a chain.
func (w *Writer) Write(c *Chain) error {
	buf := w.buf[:0]
	buf = strconv.AppendInt(buf, int64(c.TBegin), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.TEnd), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.QBegin), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.QEnd), 10)
	buf = append(buf, '\t')
	buf = strconv.AppendInt(buf, int64(c.Matched), 10)
	buf = append(buf, '\t', anchor.StrandSymbol(c.Strand), '\t')
	buf = strconv.AppendInt(buf, int64(len(c.Anchors)), 10)
	buf = append(buf, '\n')
	w.buf = buf

	_, err := w.w.Write(buf)
	return err
}

// WriteAll writes a list of chains.
func (w *Writer) WriteAll(chains []*Chain) error {
	var err error
	for _, c := range chains {
		if err = w.Write(c); err != nil {
			return err
		}
	}
	return nil
}

// Record is a line of a chain table, the anchors are not kept.
type Record struct {
	TBegin, TEnd int
	QBegin, QEnd int
	Matched      int
	Strand       int
	NumAnchors   int
}

// ReadTable reads all records of a chain table.
// The names in the header line are returned.
func ReadTable(file string) (query, target string, records []Record, err error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return "", "", nil, errors.Wrap(err, file)
	}
	defer fh.Close()

	records = make([]Record, 0, 64)
	scanner := bufio.NewScanner(fh)
	var line string
	var items []string
	var vs [NumColumns]int
	var r Record
	var nLine int
	for scanner.Scan() {
		nLine++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		if line[0] == '#' {
			if nLine == 1 {
				names := strings.SplitN(line[1:], "\t", 2)
				query = names[0]
				if len(names) > 1 {
					target = names[1]
				}
			}
			continue
		}

		items = strings.Fields(line)
		if len(items) != NumColumns {
			return "", "", nil, errors.Wrapf(ErrInvalidLine, "%s:%d: %d columns found, %d expected",
				file, nLine, len(items), NumColumns)
		}
		for i, item := range items {
			if i == 5 {
				switch item {
				case "+":
					vs[i] = anchor.Forward
				case "-":
					vs[i] = anchor.Reverse
				default:
					return "", "", nil, errors.Wrapf(ErrInvalidLine, "%s:%d: invalid strand: %s", file, nLine, item)
				}
				continue
			}
			vs[i], err = strconv.Atoi(item)
			if err != nil {
				return "", "", nil, errors.Wrapf(ErrInvalidLine, "%s:%d: non-integer value in column %d: %s",
					file, nLine, i+1, item)
			}
		}
		r = Record{
			TBegin: vs[0], TEnd: vs[1],
			QBegin: vs[2], QEnd: vs[3],
			Matched:    vs[4],
			Strand:     vs[5],
			NumAnchors: vs[6],
		}
		records = append(records, r)
	}
	if err = scanner.Err(); err != nil {
		return "", "", nil, errors.Wrap(err, file)
	}
	return query, target, records, nil
}
