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

package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/index"
	"github.com/shenwei356/comptool/comptool/sais"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/util/pathutil"
)

// ErrNoSequences means a sequence file has no valid sequences.
var ErrNoSequences = errors.Wrap(util.ErrInvalidInput, "no valid sequences")

// SeqData is an encoded sequence file.
// Multiple records are concatenated with a single N between them.
type SeqData struct {
	File string

	Seq []uint8 // without the sentinel

	SeqNames   []string
	SeqOffsets []int // start positions of records in Seq
}

func init() {
	seq.ValidateSeq = false
}

// readSeqFile reads and encodes all records in a FASTA/Q file.
func readSeqFile(file string) (*SeqData, error) {
	if !isStdin(file) {
		ok, err := pathutil.Exists(file)
		if err != nil {
			return nil, errors.Wrap(err, file)
		}
		if !ok {
			return nil, errors.Wrap(util.ErrNotFound, file)
		}
	}

	fastxReader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	defer fastxReader.Close()

	sd := &SeqData{
		File:       file,
		Seq:        make([]uint8, 0, 1<<20),
		SeqNames:   make([]string, 0, 8),
		SeqOffsets: make([]int, 0, 8),
	}

	var record *fastx.Record
	for {
		record, err = fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(util.ErrInvalidInput, "%s: %s", file, err)
		}
		if len(record.Seq.Seq) == 0 {
			continue
		}

		if len(sd.Seq) > 0 {
			sd.Seq = append(sd.Seq, alphabet.N)
		}
		sd.SeqNames = append(sd.SeqNames, string(record.ID))
		sd.SeqOffsets = append(sd.SeqOffsets, len(sd.Seq))

		sd.Seq, err = alphabet.DNA.AppendEncoded(sd.Seq, record.Seq.Seq, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: %s", file, record.ID)
		}
	}

	if len(sd.Seq) == 0 {
		return nil, errors.Wrap(ErrNoSequences, file)
	}
	return sd, nil
}

// buildIndex builds a BWT index of a target, sd.Seq is taken over by the index.
func buildIndex(sd *SeqData, interval int, lookupP int) (*index.Index, error) {
	text := append(sd.Seq, alphabet.DNA.Sentinel())
	sd.Seq = text[:len(text)-1]

	sa, err := sais.Build(text, alphabet.DNA.Size())
	if err != nil {
		return nil, errors.Wrap(err, sd.File)
	}

	idx, err := index.New(text, sa, alphabet.DNA, interval)
	if err != nil {
		return nil, err
	}
	if err = idx.BuildLookup(lookupP); err != nil {
		return nil, err
	}

	idx.Source = sd.File
	idx.SeqNames = sd.SeqNames
	idx.SeqOffsets = sd.SeqOffsets
	return idx, nil
}
