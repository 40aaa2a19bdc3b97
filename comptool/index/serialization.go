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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/index/packed"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/util/pathutil"
	"github.com/zeebo/wyhash"
)

var be = binary.BigEndian

// MagicSA is the magic number of the suffix array file.
var MagicSA = [8]byte{'s', 'u', 'f', 'f', 'i', 'x', 'a', 'r'}

// MainVersion is use for checking compatibility
var MainVersion uint8 = 0

// MinorVersion is less important
var MinorVersion uint8 = 1

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.Wrap(util.ErrInvalidInput, "bwt index: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.Wrap(util.ErrInvalidInput, "bwt index: broken file")

// ErrVersionMismatch means version mismatch between files and program.
var ErrVersionMismatch = errors.Wrap(util.ErrInvalidInput, "bwt index: version mismatch")

// ErrChecksumMismatch means the sequence or suffix array file does not match the info file.
var ErrChecksumMismatch = errors.Wrap(util.ErrInvalidInput, "bwt index: checksum mismatch")

// ErrDirNotEmpty means the output directory is not empty.
var ErrDirNotEmpty = errors.New("bwt index: output directory not empty")

// ErrPWDAsOutDir means the current directory is used as the output directory.
var ErrPWDAsOutDir = errors.New("bwt index: current directory cant't be the output dir")

// ErrInvalidIndexDir means the path is not a valid index directory.
var ErrInvalidIndexDir = errors.Wrap(util.ErrNotFound, "bwt index: invalid index directory")

// InfoFile contains some summary infomation.
const InfoFile = "info.toml"

// SeqFile stores the packed encoded sequence.
const SeqFile = "seq.bin"

// SAFile stores the suffix array.
const SAFile = "sa.bin"

// Info is the summary information of an index, saved in TOML format.
type Info struct {
	MainVersion  uint8 `toml:"main-version"`
	MinorVersion uint8 `toml:"minor-version"`

	Alphabet     string `toml:"alphabet"`
	Length       int    `toml:"length"` // excluding the sentinel
	Interval     int    `toml:"bwt-interval"`
	LookupPrefix int    `toml:"lookup-prefix"`
	Checksum     string `toml:"checksum"`    // wyhash of the encoded sequence
	ChecksumSA   string `toml:"sa-checksum"` // wyhash of the suffix array

	Source     string   `toml:"source"`
	SeqNames   []string `toml:"seq-names"`
	SeqOffsets []int    `toml:"seq-offsets"`
}

// Checksum returns the hash value of an encoded sequence.
func Checksum(seq []uint8) string {
	return fmt.Sprintf("%016x", wyhash.Hash(seq, 1))
}

// ChecksumSA returns the hash value of a suffix array.
// Values are hashed in big-endian blocks, each block seeded by the hash of the previous one.
func ChecksumSA(sa []int32) string {
	const block = 4096
	buf := make([]byte, block<<2)
	var h uint64 = 1
	var j, end int
	for i := 0; i < len(sa); i += block {
		end = i + block
		if end > len(sa) {
			end = len(sa)
		}
		j = 0
		for _, v := range sa[i:end] {
			be.PutUint32(buf[j:], uint32(v))
			j += 4
		}
		h = wyhash.Hash(buf[:j], h)
	}
	return fmt.Sprintf("%016x", h)
}

// WriteToPath writes an index to a directory.
//
// Files:
//
//	info.toml, plain text
//	seq.bin, the packed sequence
//	sa.bin, the suffix array
//
// The BWT and occurrence checkpoints are rebuilt when loading.
func (idx *Index) WriteToPath(outDir string, overwrite bool) error {
	pwd, _ := os.Getwd()
	if outDir != "./" && outDir != "." && pwd != filepath.Clean(outDir) {
		existed, err := pathutil.DirExists(outDir)
		if err != nil {
			return err
		}
		if existed {
			empty, err := pathutil.IsEmpty(outDir)
			if err != nil {
				return err
			}

			if !empty && !overwrite {
				return errors.Wrap(ErrDirNotEmpty, outDir)
			}
			err = os.RemoveAll(outDir)
			if err != nil {
				return err
			}
		}
		err = os.MkdirAll(outDir, 0777)
		if err != nil {
			return err
		}
	} else {
		return ErrPWDAsOutDir
	}

	// sequence
	w, err := packed.NewWriter(filepath.Join(outDir, SeqFile))
	if err != nil {
		return err
	}
	err = w.Write(idx.seq)
	if err != nil {
		return err
	}
	err = w.Close()
	if err != nil {
		return err
	}

	// suffix array
	err = writeSA(filepath.Join(outDir, SAFile), idx.sa)
	if err != nil {
		return err
	}

	// info
	info := &Info{
		MainVersion:  MainVersion,
		MinorVersion: MinorVersion,
		Alphabet:     idx.alphabet.String(),
		Length:       idx.Len(),
		Interval:     idx.interval,
		LookupPrefix: idx.lookupP,
		Checksum:     Checksum(idx.seq),
		ChecksumSA:   ChecksumSA(idx.sa),
		Source:       idx.Source,
		SeqNames:     idx.SeqNames,
		SeqOffsets:   idx.SeqOffsets,
	}
	data, err := toml.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, InfoFile), data, 0644)
}

// ReadInfo reads the info file of an index directory.
func ReadInfo(dir string) (*Info, error) {
	file := filepath.Join(dir, InfoFile)
	ok, err := pathutil.Exists(file)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(ErrInvalidIndexDir, file)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	info := &Info{}
	err = toml.Unmarshal(data, info)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFileFormat, "%s: %s", file, err)
	}
	if info.MainVersion != MainVersion {
		return nil, errors.Wrapf(ErrVersionMismatch, "%s: %d vs %d", file, info.MainVersion, MainVersion)
	}
	return info, nil
}

// NewFromPath reads an index from a directory.
// The interval and lookup prefix saved in the info file are used
// when they are <= 0.
func NewFromPath(dir string, alpha *alphabet.Alphabet, interval int, lookupP int) (*Index, error) {
	isDir, err := pathutil.IsDir(dir)
	if err != nil || !isDir {
		return nil, errors.Wrap(ErrInvalidIndexDir, dir)
	}

	info, err := ReadInfo(dir)
	if err != nil {
		return nil, err
	}
	if info.Alphabet != alpha.String() {
		return nil, errors.Wrapf(ErrInvalidFileFormat, "alphabet unmatched: %s vs %s", info.Alphabet, alpha.String())
	}

	// sequence
	file := filepath.Join(dir, SeqFile)
	r, err := packed.NewReader(file)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(util.ErrNotFound, file)
		}
		return nil, errors.Wrap(err, file)
	}
	seq, err := r.Read()
	r.Close()
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	if len(seq) != info.Length+1 {
		return nil, errors.Wrapf(ErrBrokenFile, "%s: sequence length unmatched: %d vs %d", file, len(seq)-1, info.Length)
	}
	if Checksum(seq) != info.Checksum {
		return nil, errors.Wrap(ErrChecksumMismatch, file)
	}

	// suffix array
	file = filepath.Join(dir, SAFile)
	sa, err := readSA(file, len(seq))
	if err != nil {
		return nil, err
	}
	if ChecksumSA(sa) != info.ChecksumSA {
		return nil, errors.Wrap(ErrChecksumMismatch, file)
	}

	if interval <= 0 {
		interval = info.Interval
	}
	idx, err := New(seq, sa, alpha, interval)
	if err != nil {
		return nil, err
	}
	idx.Source = info.Source
	idx.SeqNames = info.SeqNames
	idx.SeqOffsets = info.SeqOffsets

	if lookupP <= 0 {
		lookupP = info.LookupPrefix
	}
	err = idx.BuildLookup(lookupP)
	if err != nil {
		return nil, err
	}

	return idx, nil
}

func writeSA(file string, sa []int32) error {
	fh, err := os.Create(file)
	if err != nil {
		return err
	}
	defer fh.Close()
	w := bufio.NewWriterSize(fh, packed.BufferSize)

	buf := make([]byte, 8)
	copy(buf, MagicSA[:])
	_, err = w.Write(buf)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte{MainVersion, MinorVersion, 0, 0, 0, 0, 0, 0})
	if err != nil {
		return err
	}
	be.PutUint64(buf, uint64(len(sa)))
	_, err = w.Write(buf)
	if err != nil {
		return err
	}

	err = util.WriteInt32s(w, sa)
	if err != nil {
		return err
	}

	err = w.Flush()
	if err != nil {
		return err
	}
	return fh.Close()
}

func readSA(file string, n int) ([]int32, error) {
	fh, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(util.ErrNotFound, file)
		}
		return nil, err
	}
	defer fh.Close()
	r := bufio.NewReaderSize(fh, packed.BufferSize)

	buf := make([]byte, 8)
	_, err = io.ReadFull(r, buf)
	if err != nil {
		return nil, errors.Wrap(ErrBrokenFile, file)
	}
	for i := 0; i < 8; i++ {
		if MagicSA[i] != buf[i] {
			return nil, errors.Wrap(ErrInvalidFileFormat, file)
		}
	}

	_, err = io.ReadFull(r, buf)
	if err != nil {
		return nil, errors.Wrap(ErrBrokenFile, file)
	}
	if buf[0] != MainVersion {
		return nil, errors.Wrapf(ErrVersionMismatch, "%s: %d vs %d", file, buf[0], MainVersion)
	}

	_, err = io.ReadFull(r, buf)
	if err != nil {
		return nil, errors.Wrap(ErrBrokenFile, file)
	}
	if m := int(be.Uint64(buf)); m != n {
		return nil, errors.Wrapf(ErrBrokenFile, "%s: suffix array length unmatched: %d vs %d", file, m, n)
	}

	sa := make([]int32, n)
	err = util.ReadInt32s(r, sa)
	if err != nil {
		return nil, errors.Wrapf(ErrBrokenFile, "%s: %d values expected", file, n)
	}
	return sa, nil
}
