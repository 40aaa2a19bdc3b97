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
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/index"
	"github.com/shenwei356/comptool/comptool/util"
)

// AlignOptions contains all options in searching k-mers of queries.
type AlignOptions struct {
	K            int // k-mer size
	Step         int // step of sliding k-mers on the query
	MaxMatches   int // maximum number of matches for each k-mer
	Interval     int // sampling interval of BWT occurrence checkpoints
	LookupPrefix int // prefix length of the lookup table

	Forward      bool // searching k-mers
	Backward     bool // searching reverse complement k-mers
	StartPosOnly bool // only outputting start positions
	KeepUnknown  bool // searching k-mers with N

	NumCPUs int
	Verbose bool

	OutDir   string
	Compress bool
}

// DefaultAlignOptions is the default value of AlignOptions.
var DefaultAlignOptions = AlignOptions{
	K:            15,
	Step:         1,
	MaxMatches:   1000000000,
	Interval:     1,
	LookupPrefix: 8,

	Forward:  true,
	Backward: true,

	NumCPUs: runtime.NumCPU(),
}

// CheckAlignOptions checks the options, errors wrap util.ErrInvalidOption.
func CheckAlignOptions(opt *AlignOptions) error {
	if opt.K < 1 {
		return errors.Wrapf(util.ErrInvalidOption, "value of flag -k/--kmer should be >= 1: %d", opt.K)
	}
	if opt.Step < 1 {
		return errors.Wrapf(util.ErrInvalidOption, "value of flag -l/--slide should be >= 1: %d", opt.Step)
	}
	if opt.MaxMatches < 1 {
		return errors.Wrapf(util.ErrInvalidOption, "value of flag -m/--max-matches should be >= 1: %d", opt.MaxMatches)
	}
	if opt.Interval < 1 {
		return errors.Wrapf(util.ErrInvalidOption, "value of flag -i/--bwt-interval should be >= 1: %d", opt.Interval)
	}
	if opt.LookupPrefix < 0 || opt.LookupPrefix > index.MaxLookupPrefix {
		return errors.Wrapf(util.ErrInvalidOption, "value of flag -p/--lookup-prefix should be in range of [0, %d]: %d",
			index.MaxLookupPrefix, opt.LookupPrefix)
	}
	if !opt.Forward && !opt.Backward {
		return errors.Wrap(util.ErrInvalidOption, "flags -f/--forward-only and -b/--backward-only are mutually exclusive")
	}
	if opt.NumCPUs < 1 {
		return errors.Wrapf(util.ErrInvalidOption, "value of flag -j/--threads should be >= 1: %d", opt.NumCPUs)
	}
	return nil
}

// anchorFile returns the path of an anchor table.
func anchorFile(outDir string, target, query string, strand int, startPos bool, gzipped bool) string {
	direction := "forward"
	if strand == anchor.Reverse {
		direction = "backward"
	}
	mode := "for-chaining"
	if startPos {
		mode = "startpos"
	}
	file := fmt.Sprintf("alignments-%s-%s_%s_%s.tsv", direction, mode, filepath.Base(target), filepath.Base(query))
	if gzipped {
		file += ".gz"
	}
	return filepath.Join(outDir, file)
}

// chainFile returns the path of a chain table.
func chainFile(outDir string, target, query string, gzipped bool) string {
	file := fmt.Sprintf("chains_%s_%s.tsv", filepath.Base(target), filepath.Base(query))
	if gzipped {
		file += ".gz"
	}
	return filepath.Join(outDir, file)
}

// alignQuery searches k-mers of a query against the index, and writes
// an anchor table for each selected strand. Numbers of anchors are returned.
func alignQuery(idx *index.Index, target string, query *SeqData, opt *AlignOptions) ([2]int, error) {
	var counts [2]int
	strands := make([]int, 0, 2)
	if opt.Forward {
		strands = append(strands, anchor.Forward)
	}
	if opt.Backward {
		strands = append(strands, anchor.Reverse)
	}

	for _, strand := range strands {
		file := anchorFile(opt.OutDir, target, query.File, strand, opt.StartPosOnly, opt.Compress)

		outfh, gw, w, err := outStream(file, opt.Compress, -1)
		if err != nil {
			return counts, errors.Wrap(err, file)
		}

		aw, err := anchor.NewWriter(outfh, query.File, target, opt.StartPosOnly)
		if err != nil {
			closeOutStream(outfh, gw, w)
			return counts, errors.Wrap(err, file)
		}

		counts[strand], err = searchKmers(idx, query.Seq, opt, strand, aw.WriteAll)
		if err != nil {
			closeOutStream(outfh, gw, w)
			return counts, errors.Wrapf(err, "searching %s", query.File)
		}

		if err = closeOutStream(outfh, gw, w); err != nil {
			return counts, errors.Wrap(err, file)
		}
	}

	return counts, nil
}

// number of k-mers in a shard
var shardSize = 1 << 14

type shardResult struct {
	id      int
	anchors *[]anchor.Anchor
	err     error
}

var poolAnchors = &sync.Pool{New: func() interface{} {
	tmp := make([]anchor.Anchor, 0, 1024)
	return &tmp
}}

// searchKmers searches k-mers of a sequence in parallel, anchors of each shard
// are passed to fn in the order of query positions.
func searchKmers(idx *index.Index, seq []uint8, opt *AlignOptions, strand int,
	fn func([]anchor.Anchor) error) (int, error) {
	k := opt.K
	if len(seq) < k {
		return 0, nil
	}
	nKmers := (len(seq)-k)/opt.Step + 1
	nShards := (nKmers + shardSize - 1) / shardSize

	// outputter, keeping the order of shards
	ch := make(chan *shardResult, opt.NumCPUs)
	done := make(chan int)
	var total int
	var errOut error
	go func() {
		buf := make(map[int]*shardResult, opt.NumCPUs)
		var id int
		var r2 *shardResult
		var ok bool
		for r := range ch {
			buf[r.id] = r

			for {
				if r2, ok = buf[id]; !ok {
					break
				}
				delete(buf, id)

				if errOut == nil {
					if r2.err != nil {
						errOut = r2.err
					} else {
						total += len(*r2.anchors)
						errOut = fn(*r2.anchors)
					}
				}
				poolAnchors.Put(r2.anchors)
				id++
			}
		}
		done <- 1
	}()

	var wg sync.WaitGroup
	tokens := make(chan int, opt.NumCPUs)
	for id := 0; id < nShards; id++ {
		tokens <- 1
		wg.Add(1)

		go func(id int) {
			defer func() {
				wg.Done()
				<-tokens
			}()

			from := id * shardSize
			to := from + shardSize
			if to > nKmers {
				to = nKmers
			}

			anchors := poolAnchors.Get().(*[]anchor.Anchor)
			*anchors = (*anchors)[:0]
			err := searchShard(idx, seq, opt, strand, from, to, anchors)

			ch <- &shardResult{id: id, anchors: anchors, err: err}
		}(id)
	}
	wg.Wait()
	close(ch)
	<-done

	return total, errOut
}

// searchShard searches the i-th k-mers with i in [from, to).
// For the reverse strand, the reverse complement of each k-mer is searched.
func searchShard(idx *index.Index, seq []uint8, opt *AlignOptions, strand int,
	from, to int, anchors *[]anchor.Anchor) error {
	k := opt.K
	locs := make([]int, 0, 64)

	var begin, lower, upper int
	var kmer []uint8
	var err error
	for i := from; i < to; i++ {
		begin = i * opt.Step
		kmer = seq[begin : begin+k]
		if !opt.KeepUnknown && hasUnknown(kmer) {
			continue
		}

		if strand == anchor.Forward {
			lower, upper, err = idx.Search(kmer)
		} else {
			lower, upper, err = idx.SearchRevComp(kmer)
		}
		if err != nil {
			return err
		}
		if lower > upper {
			continue
		}

		locs = idx.Positions(lower, upper, opt.MaxMatches, locs[:0])
		util.UniqInts(&locs)
		for _, p := range locs {
			*anchors = append(*anchors, anchor.New(begin, p, k, strand))
		}
	}
	return nil
}

func hasUnknown(kmer []uint8) bool {
	for _, s := range kmer {
		if alphabet.DNA.IsUnknown(s) {
			return true
		}
	}
	return false
}

// logAlignOptions prints the main parameters.
func logAlignOptions(opt *AlignOptions) {
	strands := make([]string, 0, 2)
	if opt.Forward {
		strands = append(strands, "forward")
	}
	if opt.Backward {
		strands = append(strands, "backward")
	}

	log.Infof("k-mer size: %d", opt.K)
	log.Infof("  sliding step: %d", opt.Step)
	log.Infof("  maximum matches per k-mer: %d", opt.MaxMatches)
	log.Infof("  searching k-mers with N: %v", opt.KeepUnknown)
	log.Infof("strands: %s", strings.Join(strands, ", "))
	log.Infof("only outputting start positions: %v", opt.StartPosOnly)
	log.Info()
	log.Infof("BWT sampling interval: %d", opt.Interval)
	log.Infof("prefix length of lookup table: %d", opt.LookupPrefix)
}
