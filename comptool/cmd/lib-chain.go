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
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/chain"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/util/bytesize"
	"github.com/shenwei356/util/pathutil"
	"github.com/twotwotwo/sorts/sortutil"
	"gonum.org/v1/gonum/stat"
)

// ChainOptions contains all options in chaining anchor tables.
type ChainOptions struct {
	chain.ChainingOptions

	Forward  bool
	Backward bool

	Verbose  bool
	OutDir   string
	Compress bool
}

var errStartPosChain = errors.Wrap(util.ErrInvalidOption, "flag -s/--start-pos can not be used in chaining")

// CheckChainOptions checks the options, errors wrap util.ErrInvalidOption.
func CheckChainOptions(opt *ChainOptions) error {
	if err := chain.CheckChainingOptions(&opt.ChainingOptions); err != nil {
		return errors.Wrap(err, "flag -n/--near-dist")
	}
	if !opt.Forward && !opt.Backward {
		return errors.Wrap(util.ErrInvalidOption, "flags -f/--forward-only and -b/--backward-only are mutually exclusive")
	}
	return nil
}

// findAnchorFile returns the path of an existing anchor table, plain or gzipped.
func findAnchorFile(outDir string, target, query string, strand int) (string, error) {
	file := anchorFile(outDir, target, query, strand, false, false)
	for _, f := range []string{file, file + ".gz"} {
		ok, err := pathutil.Exists(f)
		if err != nil {
			return "", errors.Wrap(err, f)
		}
		if ok {
			return f, nil
		}
	}
	return "", errors.Wrapf(util.ErrNotFound, "anchor table of %s vs %s, please run 'comptool align' first: %s",
		query, target, file)
}

// ChainStats is the summary of chaining a pair of sequences.
type ChainStats struct {
	Files   []string
	Bytes   int64
	Anchors int

	Chains int // all chains
	Majors int // major chains

	ScoreMean   float64
	ScoreStdDev float64
	ScoreMedian float64
}

type strandChains struct {
	strand  int
	file    string
	anchors int
	chains  int
	majors  []*chain.Chain
	err     error
}

// chainAnchorFile reads an anchor table and returns the major chains.
func chainAnchorFile(file string, strand int, copt *chain.ChainingOptions) *strandChains {
	r := &strandChains{strand: strand, file: file}

	reader, err := anchor.NewReader(file)
	if err != nil {
		r.err = err
		return r
	}
	anchors, err := reader.ReadAll()
	if err != nil {
		r.err = err
		return r
	}
	r.anchors = len(anchors)

	for i := range anchors {
		if anchors[i].Strand != strand {
			r.err = errors.Wrapf(anchor.ErrInvalidLine, "%s: unexpected strand %d, %d expected",
				file, anchors[i].Strand, strand)
			return r
		}
	}

	chains := chain.NewChainer(copt).Chain(anchors)
	r.chains = len(chains)
	r.majors = chain.SelectMajorChains(chains)
	return r
}

// runChaining chains anchor tables of a target and a query, and writes
// the major chains, forward chains first.
func runChaining(target, query string, opt *ChainOptions) (*ChainStats, error) {
	strands := make([]int, 0, 2)
	if opt.Forward {
		strands = append(strands, anchor.Forward)
	}
	if opt.Backward {
		strands = append(strands, anchor.Reverse)
	}

	stats := &ChainStats{Files: make([]string, 0, 2)}
	files := make([]string, len(strands))
	var err error
	for i, strand := range strands {
		files[i], err = findAnchorFile(opt.OutDir, target, query, strand)
		if err != nil {
			return nil, err
		}
		if info, err := os.Stat(files[i]); err == nil {
			stats.Bytes += info.Size()
		}
	}

	// chaining both strands concurrently
	ch := make(chan *strandChains, len(strands))
	for i, strand := range strands {
		go func(file string, strand int) {
			ch <- chainAnchorFile(file, strand, &opt.ChainingOptions)
		}(files[i], strand)
	}
	results := make([]*strandChains, 2)
	for range strands {
		r := <-ch
		if r.err != nil && err == nil {
			err = r.err
		}
		results[r.strand] = r
	}
	if err != nil {
		return nil, err
	}

	file := chainFile(opt.OutDir, target, query, opt.Compress)
	outfh, gw, w, err := outStream(file, opt.Compress, -1)
	if err != nil {
		return nil, errors.Wrap(err, file)
	}
	cw, err := chain.NewWriter(outfh, filepath.Base(query), filepath.Base(target))
	if err != nil {
		closeOutStream(outfh, gw, w)
		return nil, errors.Wrap(err, file)
	}

	scores := make([]float64, 0, 1024)
	for _, r := range results {
		if r == nil {
			continue
		}
		stats.Files = append(stats.Files, r.file)
		stats.Anchors += r.anchors
		stats.Chains += r.chains
		stats.Majors += len(r.majors)
		for _, c := range r.majors {
			scores = append(scores, float64(c.Score()))
		}

		if err = cw.WriteAll(r.majors); err != nil {
			closeOutStream(outfh, gw, w)
			return nil, errors.Wrap(err, file)
		}
	}
	if err = closeOutStream(outfh, gw, w); err != nil {
		return nil, errors.Wrap(err, file)
	}

	if len(scores) > 0 {
		if len(scores) > 1 {
			stats.ScoreMean, stats.ScoreStdDev = stat.MeanStdDev(scores, nil)
		} else {
			stats.ScoreMean = scores[0]
		}
		sortutil.Float64s(scores)
		stats.ScoreMedian = stat.Quantile(0.5, stat.Empirical, scores, nil)
	}

	return stats, nil
}

func logChainStats(stats *ChainStats) {
	log.Infof("  %d anchors in %d file(s) (%s)", stats.Anchors, len(stats.Files), bytesize.ByteSize(stats.Bytes))
	log.Infof("  %d chains, %d major chains", stats.Chains, stats.Majors)
	if stats.Majors > 0 {
		log.Infof("  matched bases of major chains: mean %.1f, stdev %.1f, median %.0f",
			stats.ScoreMean, stats.ScoreStdDev, stats.ScoreMedian)
	}
}
