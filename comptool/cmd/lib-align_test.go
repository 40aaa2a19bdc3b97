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
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/chain"
	"github.com/shenwei356/comptool/comptool/util"
)

func writeFasta(t *testing.T, dir, name string, seqs ...string) string {
	file := filepath.Join(dir, name)
	data := make([]byte, 0, 1024)
	for i, s := range seqs {
		data = append(data, '>')
		data = append(data, 's')
		data = append(data, byte('1'+i))
		data = append(data, '\n')
		data = append(data, s...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func readAnchors(t *testing.T, file string) []anchor.Anchor {
	r, err := anchor.NewReader(file)
	if err != nil {
		t.Fatal(err)
	}
	anchors, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return anchors
}

func testAlignOptions(dir string, k int) *AlignOptions {
	opt := DefaultAlignOptions
	opt.K = k
	opt.LookupPrefix = 2
	opt.NumCPUs = 2
	opt.OutDir = dir
	return &opt
}

func TestAlignAndChainExample(t *testing.T) {
	dir := t.TempDir()
	targetFile := writeFasta(t, dir, "target.fa", "ACGTACGTACGT")
	queryFile := writeFasta(t, dir, "query.fa", "ACGT")

	aopt := testAlignOptions(dir, 4)
	if err := CheckAlignOptions(aopt); err != nil {
		t.Error(err)
		return
	}

	target, err := readSeqFile(targetFile)
	if err != nil {
		t.Error(err)
		return
	}
	idx, err := buildIndex(target, aopt.Interval, aopt.LookupPrefix)
	if err != nil {
		t.Error(err)
		return
	}
	query, err := readSeqFile(queryFile)
	if err != nil {
		t.Error(err)
		return
	}

	counts, err := alignQuery(idx, targetFile, query, aopt)
	if err != nil {
		t.Error(err)
		return
	}
	// ACGT is its own reverse complement
	if counts[0] != 3 || counts[1] != 3 {
		t.Errorf("unexpected numbers of anchors: %v", counts)
	}

	anchors := readAnchors(t, anchorFile(dir, targetFile, queryFile, anchor.Forward, false, false))
	if len(anchors) != 3 {
		t.Errorf("3 forward anchors expected, %d found", len(anchors))
		return
	}
	for i, a := range anchors {
		if a.QBegin != 0 || a.TBegin != i*4 || a.Len != 4 || a.Strand != anchor.Forward {
			t.Errorf("unexpected anchor: %v", a)
		}
	}

	copt := &ChainOptions{
		ChainingOptions: chain.ChainingOptions{NearDist: 4},
		Forward:         true,
		Backward:        true,
		OutDir:          dir,
	}
	if err = CheckChainOptions(copt); err != nil {
		t.Error(err)
		return
	}
	stats, err := runChaining(targetFile, queryFile, copt)
	if err != nil {
		t.Error(err)
		return
	}
	if stats.Anchors != 6 || stats.Majors != 2 {
		t.Errorf("unexpected stats: %+v", *stats)
	}

	// one major chain, the deviation is zero instead of NaN.
	copt.Backward = false
	stats1, err := runChaining(targetFile, queryFile, copt)
	if err != nil {
		t.Error(err)
		return
	}
	if stats1.Majors != 1 || stats1.ScoreMean != 12 || stats1.ScoreStdDev != 0 || stats1.ScoreMedian != 12 {
		t.Errorf("unexpected stats of one chain: %+v", *stats1)
	}
	copt.Backward = true
	if _, err = runChaining(targetFile, queryFile, copt); err != nil {
		t.Error(err)
		return
	}

	qname, tname, records, err := chain.ReadTable(chainFile(dir, targetFile, queryFile, false))
	if err != nil {
		t.Error(err)
		return
	}
	if qname != "query.fa" || tname != "target.fa" {
		t.Errorf("unexpected header: %s, %s", qname, tname)
	}
	if len(records) != 2 {
		t.Errorf("two chains expected, %d found", len(records))
		return
	}
	for i, r := range records {
		if r.TBegin != 0 || r.TEnd != 12 || r.QBegin != 0 || r.QEnd != 4 ||
			r.Matched != 12 || r.NumAnchors != 3 || r.Strand != i {
			t.Errorf("unexpected chain: %+v", r)
		}
	}
}

func TestAlignNoMatches(t *testing.T) {
	dir := t.TempDir()
	targetFile := writeFasta(t, dir, "target.fa", "ACGTTGCAACGGTACCATGA")
	queryFile := writeFasta(t, dir, "query.fa", "NNNNNNNNNN")

	for _, keepUnknown := range []bool{false, true} {
		aopt := testAlignOptions(dir, 4)
		aopt.KeepUnknown = keepUnknown

		target, _ := readSeqFile(targetFile)
		idx, err := buildIndex(target, aopt.Interval, aopt.LookupPrefix)
		if err != nil {
			t.Error(err)
			return
		}
		query, _ := readSeqFile(queryFile)
		counts, err := alignQuery(idx, targetFile, query, aopt)
		if err != nil {
			t.Error(err)
			return
		}
		if counts[0] != 0 || counts[1] != 0 {
			t.Errorf("no anchors expected: %v", counts)
		}
		anchors := readAnchors(t, anchorFile(dir, targetFile, queryFile, anchor.Reverse, false, false))
		if len(anchors) != 0 {
			t.Errorf("no anchors expected, %d found", len(anchors))
		}
	}
}

func TestChainWithoutAnchors(t *testing.T) {
	dir := t.TempDir()
	copt := &ChainOptions{
		ChainingOptions: chain.DefaultChainingOptions,
		Forward:         true,
		Backward:        true,
		OutDir:          dir,
	}
	_, err := runChaining("target.fa", "query.fa", copt)
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestReadSeqFile(t *testing.T) {
	dir := t.TempDir()
	file := writeFasta(t, dir, "multi.fa", "acgt", "", "RGTA")

	sd, err := readSeqFile(file)
	if err != nil {
		t.Error(err)
		return
	}
	if string(alphabet.DNA.Decode(sd.Seq)) != "ACGTNNGTA" {
		t.Errorf("unexpected sequence: %s", alphabet.DNA.Decode(sd.Seq))
	}
	if len(sd.SeqNames) != 2 || sd.SeqOffsets[1] != 5 {
		t.Errorf("unexpected records: %v %v", sd.SeqNames, sd.SeqOffsets)
	}

	file = writeFasta(t, dir, "invalid.fa", "ACGT-ACGT")
	if _, err = readSeqFile(file); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}

	if _, err = readSeqFile(filepath.Join(dir, "not-existed.fa")); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestSearchKmersOrder(t *testing.T) {
	bases := []byte("ACGT")
	s := make([]byte, 5000)
	for i := range s {
		s[i] = bases[rand.Intn(4)]
	}
	// some repeats
	copy(s[3000:], s[100:600])

	sd := &SeqData{File: "t.fa", Seq: make([]uint8, 0, len(s))}
	sd.Seq, _ = alphabet.DNA.AppendEncoded(sd.Seq, s, 0)
	query := make([]uint8, 2000)
	copy(query, sd.Seq[2000:4000])

	idx, err := buildIndex(sd, 4, 3)
	if err != nil {
		t.Error(err)
		return
	}

	opt := testAlignOptions("", 11)
	opt.NumCPUs = 4

	collect := func() []anchor.Anchor {
		anchors := make([]anchor.Anchor, 0, 1024)
		_, err := searchKmers(idx, query, opt, anchor.Forward, func(as []anchor.Anchor) error {
			anchors = append(anchors, as...)
			return nil
		})
		if err != nil {
			t.Error(err)
		}
		return anchors
	}

	defer func(n int) { shardSize = n }(shardSize)

	shardSize = 1 << 20
	a1 := collect()
	shardSize = 7
	a2 := collect()

	if len(a1) == 0 || len(a1) != len(a2) {
		t.Errorf("unmatched numbers of anchors: %d vs %d", len(a1), len(a2))
		return
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Errorf("unmatched anchors at %d: %v vs %v", i, a1[i], a2[i])
			return
		}
	}
}

func TestCheckAlignOptions(t *testing.T) {
	for i, fn := range []func(*AlignOptions){
		func(o *AlignOptions) { o.K = 0 },
		func(o *AlignOptions) { o.Step = 0 },
		func(o *AlignOptions) { o.MaxMatches = 0 },
		func(o *AlignOptions) { o.Interval = 0 },
		func(o *AlignOptions) { o.LookupPrefix = 100 },
		func(o *AlignOptions) { o.Forward, o.Backward = false, false },
	} {
		opt := DefaultAlignOptions
		fn(&opt)
		if err := CheckAlignOptions(&opt); !errors.Is(err, util.ErrInvalidOption) {
			t.Errorf("case %d: expected invalid option error, got %v", i, err)
		}
	}
}

func TestFilepathTrimExtension(t *testing.T) {
	name, e1, e2 := filepathTrimExtension("a/b.fa.gz", nil)
	if name != "a/b" || e1 != ".fa" || e2 != ".gz" {
		t.Errorf("unexpected result: %s, %s, %s", name, e1, e2)
	}
	if seqName("/data/GCF_000001.fna") != "GCF_000001" {
		t.Errorf("unexpected name: %s", seqName("/data/GCF_000001.fna"))
	}
}
