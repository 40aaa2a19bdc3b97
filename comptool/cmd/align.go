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
	"os"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/alphabet"
	"github.com/shenwei356/comptool/comptool/index"
	"github.com/shenwei356/util/bytesize"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Search k-mers of queries against a target and output anchors",
	Long: `Search k-mers of queries against a target and output anchors

Input:
  1. The target, which can be a FASTA/Q file given as the first positional
     argument, or an index directory created by "comptool index" via
     the flag -d/--index.
  2. Query FASTA/Q files, given via positional arguments, the flag
     -X/--infile-list, or a directory via the flag -I/--in-dir.
  Multiple sequences in one file are concatenated with a single N.

Output (in -O/--out-dir, for each query):
  alignments-forward-for-chaining_<target>_<query>.tsv
  alignments-backward-for-chaining_<target>_<query>.tsv

  The first line is "#<query file>\t<target file>", followed by anchors
  with five tab-delimited columns:

    qbegin  tbegin  len  strand  diag

  qbegin and tbegin are 0-based start positions on the forward strands.
  strand is 0 for k-mer matches, and 1 for matches of reverse complement
  k-mers. diag is tbegin-qbegin for forward matches, and tbegin+qbegin+len-1
  for reverse ones.

  With -s/--start-pos, files are named alignments-{forward,backward}-startpos_*
  and contain two columns: the k-mer start (forward) or end (backward)
  on the query, and the start on the target. These can not be chained.

Attention:
  1. k-mers containing N are skipped by default, use --keep-unknown to
     search them.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		timeStart := time.Now()
		defer func() {
			if opt.Verbose || opt.Log2File {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		runAlign(cmd, args, opt)
	},
}

// runAlign searches queries against the target, and returns the target and query files.
func runAlign(cmd *cobra.Command, args []string, opt *Options) (string, []string) {
	aopt := getAlignOptions(cmd, opt)
	checkError(CheckAlignOptions(aopt))

	// ---------------------------------------------------------------
	// input files

	indexDir := getFlagPath(cmd, "index")
	var target string
	if indexDir == "" {
		if len(args) == 0 {
			checkError(fmt.Errorf("a target FASTA/Q file or an index directory (-d/--index) is needed"))
		}
		target, args = args[0], args[1:]
	}

	queries := getQueryFiles(cmd, args, opt)
	if len(queries) == 0 || (len(queries) == 1 && isStdin(queries[0]) && len(args) == 0) {
		checkError(fmt.Errorf("query FASTA/Q files needed"))
	}

	makeOutDir(aopt.OutDir)

	if opt.Verbose || opt.Log2File {
		log.Infof("comptool v%s", VERSION)
		log.Info()
		log.Infof("-------------------- [main parameters] --------------------")
		log.Info()
		log.Info("input and output:")
		if indexDir != "" {
			log.Infof("  index directory: %s", indexDir)
		} else {
			log.Infof("  target file: %s", target)
		}
		log.Infof("  %d query file(s)", len(queries))
		log.Infof("  output directory: %s", aopt.OutDir)
		log.Info()
		logAlignOptions(aopt)
		log.Info()
		log.Infof("-------------------- [main parameters] --------------------")
		log.Info()
	}

	// ---------------------------------------------------------------
	// index

	var idx *index.Index
	var err error
	timeStart := time.Now()
	if indexDir != "" {
		if opt.Verbose || opt.Log2File {
			log.Infof("reading index from %s ...", indexDir)
		}
		interval, lookupP := 0, 0 // use the values in the index
		if cmd.Flags().Changed("bwt-interval") {
			interval = aopt.Interval
		}
		if cmd.Flags().Changed("lookup-prefix") {
			lookupP = aopt.LookupPrefix
		}
		idx, err = index.NewFromPath(indexDir, alphabet.DNA, interval, lookupP)
		checkError(errors.Wrap(err, "reading index"))
		target = idx.Source
	} else {
		if opt.Verbose || opt.Log2File {
			log.Infof("building index for %s ...", target)
		}
		sd, err := readSeqFile(target)
		checkError(err)
		idx, err = buildIndex(sd, aopt.Interval, aopt.LookupPrefix)
		checkError(err)
	}
	if opt.Verbose || opt.Log2File {
		log.Infof("  index of %d bases from %d sequence(s) is ready in %s, occupying %s",
			idx.Len(), len(idx.SeqNames), time.Since(timeStart), bytesize.ByteSize(idx.Bytes()))
		log.Info()
	}

	// ---------------------------------------------------------------
	// searching

	showProgressBar := opt.Verbose && len(queries) > 1

	var pbs *mpb.Progress
	var bar *mpb.Bar
	var chDuration chan time.Duration
	var doneDuration chan int
	if showProgressBar {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(len(queries)),
			mpb.PrependDecorators(
				decor.Name("processed files: ", decor.WC{W: len("processed files: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
				decor.EwmaETA(decor.ET_STYLE_GO, 10),
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)

		chDuration = make(chan time.Duration, opt.NumCPUs)
		doneDuration = make(chan int)
		go func() {
			for t := range chDuration {
				bar.Increment()
				bar.EwmaIncrBy(1, t)
			}
			doneDuration <- 1
		}()
	}

	logEach := (opt.Verbose && !showProgressBar) || opt.Log2File
	var total [2]int
	for _, query := range queries {
		timeStart1 := time.Now()

		sd, err := readSeqFile(query)
		checkError(err)

		counts, err := alignQuery(idx, target, sd, aopt)
		checkError(err)
		total[0] += counts[0]
		total[1] += counts[1]

		if logEach {
			log.Infof("%s: %d bases, %d forward anchors, %d backward anchors, in %s",
				query, len(sd.Seq), counts[0], counts[1], time.Since(timeStart1))
		}
		if showProgressBar {
			chDuration <- time.Since(timeStart1)
		}
	}

	if showProgressBar {
		close(chDuration)
		<-doneDuration
		pbs.Wait()
	}

	if opt.Verbose || opt.Log2File {
		log.Info()
		log.Infof("%d forward anchors and %d backward anchors saved to %s", total[0], total[1], aopt.OutDir)
	}

	return target, queries
}

func getAlignOptions(cmd *cobra.Command, opt *Options) *AlignOptions {
	forwardOnly := getFlagBool(cmd, "forward-only")
	backwardOnly := getFlagBool(cmd, "backward-only")

	return &AlignOptions{
		K:            getFlagPositiveInt(cmd, "kmer"),
		Step:         getFlagPositiveInt(cmd, "slide"),
		MaxMatches:   getFlagPositiveInt(cmd, "max-matches"),
		Interval:     getFlagPositiveInt(cmd, "bwt-interval"),
		LookupPrefix: getFlagNonNegativeInt(cmd, "lookup-prefix"),

		Forward:      !backwardOnly,
		Backward:     !forwardOnly,
		StartPosOnly: getFlagBool(cmd, "start-pos"),
		KeepUnknown:  getFlagBool(cmd, "keep-unknown"),

		NumCPUs: opt.NumCPUs,
		Verbose: opt.Verbose,

		OutDir:   getFlagPath(cmd, "out-dir"),
		Compress: getFlagBool(cmd, "gzip"),
	}
}

// getQueryFiles returns query files from positional arguments, a file list, or a directory.
func getQueryFiles(cmd *cobra.Command, args []string, opt *Options) []string {
	inDir := getFlagPath(cmd, "in-dir")
	if inDir == "" {
		return getFileListFromArgsAndFile(cmd, args, true, "infile-list", true)
	}

	isDir, err := pathutil.IsDir(inDir)
	if err != nil {
		checkError(errors.Wrapf(err, "checking -I/--in-dir"))
	}
	if !isDir {
		checkError(fmt.Errorf("value of -I/--in-dir should be a directory: %s", inDir))
	}

	reFileStr := getFlagString(cmd, "file-regexp")
	reFile, err := regexp.Compile(reIgnoreCaseStr + reFileStr)
	if err != nil {
		checkError(errors.Wrapf(err, "failed to parse regular expression for matching file: %s", reFileStr))
	}

	files, err := getFileListFromDir(inDir, reFile, opt.NumCPUs)
	if err != nil {
		checkError(errors.Wrapf(err, "walking dir: %s", inDir))
	}
	if len(files) == 0 {
		log.Warningf("  no files matching regular expression: %s", reFileStr)
	}
	return files
}

var reIgnoreCaseStr = "(?i)"

func addAlignFlags(cmd *cobra.Command) {
	// -----------------------------  input  -----------------------------

	cmd.Flags().StringP("index", "d", "",
		formatFlagUsage(`Index directory created by "comptool index", instead of a target file.`))

	cmd.Flags().StringP("in-dir", "I", "",
		formatFlagUsage(`Directory containing query FASTA/Q files. Directory symlinks are followed.`))

	cmd.Flags().StringP("file-regexp", "r", `\.(f[aq](st[aq])?|fna)(.gz)?$`,
		formatFlagUsage(`Regular expression for matching query files in -I/--in-dir, case ignored.`))

	cmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of query files, one file per line.`))

	// -----------------------------  searching  -----------------------------

	cmd.Flags().IntP("kmer", "k", DefaultAlignOptions.K,
		formatFlagUsage(`K-mer size.`))

	cmd.Flags().IntP("slide", "l", DefaultAlignOptions.Step,
		formatFlagUsage(`Step of sliding k-mers on queries.`))

	cmd.Flags().IntP("max-matches", "m", DefaultAlignOptions.MaxMatches,
		formatFlagUsage(`Maximum number of matches to output for each k-mer.`))

	cmd.Flags().IntP("bwt-interval", "i", DefaultAlignOptions.Interval,
		formatFlagUsage(`Sampling interval of BWT occurrence checkpoints. Larger values use less memory but search slower.`))

	cmd.Flags().IntP("lookup-prefix", "p", DefaultAlignOptions.LookupPrefix,
		formatFlagUsage(fmt.Sprintf(`Length of k-mer prefixes in the lookup table for speeding up searching (0 for no table, <= %d).`,
			index.MaxLookupPrefix)))

	cmd.Flags().BoolP("start-pos", "s", false,
		formatFlagUsage(`Only output start positions of matches, the output can not be chained.`))

	cmd.Flags().BoolP("keep-unknown", "", false,
		formatFlagUsage(`Search k-mers containing N.`))

	// -----------------------------  output  -----------------------------

	cmd.Flags().BoolP("gzip", "z", false,
		formatFlagUsage(`Compress output files in gzip format.`))
}

func addStrandAndOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("forward-only", "f", false,
		formatFlagUsage(`Only process the forward strand.`))

	cmd.Flags().BoolP("backward-only", "b", false,
		formatFlagUsage(`Only process the backward strand (reverse complement).`))

	cmd.Flags().StringP("out-dir", "O", "./",
		formatFlagUsage(`Output directory, which also contains anchor tables for chaining.`))
}

func init() {
	RootCmd.AddCommand(alignCmd)

	addAlignFlags(alignCmd)
	addStrandAndOutputFlags(alignCmd)

	alignCmd.SetUsageTemplate(usageTemplate("[-k <k>] {<target file> | -d <index dir>} {<query files> | -I <dir> | -X <file list>} [-O <out dir>]"))
}
