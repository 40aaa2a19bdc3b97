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
	"time"

	"github.com/shenwei356/comptool/comptool/chain"
	"github.com/spf13/cobra"
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Chain anchors and output major chains",
	Long: `Chain anchors and output major chains

Input:
  The same target and query files given to "comptool align", only the
  file names are used to locate anchor tables in -O/--out-dir.
  Gzipped anchor tables (*.tsv.gz) are also recognized.

Chaining:
  Two anchors of the same strand are linked when the gaps between their
  start positions on both the query and the target are <= -n/--near-dist,
  and their diagonals differ by <= --max-diag-shift. Chains are groups of
  linked anchors. A chain is major if no chain with a higher score
  (matched bases) overlaps it on the query, ties are broken by the
  earliest query start and then the earliest target start.

Output (in -O/--out-dir, for each query):
  chains_<target>_<query>.tsv

  The first line is "#<query name>\t<target name>", followed by major
  chains with seven tab-delimited columns, forward chains first:

    tstart  tend  qstart  qend  matched  strand  anchors

  Ranges are 0-based and half-open, strand is "+" or "-".

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

		if len(args) < 2 {
			checkError(fmt.Errorf("a target file and at least one query file are needed"))
		}

		copt := getChainOptions(cmd, opt)
		checkError(CheckChainOptions(copt))

		if opt.Verbose || opt.Log2File {
			log.Infof("comptool v%s", VERSION)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
			logChainOptions(copt)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
		}

		runChain(args[0], args[1:], copt, opt)
	},
}

func runChain(target string, queries []string, copt *ChainOptions, opt *Options) {
	for _, query := range queries {
		timeStart1 := time.Now()
		stats, err := runChaining(target, query, copt)
		checkError(err)

		if opt.Verbose || opt.Log2File {
			log.Infof("%s vs %s: chained in %s", query, target, time.Since(timeStart1))
			logChainStats(stats)
			log.Infof("  major chains saved to %s", chainFile(copt.OutDir, target, query, copt.Compress))
		}
	}
}

func getChainOptions(cmd *cobra.Command, opt *Options) *ChainOptions {
	forwardOnly := getFlagBool(cmd, "forward-only")
	backwardOnly := getFlagBool(cmd, "backward-only")

	return &ChainOptions{
		ChainingOptions: chain.ChainingOptions{
			NearDist:     getFlagInt(cmd, "near-dist"),
			MaxDiagShift: getFlagNonNegativeInt(cmd, "max-diag-shift"),
		},

		Forward:  !backwardOnly,
		Backward: !forwardOnly,

		Verbose:  opt.Verbose,
		OutDir:   getFlagPath(cmd, "out-dir"),
		Compress: getFlagBool(cmd, "gzip"),
	}
}

func logChainOptions(copt *ChainOptions) {
	log.Infof("output directory: %s", copt.OutDir)
	log.Infof("near distance: %d", copt.NearDist)
	if copt.MaxDiagShift > 0 {
		log.Infof("maximum diagonal shift: %d", copt.MaxDiagShift)
	} else {
		log.Infof("maximum diagonal shift: %d (near distance)", copt.NearDist)
	}
	log.Infof("forward strand: %v, backward strand: %v", copt.Forward, copt.Backward)
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("near-dist", "n", chain.DefaultChainingOptions.NearDist,
		formatFlagUsage(`Maximum gap between start positions of two linked anchors, on both the query and the target.`))

	cmd.Flags().IntP("max-diag-shift", "", chain.DefaultChainingOptions.MaxDiagShift,
		formatFlagUsage(`Maximum difference of diagonals of two linked anchors (0 for the value of -n/--near-dist).`))
}

func init() {
	RootCmd.AddCommand(chainCmd)

	addChainFlags(chainCmd)
	addStrandAndOutputFlags(chainCmd)

	chainCmd.Flags().BoolP("gzip", "z", false,
		formatFlagUsage(`Compress output files in gzip format.`))

	chainCmd.SetUsageTemplate(usageTemplate("[-n <near dist>] <target file> <query files> [-O <out dir>]"))
}
