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
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/index"
	"github.com/shenwei356/comptool/comptool/util"
	"github.com/shenwei356/util/bytesize"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and save a BWT index of a target",
	Long: `Build and save a BWT index of a target

Input:
  A FASTA/Q file. Multiple sequences are concatenated with a single N.

Output (in -O/--out-dir):
  info.toml   summary information
  seq.bin     the packed sequence
  sa.bin      the suffix array

  The BWT, occurrence checkpoints and the lookup table are rebuilt when
  loading the index with "comptool align -d".

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

		if len(args) != 1 {
			checkError(fmt.Errorf("one target FASTA/Q file is needed"))
		}
		target := args[0]

		interval := getFlagPositiveInt(cmd, "bwt-interval")
		lookupP := getFlagNonNegativeInt(cmd, "lookup-prefix")
		if lookupP > index.MaxLookupPrefix {
			checkError(errors.Wrapf(util.ErrInvalidOption, "value of flag -p/--lookup-prefix should be in range of [0, %d]: %d",
				index.MaxLookupPrefix, lookupP))
		}
		force := getFlagBool(cmd, "force")
		outDir := getFlagPath(cmd, "out-dir")
		if outDir == "" {
			outDir = seqName(target) + ".cmi"
		}
		if filepath.Clean(outDir) == filepath.Clean(target) {
			checkError(fmt.Errorf("intput and output paths should not be the same: %s", outDir))
		}

		if opt.Verbose || opt.Log2File {
			log.Infof("comptool v%s", VERSION)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
			log.Infof("target file: %s", target)
			log.Infof("output directory: %s", outDir)
			log.Info()
			log.Infof("BWT sampling interval: %d", interval)
			log.Infof("prefix length of lookup table: %d", lookupP)
			log.Info()
			log.Infof("-------------------- [main parameters] --------------------")
			log.Info()
			log.Infof("reading sequences ...")
		}

		sd, err := readSeqFile(target)
		checkError(err)
		if opt.Verbose || opt.Log2File {
			log.Infof("  %d bases in %d sequence(s)", len(sd.Seq), len(sd.SeqNames))
			log.Infof("building index ...")
		}

		timeStart1 := time.Now()
		idx, err := buildIndex(sd, interval, lookupP)
		checkError(err)
		if opt.Verbose || opt.Log2File {
			log.Infof("  index built in %s, occupying %s", time.Since(timeStart1), bytesize.ByteSize(idx.Bytes()))
		}

		checkError(idx.WriteToPath(outDir, force))
		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("index saved: %s", outDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory, <target name>.cmi by default.`))

	indexCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite existed output directory.`))

	indexCmd.Flags().IntP("bwt-interval", "i", DefaultAlignOptions.Interval,
		formatFlagUsage(`Sampling interval of BWT occurrence checkpoints, used as the default value when loading.`))

	indexCmd.Flags().IntP("lookup-prefix", "p", DefaultAlignOptions.LookupPrefix,
		formatFlagUsage(fmt.Sprintf(`Length of k-mer prefixes in the lookup table (0 for no table, <= %d), used as the default value when loading.`,
			index.MaxLookupPrefix)))

	indexCmd.SetUsageTemplate(usageTemplate("[-i <interval>] <target file> [-O <out dir>]"))
}
