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
	"time"

	"github.com/spf13/cobra"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run align and chain in one go",
	Long: `Run align and chain in one go

It searches k-mers of queries against the target like "comptool align",
and then chains the anchors like "comptool chain".
Flags of both commands are supported.

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

		if getFlagBool(cmd, "start-pos") {
			checkError(errStartPosChain)
		}

		// checking before the time-consuming searching
		copt := getChainOptions(cmd, opt)
		checkError(CheckChainOptions(copt))

		target, queries := runAlign(cmd, args, opt)

		if opt.Verbose || opt.Log2File {
			log.Info()
			log.Infof("chaining with near distance: %d ...", copt.NearDist)
		}
		runChain(target, queries, copt, opt)
	},
}

func init() {
	RootCmd.AddCommand(allCmd)

	addAlignFlags(allCmd)
	addChainFlags(allCmd)
	addStrandAndOutputFlags(allCmd)

	allCmd.SetUsageTemplate(usageTemplate("[-k <k>] [-n <near dist>] {<target file> | -d <index dir>} {<query files> | -I <dir> | -X <file list>} [-O <out dir>]"))
}
