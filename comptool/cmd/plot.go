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
	"image/color"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/chain"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Draw a dot plot of major chains",
	Long: `Draw a dot plot of major chains

Each chain in a table created by "comptool chain" is drawn as a segment,
target positions on the X axis and query positions on the Y axis.
Forward chains are blue, and backward chains are red.
Supported formats: png, svg, pdf, jpg, tif and eps, according to the
extension of the output file.

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
			checkError(fmt.Errorf("one chain file is needed"))
		}
		file := args[0]
		outFile := getFlagPath(cmd, "out-file")
		width := getFlagPositiveFloat(cmd, "width")
		height := getFlagPositiveFloat(cmd, "height")
		minMatched := getFlagNonNegativeInt(cmd, "min-matched")

		query, target, records, err := chain.ReadTable(file)
		checkError(err)

		n, err := plotChains(records, query, target, minMatched, outFile, width, height)
		checkError(err)

		if opt.Verbose || opt.Log2File {
			log.Infof("%d chains plotted: %s", n, outFile)
		}
	},
}

var colorForward = color.RGBA{R: 31, G: 119, B: 180, A: 255}
var colorBackward = color.RGBA{R: 214, G: 39, B: 40, A: 255}

// plotChains draws chains with at least minMatched matched bases,
// and returns the number of plotted chains.
func plotChains(records []chain.Record, query, target string, minMatched int,
	outFile string, width, height float64) (int, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", query, target)
	p.X.Label.Text = target
	p.Y.Label.Text = query
	p.Add(plotter.NewGrid())

	var n int
	var xys plotter.XYs
	for _, r := range records {
		if r.Matched < minMatched {
			continue
		}

		if r.Strand == anchor.Reverse {
			xys = plotter.XYs{{X: float64(r.TBegin), Y: float64(r.QEnd)}, {X: float64(r.TEnd), Y: float64(r.QBegin)}}
		} else {
			xys = plotter.XYs{{X: float64(r.TBegin), Y: float64(r.QBegin)}, {X: float64(r.TEnd), Y: float64(r.QEnd)}}
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return n, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		if r.Strand == anchor.Reverse {
			line.LineStyle.Color = colorBackward
		} else {
			line.LineStyle.Color = colorForward
		}
		p.Add(line)
		n++
	}

	if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, outFile); err != nil {
		return n, errors.Wrap(err, outFile)
	}
	return n, nil
}

func init() {
	RootCmd.AddCommand(plotCmd)

	plotCmd.Flags().StringP("out-file", "o", "dotplot.png",
		formatFlagUsage(`Output image file.`))

	plotCmd.Flags().Float64P("width", "W", 6,
		formatFlagUsage(`Width of the image, in inches.`))

	plotCmd.Flags().Float64P("height", "H", 6,
		formatFlagUsage(`Height of the image, in inches.`))

	plotCmd.Flags().IntP("min-matched", "M", 0,
		formatFlagUsage(`Only plot chains with at least this number of matched bases.`))

	plotCmd.SetUsageTemplate(usageTemplate("<chain file> [-o dotplot.png]"))
}
