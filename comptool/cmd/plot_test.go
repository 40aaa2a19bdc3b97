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
	"path/filepath"
	"testing"

	"github.com/shenwei356/comptool/comptool/anchor"
	"github.com/shenwei356/comptool/comptool/chain"
	"github.com/shenwei356/util/pathutil"
)

func TestPlotChains(t *testing.T) {
	records := []chain.Record{
		{TBegin: 0, TEnd: 1000, QBegin: 0, QEnd: 1000, Matched: 900, Strand: anchor.Forward, NumAnchors: 60},
		{TBegin: 5000, TEnd: 5800, QBegin: 1200, QEnd: 2000, Matched: 700, Strand: anchor.Reverse, NumAnchors: 40},
		{TBegin: 8000, TEnd: 8015, QBegin: 3000, QEnd: 3015, Matched: 15, Strand: anchor.Forward, NumAnchors: 1},
	}

	file := filepath.Join(t.TempDir(), "dotplot.png")
	n, err := plotChains(records, "query", "target", 100, file, 4, 4)
	if err != nil {
		t.Error(err)
		return
	}
	if n != 2 {
		t.Errorf("two chains should be plotted, %d plotted", n)
	}
	if ok, _ := pathutil.Exists(file); !ok {
		t.Errorf("image not created: %s", file)
	}
}
